package logger

import (
	"context"
	"sync"
)

// LoggerContext accumulates key/value attributes over the course of an
// operation so call sites can enrich a shared logger without rebuilding it.
// It is safe for concurrent use.
type LoggerContext struct {
	mu     sync.RWMutex
	logger *Logger
}

// NewLoggerContext constructs a LoggerContext wrapping the provided logger.
func NewLoggerContext(logger *Logger) *LoggerContext {
	return &LoggerContext{logger: logger}
}

// Add attaches additional key/value pairs to all subsequent log output.
func (lc *LoggerContext) Add(args ...any) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.logger = lc.logger.With(args...)
}

// Debug logs at LevelDebug with the accumulated attributes.
func (lc *LoggerContext) Debug(ctx context.Context, msg string, args ...any) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	lc.logger.Debugc(ctx, 4, msg, args...)
}

// Info logs at LevelInfo with the accumulated attributes.
func (lc *LoggerContext) Info(ctx context.Context, msg string, args ...any) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	lc.logger.Infoc(ctx, 4, msg, args...)
}

// Warn logs at LevelWarn with the accumulated attributes.
func (lc *LoggerContext) Warn(ctx context.Context, msg string, args ...any) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	lc.logger.Warnc(ctx, 4, msg, args...)
}

// Error logs at LevelError with the accumulated attributes.
func (lc *LoggerContext) Error(ctx context.Context, msg string, args ...any) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	lc.logger.Errorc(ctx, 4, msg, args...)
}
