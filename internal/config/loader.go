package config

import (
	"context"
)

// Loader resolves the consumer configuration from some backing source. The
// yaml fileloader is the only implementation today; the interface leaves room
// for env-only or remote sources without touching cmd wiring.
type Loader interface {
	// Load returns a validated Config ready for use, or an error when the
	// source is unreadable or the contents are incomplete.
	Load(ctx context.Context) (*Config, error)
}
