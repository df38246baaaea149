package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config represents the top-level consumer configuration.
type Config struct {
	NATS     NATSConfig     `yaml:"nats"`
	Postgres PostgresConfig `yaml:"postgres"`
	Poller   PollerConfig   `yaml:"poller"`
	Streams  []StreamSpec   `yaml:"streams"`
}

// NATSConfig holds broker connection settings.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// PostgresConfig holds read-model database settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// PollerConfig bounds the poll loop.
type PollerConfig struct {
	// BatchSize is the maximum number of messages fetched per pull.
	BatchSize int `yaml:"batch_size"`

	// PullWait is how long a pull blocks waiting for messages before
	// returning an empty batch.
	PullWait time.Duration `yaml:"pull_wait"`

	// SweepInterval is the pause between full sweeps of all streams.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StreamSpec describes one durable consumer binding.
type StreamSpec struct {
	// Stream is the upstream stream name.
	Stream string `yaml:"stream"`

	// Durable is the durable consumer name anchoring the server-side
	// delivery cursor across restarts.
	Durable string `yaml:"durable"`

	// FilterSubject restricts delivery, e.g. "auth.v1.>".
	FilterSubject string `yaml:"filter_subject"`
}

// Default poller bounds applied when the file omits them.
const (
	DefaultBatchSize     = 25
	DefaultPullWait      = 5 * time.Second
	DefaultSweepInterval = 2 * time.Second
)

// ApplyEnv overlays environment variables on the loaded file values so
// deployments can inject connection strings without editing the config file.
func (c *Config) ApplyEnv() {
	if url := os.Getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		c.Postgres.DSN = dsn
	}
}

// Validate checks the configuration is complete enough to start and fills in
// poller defaults. A consumer with no streams has nothing to replicate, so
// that is a startup failure rather than a silent idle loop.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if len(c.Streams) == 0 {
		return errors.New("at least one stream binding is required")
	}
	for i, s := range c.Streams {
		if s.Stream == "" {
			return fmt.Errorf("streams[%d]: stream name is required", i)
		}
		if s.Durable == "" {
			return fmt.Errorf("streams[%d]: durable name is required", i)
		}
		if s.FilterSubject == "" {
			return fmt.Errorf("streams[%d]: filter_subject is required", i)
		}
	}

	if c.Poller.BatchSize <= 0 {
		c.Poller.BatchSize = DefaultBatchSize
	}
	if c.Poller.PullWait <= 0 {
		c.Poller.PullWait = DefaultPullWait
	}
	if c.Poller.SweepInterval <= 0 {
		c.Poller.SweepInterval = DefaultSweepInterval
	}
	return nil
}
