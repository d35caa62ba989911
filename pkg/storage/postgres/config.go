package postgres

import (
	"fmt"
	"time"
)

// Config holds the connection and pool-tuning parameters for the Postgres
// storage driver. Grounded on the pool-sizing knobs exposed by
// vasic-digital-SuperAgent's pgvector client; this deployment reaches the
// database through a single DSN rather than discrete host/port fields
// since the rest of the ambient stack (viper) resolves a DSN directly.
type Config struct {
	DSN string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration

	// EmbeddingDim is the fixed vector-column width; every deployment has
	// exactly one (spec.md §3 invariant 5).
	EmbeddingDim int
}

// DefaultConfig returns the pool defaults this driver falls back to when a
// caller leaves tuning fields at zero value.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		EmbeddingDim:    1536,
	}
}

// Validate reports a configuration error before any connection attempt.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("postgres: dsn is required")
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("postgres: embedding dimension must be positive")
	}
	return nil
}
