package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied idempotency keys and the response they produced
type IdempotencyStore interface {
	// Reserve claims the key for ttl. Returns false if the key was already claimed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the response body produced for a reserved key
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error

	// Lookup returns the stored response for a completed key, or nil if none is stored yet
	Lookup(ctx context.Context, key string) ([]byte, error)

	// Release drops a reservation so the request can be retried
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key and its response are remembered. Default: 24 hours
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
