// Package cache provides the byte cache behind the response-caching onion
// handler: an in-process L1 backed by ristretto, a Redis L2, and a Tiered
// combination of both.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get retrieves a value by key. The boolean reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores val under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// GetOrSet returns the value for key, calling loader on a miss and
	// storing its result. Concurrent misses for the same key share a
	// single loader call.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error)
}

// Loader produces the value for a missing key.
type Loader func(ctx context.Context) ([]byte, error)
