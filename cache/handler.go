package cache

import (
	"context"
	"time"

	"github.com/Keksclan/onion"
)

// Codec maps a call value onto the cache.
type Codec[T any] interface {
	// Key returns the cache key for c; false bypasses the cache.
	Key(c T) (string, bool)
	// Encode captures the result the rest of the chain left in c.
	Encode(c T) ([]byte, error)
	// Decode restores a cached result into c.
	Decode(c T, data []byte) error
}

// Handler returns an onion handler that answers from store when it can. On a
// hit the rest of the chain is skipped and the stored bytes are decoded into
// the call; on a miss next runs as the loader and its result is stored.
// Concurrent misses for one key run the rest of the chain once.
func Handler[T interface{ Context() context.Context }](store Cache, ttl time.Duration, codec Codec[T]) onion.Handler[T] {
	return func(c T, next onion.Next) error {
		key, ok := codec.Key(c)
		if !ok {
			return next()
		}

		loaded := false
		data, err := store.GetOrSet(c.Context(), key, ttl, func(context.Context) ([]byte, error) {
			loaded = true
			if err := next(); err != nil {
				return nil, err
			}
			return codec.Encode(c)
		})
		if err != nil || loaded {
			return err
		}
		return codec.Decode(c, data)
	}
}
