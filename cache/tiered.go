package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Tiered reads L1, then L2, then the loader. Writes go to both layers.
type Tiered struct {
	l1     Cache
	l2     Cache
	flight singleflight.Group
}

// NewTiered combines a fast local cache with a shared remote one.
func NewTiered(l1, l2 Cache) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

// Get promotes L2 hits into L1 without expiry, since the remaining TTL is
// unknown.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.l1.Get(ctx, key); err != nil || ok {
		return v, ok, err
	}
	v, ok, err := t.l2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.l1.Set(ctx, key, v, 0)
	return v, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = t.l2.Set(ctx, key, val, ttl)
	return t.l1.Set(ctx, key, val, ttl)
}

func (t *Tiered) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if v, ok, _ := t.l1.Get(ctx, key); ok {
		return v, nil
	}
	if v, ok, _ := t.l2.Get(ctx, key); ok {
		_ = t.l1.Set(ctx, key, v, ttl)
		return v, nil
	}
	return load(ctx, &t.flight, key, loader, func(v []byte) {
		_ = t.Set(ctx, key, v, ttl)
	})
}
