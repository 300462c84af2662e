package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// L1 is an in-process cache backed by ristretto.
type L1 struct {
	rc     *ristretto.Cache[string, []byte]
	flight singleflight.Group
}

// NewL1 creates an L1 holding up to maxCost entries.
func NewL1(maxCost int64) (*L1, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &L1{rc: rc}, nil
}

// Get returns a copy of the value stored under key.
func (l *L1) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.rc.Get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set stores a copy of val. The write is visible to Get once Set returns.
func (l *L1) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	l.rc.SetWithTTL(key, bytes.Clone(val), 1, ttl)
	l.rc.Wait()
	return nil
}

func (l *L1) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if v, ok, _ := l.Get(ctx, key); ok {
		return v, nil
	}
	return load(ctx, &l.flight, key, loader, func(v []byte) {
		_ = l.Set(ctx, key, v, ttl)
	})
}

// Close releases ristretto's background goroutines.
func (l *L1) Close() {
	l.rc.Close()
}

// load runs loader once per key across concurrent callers and hands each
// caller its own copy of the result.
func load(ctx context.Context, g *singleflight.Group, key string, loader Loader, store func([]byte)) ([]byte, error) {
	v, err, _ := g.Do(key, func() (any, error) {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		store(v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.([]byte)), nil
}
