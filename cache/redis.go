package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// L2 is a Redis-backed cache. It fails soft: an unreachable Redis reads as a
// miss and drops writes, so a chain never fails because of its cache.
type L2 struct {
	rdb    redis.UniversalClient
	flight singleflight.Group
}

// NewL2 connects to a single Redis node.
func NewL2(addr, password string, db int) *L2 {
	return NewL2FromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewL2FromURL connects using a redis:// or rediss:// URL.
func NewL2FromURL(url string) (*L2, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewL2FromClient(redis.NewClient(opts)), nil
}

// NewL2FromClient wraps an existing client, including cluster and sentinel
// clients.
func NewL2FromClient(rdb redis.UniversalClient) *L2 {
	return &L2{rdb: rdb}
}

func (l *L2) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := l.rdb.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil and connection errors both read as a miss.
		return nil, false, nil
	}
	return val, true, nil
}

func (l *L2) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = l.rdb.Set(ctx, key, val, ttl).Err()
	return nil
}

func (l *L2) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if v, ok, _ := l.Get(ctx, key); ok {
		return v, nil
	}
	return load(ctx, &l.flight, key, loader, func(v []byte) {
		_ = l.Set(ctx, key, v, ttl)
	})
}

// Ping checks the Redis connection.
func (l *L2) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (l *L2) Close() error {
	return l.rdb.Close()
}
