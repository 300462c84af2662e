// Package ratelimit gates onion chains with token buckets from
// golang.org/x/time/rate.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out tokens from a shared bucket, or from one bucket per key
// when used through AllowKey. Keyed buckets are created lazily with the same
// rate and burst.
type Limiter struct {
	limit rate.Limit
	burst int
	lim   *rate.Limiter

	mu   sync.Mutex
	keys map[string]*rate.Limiter
}

// NewLimiter creates a Limiter that permits rps events per second with the
// given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limit: rate.Limit(rps),
		burst: burst,
		lim:   rate.NewLimiter(rate.Limit(rps), burst),
		keys:  make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one event may happen now on the shared bucket.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// AllowKey reports whether one event may happen now on key's bucket. An
// empty key uses the shared bucket.
func (l *Limiter) AllowKey(key string) bool {
	if key == "" {
		return l.Allow()
	}

	l.mu.Lock()
	b, ok := l.keys[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.keys[key] = b
	}
	l.mu.Unlock()

	return b.Allow()
}
