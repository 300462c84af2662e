package ratelimit

import (
	"errors"

	"github.com/Keksclan/onion"
)

// ErrLimited is returned by Handler when no deny function is given.
var ErrLimited = errors.New("ratelimit: rate limit exceeded")

// Handler returns an onion handler that stops the chain when l has no token
// left. key selects the bucket for a call and may be nil for the shared
// bucket. deny builds the error for a rejected call; nil means ErrLimited.
func Handler[T any](l *Limiter, key func(T) string, deny func(T) error) onion.Handler[T] {
	return func(c T, next onion.Next) error {
		k := ""
		if key != nil {
			k = key(c)
		}
		if l.AllowKey(k) {
			return next()
		}
		if deny != nil {
			return deny(c)
		}
		return ErrLimited
	}
}
