package breaker

import (
	"errors"

	"github.com/Keksclan/onion"
)

// ErrOpen is returned by Handler while the breaker rejects calls and no
// reject function is given.
var ErrOpen = errors.New("breaker: circuit open")

// Handler returns an onion handler that skips the rest of the chain while b
// is open and feeds the outcome of next back into b. reject builds the error
// for a skipped call; nil means ErrOpen. failed decides which errors count
// as failures; nil counts every non-nil error.
func Handler[T any](b *Breaker, reject func(T) error, failed func(error) bool) onion.Handler[T] {
	if failed == nil {
		failed = func(err error) bool { return err != nil }
	}
	return func(c T, next onion.Next) error {
		if !b.Allow() {
			if reject != nil {
				return reject(c)
			}
			return ErrOpen
		}

		err := next()
		if failed(err) {
			b.OnFailure()
		} else {
			b.OnSuccess()
		}
		return err
	}
}
