package onion

import "context"

// Outcome is the eventual result of a chain started with Composed.Go.
type Outcome struct {
	done chan struct{}
	err  error
}

// Go starts the chain on a new goroutine and returns immediately.
func (fn Composed[T]) Go(c T, tail Handler[T]) *Outcome {
	o := &Outcome{done: make(chan struct{})}
	go func() {
		defer close(o.done)
		o.err = fn(c, tail)
	}()
	return o
}

// Done is closed once the chain has completed or failed.
func (o *Outcome) Done() <-chan struct{} {
	return o.done
}

// Err returns the chain's error. It is nil until Done is closed.
func (o *Outcome) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the chain finishes or ctx is done. Giving up on ctx does
// not stop the chain; it keeps running to completion in the background.
func (o *Outcome) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
