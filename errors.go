package onion

import (
	"errors"
	"fmt"
)

var (
	// ErrNextCalledMultiple is returned by a Next that has already been
	// used, or that belongs to a step the chain has moved past.
	ErrNextCalledMultiple = errors.New("onion: next() called multiple times")

	// ErrNotSequence is returned by ComposeAny when its argument is not a
	// slice or array.
	ErrNotSequence = errors.New("onion: handlers must be a slice or array")

	// ErrNotCallable matches every *NotCallableError.
	ErrNotCallable = errors.New("onion: handler is not callable")
)

// NotCallableError reports the first element of a handler list that cannot
// be invoked as a handler.
type NotCallableError struct {
	Index int
	// Got is the dynamic type of the offending element; empty for nil.
	Got string
}

func (e *NotCallableError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("onion: handler %d is nil", e.Index)
	}
	return fmt.Sprintf("onion: handler %d is not callable (got %s)", e.Index, e.Got)
}

func (e *NotCallableError) Is(target error) bool {
	return target == ErrNotCallable
}

// PanicError carries a panic recovered from a handler.
type PanicError struct {
	// Step is the index of the handler that panicked. The tail handler has
	// index len(handlers).
	Step  int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("onion: panic in step %d: %v", e.Step, e.Value)
}

// Unwrap returns the panic value when it is an error, so errors.Is matches
// the value a handler panicked with.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
