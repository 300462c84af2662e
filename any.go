package onion

import (
	"fmt"
	"reflect"
)

// ComposeAny composes handlers whose static type is unknown, such as a list
// assembled from a plugin registry. v must be a slice or array; each element
// must be a Handler[T] or a func(T, Next) error.
func ComposeAny[T any](v any) (Composed[T], error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: got %T", ErrNotSequence, v)
	}

	handlers := make([]Handler[T], rv.Len())
	for i := range handlers {
		h, err := handlerOf[T](i, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		handlers[i] = h
	}
	return compose(handlers), nil
}

func handlerOf[T any](i int, el any) (Handler[T], error) {
	switch h := el.(type) {
	case Handler[T]:
		if h != nil {
			return h, nil
		}
		return nil, &NotCallableError{Index: i}
	case func(T, Next) error:
		if h != nil {
			return h, nil
		}
		return nil, &NotCallableError{Index: i}
	case nil:
		return nil, &NotCallableError{Index: i}
	}
	return nil, &NotCallableError{Index: i, Got: fmt.Sprintf("%T", el)}
}
