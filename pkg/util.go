package pkg

import "iter"

// Option is a functional option that transforms a configuration value of
// type T and returns the result.
type Option[T any] func(T) T

// Apply applies each of the given options to cfg in order.
func Apply[T any](cfg T, opts ...Option[T]) T {
	for _, opt := range opts {
		if opt != nil {
			cfg = opt(cfg)
		}
	}

	return cfg
}

// TypeCast is function that converts a value of type T to type U.
type TypeCast[T, U any] func(T) U

// AnyValues returns the given values of type T as a sequence of any.
func AnyValues[T any](v ...T) iter.Seq[any] {
	var fn TypeCast[T, any] = func(v T) any { return v }

	return fn.Values(v...)
}

// Values returns an iterator over the given values, casting each value
// from type T to type U using the TypeCast receiver.
func (c TypeCast[T, U]) Values(v ...T) iter.Seq[U] {
	return func(yield func(U) bool) {
		for _, x := range v {
			if !yield(c(x)) {
				return
			}
		}
	}
}
