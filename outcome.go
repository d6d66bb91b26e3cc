package xltransform

import "fmt"

// Outcome is the final result of a run: either a success carrying a value or
// a failure carrying an error, never both. The zero Outcome is not valid;
// build one with Success, Failure or NewOutcome.
type Outcome[T any] struct {
	value T
	err   error
	ok    bool
}

// Success returns a successful Outcome carrying v.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, ok: true}
}

// Failure returns a failed Outcome carrying err. It panics on a nil error,
// since a failure without a cause cannot be told apart from a success.
func Failure[T any](err error) Outcome[T] {
	if err == nil {
		panic("xltransform: Failure called with nil error")
	}
	return Outcome[T]{err: err}
}

// NewOutcome builds an Outcome from optional parts. Exactly one of value and
// err must be set; otherwise it returns ErrInvalidOutcome.
func NewOutcome[T any](value *T, err error) (Outcome[T], error) {
	switch {
	case value != nil && err != nil:
		return Outcome[T]{}, fmt.Errorf("%w: both value and error set", ErrInvalidOutcome)
	case value == nil && err == nil:
		return Outcome[T]{}, fmt.Errorf("%w: neither value nor error set", ErrInvalidOutcome)
	case value != nil:
		return Success(*value), nil
	default:
		return Failure[T](err), nil
	}
}

// OK reports whether the Outcome is a success.
func (o Outcome[T]) OK() bool {
	return o.ok
}

// Value returns the payload and true on success, or the zero value and false.
func (o Outcome[T]) Value() (T, bool) {
	if !o.ok {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Err returns the failure error, or nil on success.
func (o Outcome[T]) Err() error {
	if o.ok {
		return nil
	}
	return o.err
}

// Unwrap returns the payload or the error, mirroring a (T, error) return.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.ok {
		return o.value, nil
	}
	var zero T
	return zero, o.err
}

// String formats the outcome as "success: <value>" or "failure: <error>".
func (o Outcome[T]) String() string {
	if o.ok {
		return fmt.Sprintf("success: %v", o.value)
	}
	if o.err == nil {
		return "invalid outcome"
	}
	return fmt.Sprintf("failure: %v", o.err)
}
