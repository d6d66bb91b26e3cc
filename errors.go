package xltransform

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	// ErrInvalidAddress indicates malformed cell address text.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrCoercion indicates a raw value does not parse under a column's data type.
	ErrCoercion = errors.New("coercion failure")

	// ErrCheckFailed indicates a coerced value was rejected by a column check
	// expression. It also matches ErrCoercion.
	ErrCheckFailed = fmt.Errorf("%w: check failed", ErrCoercion)

	// ErrUnresolvedCell indicates no range, default or raw value could resolve a cell.
	ErrUnresolvedCell = errors.New("unresolved cell")

	// ErrConfiguration indicates a structurally invalid template.
	ErrConfiguration = errors.New("configuration error")

	// ErrIO indicates the input could not be read or the output not written.
	ErrIO = errors.New("io failure")

	// ErrInvalidOutcome indicates an attempt to build an Outcome with both or
	// neither of payload and error.
	ErrInvalidOutcome = errors.New("invalid outcome")
)

// ErrorKind is a coarse-grained categorization used in notifications and run errors.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindInvalidAddress  ErrorKind = "invalid_address"
	KindCoercionFailure ErrorKind = "coercion_failure"
	KindRangeMiss       ErrorKind = "range_miss"
	KindUnresolvedCell  ErrorKind = "unresolved_cell"
	KindConfiguration   ErrorKind = "configuration_error"
	KindIO              ErrorKind = "io_failure"
	KindCancelled       ErrorKind = "cancelled"
)

// RunError wraps a run-level failure with the step that failed and a kind.
type RunError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: relevant file path
	Err  error
}

func (e *RunError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match a RunError against the sentinel of its kind.
func (e *RunError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindConfiguration:
		return target == ErrConfiguration
	case KindIO:
		return target == ErrIO
	}
	return false
}

// IsKind reports whether err is a RunError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

func configError(op string, err error) *RunError {
	return &RunError{Op: op, Kind: KindConfiguration, Err: err}
}

func ioError(op, path string, err error) *RunError {
	return &RunError{Op: op, Kind: KindIO, Path: path, Err: err}
}
