package xltransform

import (
	"errors"
	"fmt"
)

// DefaultUnresolvedMarker is written into cells that no rule could resolve.
const DefaultUnresolvedMarker = "#UNRESOLVED"

// Action records which rule produced a resolved value.
type Action string

const (
	ActionKept        Action = "kept"        // raw value written unchanged
	ActionSubstituted Action = "substituted" // a range matched
	ActionDefaulted   Action = "defaulted"   // column default written
	ActionFixed       Action = "fixed"       // fixed column default written
	ActionUnresolved  Action = "unresolved"  // marker written
)

// Issue is a per-cell problem found while resolving.
type Issue struct {
	Severity Severity
	Code     ErrorKind
	Err      error
}

// Message returns the human readable form of the issue.
func (i *Issue) Message() string {
	if i == nil || i.Err == nil {
		return ""
	}
	return i.Err.Error()
}

// Resolution is the outcome of resolving a single cell.
type Resolution struct {
	Value  string
	Action Action
	Issue  *Issue // nil when the cell resolved cleanly
}

// Resolver combines a column's type, role, default, check and ranges into one
// decision per cell. It never fails: problems surface as an Issue.
type Resolver struct {
	checks     CheckEvaluator
	unresolved string
	refYear    int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCheckEvaluator sets a custom check evaluator.
func WithCheckEvaluator(ev CheckEvaluator) ResolverOption {
	return func(r *Resolver) { r.checks = ev }
}

// WithUnresolvedMarker sets the text written into unresolved cells.
func WithUnresolvedMarker(marker string) ResolverOption {
	return func(r *Resolver) { r.unresolved = marker }
}

// WithReferenceYear pins the year two-digit dates pivot around. Without it
// the current year is used, so "1/2/45" can resolve differently from one
// year to the next.
func WithReferenceYear(year int) ResolverOption {
	return func(r *Resolver) { r.refYear = year }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		checks:     NewCheckEvaluator(),
		unresolved: DefaultUnresolvedMarker,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UnresolvedMarker returns the marker written into unresolved cells.
func (r *Resolver) UnresolvedMarker() string {
	return r.unresolved
}

// Resolve decides the output value for one raw cell of col.
func (r *Resolver) Resolve(col Column, raw string) Resolution {
	switch col.Role {
	case RoleFixed:
		return Resolution{Value: col.Default, Action: ActionFixed}
	case RoleRangeResolved:
		return r.resolveRange(col, raw)
	default:
		return r.resolvePassThrough(col, raw)
	}
}

// resolvePassThrough keeps valid values and defaults the rest with a warning.
func (r *Resolver) resolvePassThrough(col Column, raw string) Resolution {
	if _, err := r.coerce(col, raw); err != nil {
		return Resolution{
			Value:  col.Default,
			Action: ActionDefaulted,
			Issue: &Issue{
				Severity: SeverityWarning,
				Code:     KindCoercionFailure,
				Err:      fmt.Errorf("column %q: %w; using default %q", col.Name, err, col.Default),
			},
		}
	}
	return Resolution{Value: raw, Action: ActionKept}
}

// resolveRange applies the range → default → raw → unresolved fallback.
func (r *Resolver) resolveRange(col Column, raw string) Resolution {
	v, err := r.coerce(col, raw)
	if err != nil {
		if col.HasDefault() {
			return Resolution{
				Value:  col.Default,
				Action: ActionDefaulted,
				Issue: &Issue{
					Severity: SeverityWarning,
					Code:     KindCoercionFailure,
					Err:      fmt.Errorf("column %q: %w; using default %q", col.Name, err, col.Default),
				},
			}
		}
		return Resolution{
			Value:  r.unresolved,
			Action: ActionUnresolved,
			Issue: &Issue{
				Severity: SeverityError,
				Code:     KindUnresolvedCell,
				Err:      fmt.Errorf("column %q: %w: %w and no default", col.Name, ErrUnresolvedCell, err),
			},
		}
	}

	if sub, ok := matchValue(col.Ranges, v, r.refYear); ok {
		return Resolution{Value: sub, Action: ActionSubstituted}
	}

	if col.HasDefault() {
		return Resolution{
			Value:  col.Default,
			Action: ActionDefaulted,
			Issue: &Issue{
				Severity: SeverityError,
				Code:     KindRangeMiss,
				Err:      fmt.Errorf("column %q: value %q matches no range; using default %q", col.Name, raw, col.Default),
			},
		}
	}
	return Resolution{
		Value:  raw,
		Action: ActionKept,
		Issue: &Issue{
			Severity: SeverityWarning,
			Code:     KindRangeMiss,
			Err:      fmt.Errorf("column %q: value %q matches no range; keeping raw value", col.Name, raw),
		},
	}
}

// coerce parses raw under the column type and applies the column check.
func (r *Resolver) coerce(col Column, raw string) (Value, error) {
	v, err := CoerceAt(col.Type, raw, r.refYear)
	if err != nil {
		return Value{}, err
	}
	if col.Check == "" {
		return v, nil
	}
	ok, err := r.checks.Check(col.Check, v.Native(), raw)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}
	if !ok {
		return Value{}, fmt.Errorf("%w: %q does not satisfy %s", ErrCheckFailed, raw, col.Check)
	}
	return v, nil
}

// IsUnresolved reports whether err marks an unresolved cell.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedCell)
}
