package xltransform

import "fmt"

// MatchRange returns the substitute value of the first range that contains
// raw under dt. Bounds are inclusive; an empty bound is open on that side.
//
// matched is false when no range contains the value. A raw value that does
// not coerce under dt is reported through err (wrapping ErrCoercion), which is
// a different condition from no match.
func MatchRange(ranges []Range, raw string, dt DataType) (value string, matched bool, err error) {
	v, err := Coerce(dt, raw)
	if err != nil {
		return "", false, err
	}
	value, matched = matchValue(ranges, v, 0)
	return value, matched, nil
}

// matchValue runs the first-match scan for an already coerced value. Bounds
// are coerced with the same reference year as the value.
func matchValue(ranges []Range, v Value, referenceYear int) (string, bool) {
	for _, r := range ranges {
		ok, err := rangeContains(r, v, referenceYear)
		if err != nil {
			// Malformed bounds never match; ValidateTemplate reports them.
			continue
		}
		if ok {
			return r.Value, true
		}
	}
	return "", false
}

// rangeContains reports whether from <= v <= to.
func rangeContains(r Range, v Value, referenceYear int) (bool, error) {
	if r.From != "" {
		from, err := CoerceAt(v.Type, r.From, referenceYear)
		if err != nil {
			return false, fmt.Errorf("range lower bound: %w", err)
		}
		if v.Compare(from) < 0 {
			return false, nil
		}
	}
	if r.To != "" {
		to, err := CoerceAt(v.Type, r.To, referenceYear)
		if err != nil {
			return false, fmt.Errorf("range upper bound: %w", err)
		}
		if v.Compare(to) > 0 {
			return false, nil
		}
	}
	return true, nil
}
