package xltransform

// coerce.go turns raw cell text into comparable values, one total order per
// data type:
//
//   - text: whitespace-trimmed, byte-wise lexicographic
//   - integer, decimal: exact rationals after stripping currency symbols,
//     thousands separators and accounting parentheses
//   - date: calendar instants parsed from a fixed list of layouts
//   - bool: false < true
//
// Range bounds and cell values go through the same functions so a bound and a
// value always compare under identical rules.

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// now supplies the reference year when no fixed one is given.
var now = time.Now

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "1-2-06", "1.2.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006", "1-2-2006", "1.2.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
		"20060102",
	}
)

// Value is a raw cell value coerced under a data type.
type Value struct {
	Type DataType
	text string
	num  *big.Rat
	when time.Time
	flag bool
}

// Coerce parses raw under dt. Failures wrap ErrCoercion. Two-digit years
// pivot around the current year; see CoerceAt.
func Coerce(dt DataType, raw string) (Value, error) {
	return CoerceAt(dt, raw, 0)
}

// CoerceAt is Coerce with a fixed reference year for two-digit year
// pivoting, so the same input parses the same way on every run. A
// referenceYear of zero or less uses the current year.
func CoerceAt(dt DataType, raw string, referenceYear int) (Value, error) {
	switch dt {
	case TypeText:
		return Value{Type: dt, text: strings.TrimSpace(raw)}, nil
	case TypeInteger, TypeDecimal:
		r, ok := parseNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrCoercion, raw)
		}
		if dt == TypeInteger && !r.IsInt() {
			return Value{}, fmt.Errorf("%w: %q is not an integer", ErrCoercion, raw)
		}
		return Value{Type: dt, num: r}, nil
	case TypeDate:
		t, ok := parseDate(raw, referenceYear)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q is not a date", ErrCoercion, raw)
		}
		return Value{Type: dt, when: t}, nil
	case TypeBool:
		b, ok := parseBool(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrCoercion, raw)
		}
		return Value{Type: dt, flag: b}, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown data type %q", ErrCoercion, dt)
	}
}

// Compare returns -1, 0 or +1. Both values must share a data type.
func (v Value) Compare(o Value) int {
	switch v.Type {
	case TypeInteger, TypeDecimal:
		return v.num.Cmp(o.num)
	case TypeDate:
		return v.when.Compare(o.when)
	case TypeBool:
		switch {
		case v.flag == o.flag:
			return 0
		case !v.flag:
			return -1
		default:
			return 1
		}
	default:
		return strings.Compare(v.text, o.text)
	}
}

// Native returns the value as a plain Go value for expression evaluation.
func (v Value) Native() any {
	switch v.Type {
	case TypeInteger:
		if v.num.Num().IsInt64() {
			return v.num.Num().Int64()
		}
		f, _ := v.num.Float64()
		return f
	case TypeDecimal:
		f, _ := v.num.Float64()
		return f
	case TypeDate:
		return v.when
	case TypeBool:
		return v.flag
	default:
		return v.text
	}
}

// String formats the value in a canonical form for its type.
func (v Value) String() string {
	switch v.Type {
	case TypeInteger:
		return v.num.Num().String()
	case TypeDecimal:
		return v.num.FloatString(decimalPlaces(v.num))
	case TypeDate:
		return v.when.Format("2006-01-02")
	case TypeBool:
		if v.flag {
			return "true"
		}
		return "false"
	default:
		return v.text
	}
}

// Coerces reports whether raw parses under dt.
func Coerces(dt DataType, raw string) bool {
	_, err := Coerce(dt, raw)
	return err == nil
}

// CleanCell removes common spreadsheet export artifacts from a cell value:
// surrounding whitespace, the Excel ="..." text prefix and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// maxExponent bounds scientific notation so a hostile cell cannot force a
// huge rational.
const maxExponent = 400

// parseNumber handles currency symbols, thousands separators, and accounting
// format (parentheses for negative).
func parseNumber(s string) (*big.Rat, bool) {
	s = CleanCell(s)
	if s == "" {
		return nil, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			return nil, false
		}
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return nil, false
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(s[i+1:])
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return nil, false
		}
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return r, true
}

// parseDate tries 4-digit year layouts first (unambiguous), then 2-digit year
// layouts with pivot year adjustment relative to referenceYear.
func parseDate(s string, referenceYear int) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}

	if referenceYear <= 0 {
		referenceYear = now().Year()
	}
	pivotYear := referenceYear + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// parseBool accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// decimalPlaces returns how many fractional digits print r exactly, capped
// for non-terminating values.
func decimalPlaces(r *big.Rat) int {
	const maxPlaces = 20
	if r.IsInt() {
		return 0
	}
	d := new(big.Int).Set(r.Denom())
	rem := new(big.Int)
	count := func(p int64) int {
		n := 0
		bp := big.NewInt(p)
		for rem.Mod(d, bp).Sign() == 0 {
			d.Quo(d, bp)
			n++
		}
		return n
	}
	places := max(count(2), count(5))
	if d.Cmp(big.NewInt(1)) != 0 || places > maxPlaces {
		return maxPlaces
	}
	return places
}
