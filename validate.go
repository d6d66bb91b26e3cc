package xltransform

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationIssue represents a single problem found during template validation.
type ValidationIssue struct {
	Severity   Severity
	Column     int    // column position; 0 for template-level issues
	ColumnName string
	Range      int // 1-based index into the column's ranges; 0 when not range specific
	Message    string
}

// String formats the issue as "[ERROR] Amount range 2: message" or "[WARN] template: ...".
func (v ValidationIssue) String() string {
	where := "template"
	if v.Column != 0 || v.ColumnName != "" {
		where = v.ColumnName
		if where == "" {
			where = fmt.Sprintf("column %d", v.Column)
		}
	}
	if v.Range > 0 {
		where += fmt.Sprintf(" range %d", v.Range)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Severity, where, v.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// issuesError joins the error-severity issues into one error.
func issuesError(issues []ValidationIssue) error {
	var msgs []string
	for _, i := range issues {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.String())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ValidateTemplate checks a template for structural problems without reading
// any input. Errors make a run abort with a configuration error; warnings
// flag templates that run but probably do not do what was intended.
func ValidateTemplate(t *Template) []ValidationIssue {
	if t == nil {
		return []ValidationIssue{{Severity: SeverityError, Message: "template is nil"}}
	}
	if len(t.Columns) == 0 {
		return []ValidationIssue{{Severity: SeverityError, Message: "template has no columns"}}
	}

	var issues []ValidationIssue
	seen := make(map[int]string, len(t.Columns))
	for _, c := range t.OrderedColumns() {
		if prev, dup := seen[c.Position]; dup {
			issues = append(issues, ValidationIssue{
				Severity:   SeverityError,
				Column:     c.Position,
				ColumnName: c.Name,
				Message:    fmt.Sprintf("duplicate position %d (also used by %q)", c.Position, prev),
			})
		}
		seen[c.Position] = c.Name
		issues = append(issues, validateColumn(c)...)
	}
	return issues
}

func validateColumn(c Column) []ValidationIssue {
	var issues []ValidationIssue
	add := func(sev Severity, format string, args ...any) {
		issues = append(issues, ValidationIssue{
			Severity:   sev,
			Column:     c.Position,
			ColumnName: c.Name,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	if c.Position < 1 {
		add(SeverityError, "position %d must be at least 1", c.Position)
	}
	if c.Name == "" {
		add(SeverityWarning, "column has no name")
	}
	if !c.Type.Valid() {
		add(SeverityError, "unknown data type %q", c.Type)
	}
	if !c.Role.Valid() {
		add(SeverityError, "unknown role %q", c.Role)
	}
	if c.Source != "" {
		if _, err := ColumnLettersToNumber(c.Source); err != nil {
			add(SeverityError, "invalid source column %q: %v", c.Source, err)
		}
	}
	if c.Check != "" {
		if _, err := compileCheck(c.Check); err != nil {
			add(SeverityError, "invalid check expression %q: %v", c.Check, err)
		}
	}

	switch c.Role {
	case RoleFixed:
		if !c.HasDefault() {
			add(SeverityWarning, "fixed column has no default and always writes empty text")
		}
	case RoleRangeResolved:
		if len(c.Ranges) == 0 {
			add(SeverityWarning, "range-resolved column has no ranges")
		}
	}
	if len(c.Ranges) > 0 && c.Role != RoleRangeResolved && c.Role.Valid() {
		add(SeverityWarning, "%d ranges are ignored for role %q", len(c.Ranges), c.Role)
	}

	if c.Type.Valid() {
		issues = append(issues, validateRanges(c)...)
	}
	return issues
}

func validateRanges(c Column) []ValidationIssue {
	var issues []ValidationIssue
	add := func(sev Severity, idx int, format string, args ...any) {
		issues = append(issues, ValidationIssue{
			Severity:   sev,
			Column:     c.Position,
			ColumnName: c.Name,
			Range:      idx + 1,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	type bounds struct{ from, to string }
	first := make(map[bounds]int, len(c.Ranges))

	for i, r := range c.Ranges {
		from, fromErr := coerceBound(c.Type, r.From)
		to, toErr := coerceBound(c.Type, r.To)
		if fromErr != nil {
			add(SeverityError, i, "lower bound %q: %v", r.From, fromErr)
		}
		if toErr != nil {
			add(SeverityError, i, "upper bound %q: %v", r.To, toErr)
		}
		if fromErr == nil && toErr == nil && from != nil && to != nil && from.Compare(*to) > 0 {
			add(SeverityError, i, "lower bound %q is greater than upper bound %q", r.From, r.To)
		}

		key := bounds{r.From, r.To}
		if prev, ok := first[key]; ok {
			add(SeverityWarning, i, "shadowed by range %d with the same bounds", prev+1)
			continue
		}
		first[key] = i
	}
	return issues
}

// coerceBound parses a range bound; nil means the bound is open.
func coerceBound(dt DataType, text string) (*Value, error) {
	if text == "" {
		return nil, nil
	}
	v, err := Coerce(dt, text)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
