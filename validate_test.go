package xltransform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorMessages(issues []ValidationIssue) []string {
	var out []string
	for _, i := range issues {
		if i.Severity == SeverityError {
			out = append(out, i.Message)
		}
	}
	return out
}

func TestValidate_ValidTemplate(t *testing.T) {
	issues := ValidateTemplate(scoresTemplate())
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

func TestValidate_NilAndEmpty(t *testing.T) {
	issues := ValidateTemplate(nil)
	require.Len(t, issues, 1)
	assert.Equal(t, "template is nil", issues[0].Message)

	issues = ValidateTemplate(&Template{Name: "empty"})
	require.Len(t, issues, 1)
	assert.True(t, HasErrors(issues))
	assert.Equal(t, "[ERROR] template: template has no columns", issues[0].String())
}

func TestValidate_DuplicatePosition(t *testing.T) {
	tmpl := scoresTemplate()
	tmpl.Columns[1].Position = 2

	issues := ValidateTemplate(tmpl)
	require.True(t, HasErrors(issues))
	assert.Contains(t, errorMessages(issues), `duplicate position 2 (also used by "score")`)
}

func TestValidate_ColumnErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Column)
		message string
	}{
		{"position", func(c *Column) { c.Position = 0 }, "position 0 must be at least 1"},
		{"type", func(c *Column) { c.Type = "money" }, `unknown data type "money"`},
		{"role", func(c *Column) { c.Role = "lookup" }, `unknown role "lookup"`},
		{"source", func(c *Column) { c.Source = "B2" }, `invalid source column "B2"`},
		{"check", func(c *Column) { c.Check = "value >" }, `invalid check expression "value >"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := bandsTemplate()
			tt.mutate(&tmpl.Columns[0])
			msgs := errorMessages(ValidateTemplate(tmpl))
			require.NotEmpty(t, msgs)
			assert.Contains(t, msgs[0], tt.message)
		})
	}
}

func TestValidate_RangeErrors(t *testing.T) {
	tmpl := bandsTemplate()
	tmpl.Columns[0].Ranges = []Range{
		{From: "ten", To: "20", Value: "a"},
		{From: "50", To: "10", Value: "b"},
		{From: "0", To: "x", Value: "c"},
	}
	issues := ValidateTemplate(tmpl)

	var ranged []string
	for _, i := range issues {
		if i.Range > 0 {
			ranged = append(ranged, i.String())
		}
	}
	assert.Len(t, ranged, 3)
	assert.Contains(t, ranged[0], `[ERROR] score range 1: lower bound "ten"`)
	assert.Equal(t, `[ERROR] score range 2: lower bound "50" is greater than upper bound "10"`, ranged[1])
	assert.Contains(t, ranged[2], `range 3: upper bound "x"`)
}

func TestValidate_Warnings(t *testing.T) {
	tmpl := &Template{Columns: []Column{
		{Position: 1, Type: TypeText, Role: RolePassThrough},
		{Name: "src", Position: 2, Type: TypeText, Role: RoleFixed},
		{Name: "band", Position: 3, Type: TypeInteger, Role: RoleRangeResolved},
		{Name: "plain", Position: 4, Type: TypeInteger, Role: RolePassThrough, Ranges: []Range{{From: "1", To: "2", Value: "x"}}},
		{Name: "dup", Position: 5, Type: TypeInteger, Role: RoleRangeResolved, Ranges: []Range{
			{From: "1", To: "2", Value: "x"},
			{From: "1", To: "2", Value: "y"},
		}},
	}}
	issues := ValidateTemplate(tmpl)
	assert.False(t, HasErrors(issues))

	var got []string
	for _, i := range issues {
		assert.Equal(t, SeverityWarning, i.Severity)
		got = append(got, i.String())
	}
	assert.Equal(t, []string{
		"[WARN] column 1: column has no name",
		"[WARN] src: fixed column has no default and always writes empty text",
		"[WARN] band: range-resolved column has no ranges",
		`[WARN] plain: 1 ranges are ignored for role "pass-through"`,
		"[WARN] dup range 2: shadowed by range 1 with the same bounds",
	}, got)
}

func TestValidate_OpenBounds(t *testing.T) {
	tmpl := bandsTemplate()
	tmpl.Columns[0].Ranges = []Range{{To: "0", Value: "neg"}, {From: "1", Value: "pos"}}
	assert.Empty(t, ValidateTemplate(tmpl))
}

func TestIssuesError(t *testing.T) {
	assert.NoError(t, issuesError([]ValidationIssue{{Severity: SeverityWarning, Message: "meh"}}))

	err := issuesError([]ValidationIssue{
		{Severity: SeverityError, ColumnName: "a", Column: 1, Message: "one"},
		{Severity: SeverityWarning, Message: "skip"},
		{Severity: SeverityError, Message: "two"},
	})
	require.Error(t, err)
	assert.Equal(t, "[ERROR] a: one; [ERROR] template: two", err.Error())
}
