package xltransform

import (
	"fmt"
	"strings"
)

// Describe returns a human-readable tree of a template: its columns in
// position order with their role, type, source and ranges. Useful for
// debugging templates before running them.
func Describe(t *Template) string {
	var b strings.Builder
	if t == nil {
		b.WriteString("Template: <nil>\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Template: %s", t.Name)
	if t.ID != 0 {
		fmt.Fprintf(&b, " (id %d)", t.ID)
	}
	b.WriteByte('\n')
	if t.Description != "" {
		fmt.Fprintf(&b, "  %s\n", t.Description)
	}

	for i, c := range t.OrderedColumns() {
		describeColumn(&b, i+1, c)
	}
	return b.String()
}

// describeColumn writes one column line, then one line per range.
func describeColumn(b *strings.Builder, outCol int, c Column) {
	letters, err := ColumnNumberToLetters(outCol)
	if err != nil {
		letters = "?"
	}
	fmt.Fprintf(b, "  %s %s [%s, %s]", letters, c.Label(), c.Type, c.Role)
	if c.Label() != c.Name && c.Name != "" {
		fmt.Fprintf(b, " name=%s", c.Name)
	}
	if c.Source != "" {
		fmt.Fprintf(b, " source=%s", strings.ToUpper(c.Source))
	}
	if c.HasDefault() {
		fmt.Fprintf(b, " default=%q", c.Default)
	}
	if c.Check != "" {
		fmt.Fprintf(b, " check=%q", c.Check)
	}
	b.WriteByte('\n')

	for _, r := range c.Ranges {
		fmt.Fprintf(b, "    %s .. %s -> %q\n", bound(r.From, "-inf"), bound(r.To, "+inf"), r.Value)
	}
}

func bound(text, open string) string {
	if text == "" {
		return open
	}
	return text
}
