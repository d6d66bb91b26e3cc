package xltransform

// row.go resolves a whole row against a template.
//
// Every column is always resolved, even after an earlier column produced an
// error: a report that stops at the first bad cell hides the rest of the row.
// The resolved row has exactly one value per template column, in position
// order; output column i+1 holds the i-th column by position.

import "fmt"

// ProcessRow resolves raw (the input row's cell texts, first cell = column A)
// against tmpl. row is the 1-based sheet row used for notification context.
// Cells missing at the end of raw are treated as empty text.
func (r *Resolver) ProcessRow(tmpl *Template, row int, raw []string) ([]string, []Notification) {
	cols := tmpl.OrderedColumns()
	out := make([]string, len(cols))
	var notes []Notification

	for i, col := range cols {
		cell := CellAddress(i+1, row)

		src, err := col.SourceColumn()
		if err != nil {
			out[i] = r.unresolved
			notes = append(notes, Notification{
				Severity:   SeverityError,
				Type:       NoteCell,
				Code:       KindInvalidAddress,
				Message:    fmt.Sprintf("column %q: source %q: %v", col.Name, col.Source, err),
				Row:        row,
				Column:     col.Position,
				ColumnName: col.Name,
				Cell:       cell,
			})
			continue
		}

		res := r.Resolve(col, cellAt(raw, src))
		out[i] = res.Value
		if res.Issue != nil {
			notes = append(notes, Notification{
				Severity:   res.Issue.Severity,
				Type:       NoteCell,
				Code:       res.Issue.Code,
				Message:    res.Issue.Message(),
				Row:        row,
				Column:     col.Position,
				ColumnName: col.Name,
				Cell:       cell,
			})
		}
	}

	return out, notes
}

// cellAt returns the 1-based column col of raw, or "" past the end.
func cellAt(raw []string, col int) string {
	if col < 1 || col > len(raw) {
		return ""
	}
	return raw[col-1]
}
