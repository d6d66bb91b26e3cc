package xltransform

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// bandsTemplate is the canonical one-column template: integer scores mapped
// to bands with "unknown" as default.
func bandsTemplate() *Template {
	return &Template{
		ID:   1,
		Name: "bands",
		Columns: []Column{{
			ID:       1,
			Position: 1,
			Name:     "score",
			Type:     TypeInteger,
			Role:     RoleRangeResolved,
			Default:  "unknown",
			Ranges: []Range{
				{From: "0", To: "50", Value: "low"},
				{From: "51", To: "100", Value: "high"},
			},
		}},
	}
}

// writeWorkbook saves rows to a new xlsx file in a temp dir. The first row
// is usually a header.
func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", CellAddress(1, i+1), &r))
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// readWorkbook returns all rows of the first sheet.
func readWorkbook(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

// memIO is an in-memory SheetIO double.
type memIO struct {
	rows      map[string][][]string // input path → rows
	written   map[int][]string
	openErr   error
	writeErr  error
	readErr   error
	readErrAt int
}

func (m *memIO) OpenSource(path string) (SheetSource, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	rows, ok := m.rows[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return &memSource{io: m, rows: rows}, nil
}

func (m *memIO) NewSink(_, _ string, _ []DataType) (SheetSink, error) {
	m.written = make(map[int][]string)
	return &memSink{io: m}, nil
}

type memSource struct {
	io   *memIO
	rows [][]string
}

func (s *memSource) ReadRow(_ string, row int) ([]string, error) {
	if s.io.readErr != nil && row == s.io.readErrAt {
		return nil, s.io.readErr
	}
	if row > len(s.rows) {
		return nil, io.EOF
	}
	return s.rows[row-1], nil
}

func (s *memSource) DefaultSheet() string { return "Sheet1" }
func (s *memSource) Close() error         { return nil }

type memSink struct {
	io *memIO
}

func (s *memSink) WriteRow(_ string, row int, values []string) error {
	if s.io.writeErr != nil {
		return s.io.writeErr
	}
	s.io.written[row] = append([]string(nil), values...)
	return nil
}

func (s *memSink) Write(w io.Writer) error {
	_, err := w.Write([]byte("mem"))
	return err
}

func (s *memSink) Close() error { return nil }
