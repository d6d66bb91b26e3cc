package xltransform

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookSource implements SheetSource over an xlsx file using excelize's
// streaming row iterator. Rows are read forward; asking for an earlier row
// restarts the iterator.
type WorkbookSource struct {
	file  *excelize.File
	sheet string
	rows  *excelize.Rows
	cur   int // 1-based row the iterator is positioned on; 0 = before first
}

var _ SheetSource = (*WorkbookSource)(nil)

// OpenWorkbookSource opens an xlsx file for reading.
func OpenWorkbookSource(path string) (*WorkbookSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	return NewWorkbookSource(f), nil
}

// NewWorkbookSource wraps an already opened excelize file.
func NewWorkbookSource(f *excelize.File) *WorkbookSource {
	return &WorkbookSource{file: f}
}

// DefaultSheet returns the active sheet of the workbook.
func (s *WorkbookSource) DefaultSheet() string {
	name := s.file.GetSheetName(s.file.GetActiveSheetIndex())
	if name == "" {
		if list := s.file.GetSheetList(); len(list) > 0 {
			name = list[0]
		}
	}
	return name
}

// ReadRow returns the cell texts of the given 1-based row.
func (s *WorkbookSource) ReadRow(sheet string, row int) ([]string, error) {
	if row < 1 {
		return nil, fmt.Errorf("read row %d: %w", row, ErrInvalidAddress)
	}
	if sheet == "" {
		sheet = s.DefaultSheet()
	}
	if s.rows == nil || sheet != s.sheet || row <= s.cur {
		if err := s.restart(sheet); err != nil {
			return nil, err
		}
	}

	for s.cur < row {
		if !s.rows.Next() {
			if err := s.rows.Error(); err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
			}
			return nil, io.EOF
		}
		s.cur++
	}

	cols, err := s.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read row %d of sheet %q: %w", row, sheet, err)
	}
	return cols, nil
}

func (s *WorkbookSource) restart(sheet string) error {
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	rows, err := s.file.Rows(sheet)
	if err != nil {
		return fmt.Errorf("open rows of sheet %q: %w", sheet, err)
	}
	s.rows = rows
	s.sheet = sheet
	s.cur = 0
	return nil
}

// Close releases the row iterator and the underlying file.
func (s *WorkbookSource) Close() error {
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	return s.file.Close()
}

// WorkbookSink implements SheetSink with an in-memory excelize workbook.
// Nothing touches the filesystem until Write.
type WorkbookSink struct {
	file  *excelize.File
	sheet string
	types []DataType
}

var _ SheetSink = (*WorkbookSink)(nil)

// NewWorkbookSink creates a workbook with a single sheet named sheet.
func NewWorkbookSink(sheet string, types []DataType) (*WorkbookSink, error) {
	f := excelize.NewFile()
	if sheet == "" {
		sheet = "Sheet1"
	}
	if first := f.GetSheetName(0); first != sheet {
		if err := f.SetSheetName(first, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("name output sheet %q: %w", sheet, err)
		}
	}
	return &WorkbookSink{file: f, sheet: sheet, types: types}, nil
}

// WriteRow writes values starting at column A of the given row. Numeric and
// boolean columns are written as typed cells when the value is a plain
// literal; anything else is written as text.
func (s *WorkbookSink) WriteRow(sheet string, row int, values []string) error {
	if sheet == "" {
		sheet = s.sheet
	}
	if _, err := s.file.GetSheetIndex(sheet); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = s.typedValue(i, v)
	}
	start := CellAddress(1, row)
	if err := s.file.SetSheetRow(sheet, start, &cells); err != nil {
		return fmt.Errorf("write row %d of sheet %q: %w", row, sheet, err)
	}
	return nil
}

// WriteHeader writes text labels at the given row without typing them.
func (s *WorkbookSink) WriteHeader(sheet string, row int, labels []string) error {
	if sheet == "" {
		sheet = s.sheet
	}
	cells := make([]any, len(labels))
	for i, l := range labels {
		cells[i] = l
	}
	return s.file.SetSheetRow(sheet, CellAddress(1, row), &cells)
}

func (s *WorkbookSink) typedValue(i int, v string) any {
	if i >= len(s.types) || v == "" {
		return v
	}
	plain := strings.TrimSpace(v)
	switch s.types[i] {
	case TypeInteger:
		if n, err := strconv.ParseInt(plain, 10, 64); err == nil {
			return n
		}
	case TypeDecimal:
		if f, err := strconv.ParseFloat(plain, 64); err == nil {
			return f
		}
	case TypeBool:
		if b, err := strconv.ParseBool(plain); err == nil {
			return b
		}
	}
	return v
}

// Write serializes the workbook to w.
func (s *WorkbookSink) Write(w io.Writer) error {
	return s.file.Write(w)
}

// Close closes the underlying excelize file.
func (s *WorkbookSink) Close() error {
	return s.file.Close()
}

// File returns the underlying excelize file for advanced operations.
func (s *WorkbookSink) File() *excelize.File {
	return s.file
}
