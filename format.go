package xltransform

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColumnWidth = 8
	maxColumnWidth = 60
)

// AutoFit returns a pre-write callback that sizes each output column to its
// longest cell and, when freezeHeader is set, freezes the first row.
// Sinks other than WorkbookSink are left untouched.
func AutoFit(freezeHeader bool) func(SheetSink) error {
	return func(s SheetSink) error {
		ws, ok := s.(*WorkbookSink)
		if !ok {
			return nil
		}
		if err := ws.autoFitColumns(); err != nil {
			return err
		}
		if freezeHeader {
			return ws.freezeFirstRow()
		}
		return nil
	}
}

func (s *WorkbookSink) autoFitColumns() error {
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("autofit %q: %w", s.sheet, err)
	}
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(cell)+2)
		}
	}
	for i, w := range widths {
		letters, err := ColumnNumberToLetters(i + 1)
		if err != nil {
			return err
		}
		w = min(max(w, minColumnWidth), maxColumnWidth)
		if err := s.file.SetColWidth(s.sheet, letters, letters, float64(w)); err != nil {
			return fmt.Errorf("autofit column %s: %w", letters, err)
		}
	}
	return nil
}

func (s *WorkbookSink) freezeFirstRow() error {
	return s.file.SetPanes(s.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
