package xltransform

import (
	"io"
	"path/filepath"
	"strings"
)

// SheetSource reads rows of raw cell text from an input workbook.
type SheetSource interface {
	// ReadRow returns the cell texts of the 1-based row, first cell = column A.
	// It returns io.EOF once row is past the last row of the sheet.
	ReadRow(sheet string, row int) ([]string, error)

	// DefaultSheet returns the sheet read when the caller names none.
	DefaultSheet() string

	Close() error
}

// SheetSink collects resolved rows and serializes the output workbook.
type SheetSink interface {
	// WriteRow stores values at the 1-based row, first value = column A.
	WriteRow(sheet string, row int, values []string) error

	// Write serializes the workbook to w.
	Write(w io.Writer) error

	Close() error
}

// SheetIO opens sources and creates sinks. Implementations decide the
// physical format; the engine only relies on the row contract.
type SheetIO interface {
	OpenSource(path string) (SheetSource, error)

	// NewSink creates an empty output for path. types holds one data type per
	// output column and may be used to write typed cells.
	NewSink(path, sheet string, types []DataType) (SheetSink, error)
}

// FileIO dispatches on file extension: ".csv" files use encoding/csv,
// everything else is opened as an xlsx workbook through excelize.
type FileIO struct{}

var _ SheetIO = FileIO{}

// OpenSource implements SheetIO.
func (FileIO) OpenSource(path string) (SheetSource, error) {
	if isCSV(path) {
		return OpenCSVSource(path)
	}
	return OpenWorkbookSource(path)
}

// NewSink implements SheetIO.
func (FileIO) NewSink(path, sheet string, types []DataType) (SheetSink, error) {
	if isCSV(path) {
		return NewCSVSink(), nil
	}
	return NewWorkbookSink(sheet, types)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
