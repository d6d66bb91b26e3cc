package xltransform

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource implements SheetSource over a single CSV file. The file is read
// forward once; the sheet argument of ReadRow is ignored.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
	name   string
	cur    int
	last   []string

	line   int      // last input line consumed by a record
	blanks int      // blank lines still to hand out before held
	held   []string // record read ahead while blank lines are pending
}

var _ SheetSource = (*CSVSource)(nil)

// OpenCSVSource opens a CSV file for reading.
func OpenCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %q: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &CSVSource{file: f, reader: newCSVReader(f), name: name}, nil
}

// NewCSVSource reads CSV records from r.
func NewCSVSource(name string, r io.Reader) *CSVSource {
	return &CSVSource{reader: newCSVReader(r), name: name}
}

// newCSVReader skips a leading UTF-8 BOM and tolerates ragged rows.
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}

// DefaultSheet returns the file name without extension.
func (s *CSVSource) DefaultSheet() string {
	return s.name
}

// ReadRow returns the record at the 1-based row. Blank lines count as empty
// rows, as they do in a worksheet. Rows must be requested in non-decreasing
// order; re-reading the current row is allowed.
func (s *CSVSource) ReadRow(_ string, row int) ([]string, error) {
	if row < 1 {
		return nil, fmt.Errorf("read row %d: %w", row, ErrInvalidAddress)
	}
	if row < s.cur {
		return nil, fmt.Errorf("read row %d: csv source already at row %d", row, s.cur)
	}
	for s.cur < row {
		rec, err := s.next()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", s.cur+1, err)
		}
		s.cur++
		s.last = rec
	}
	return s.last, nil
}

// next returns the next row. encoding/csv drops blank lines, so the gap
// between one record's last line and the next record's first line is
// replayed as empty rows. Blank lines at the end of the file are dropped.
func (s *CSVSource) next() ([]string, error) {
	if s.blanks > 0 {
		s.blanks--
		return []string{}, nil
	}
	if s.held != nil {
		rec := s.held
		s.held = nil
		return rec, nil
	}

	rec, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	start, _ := s.reader.FieldPos(0)
	last := len(rec) - 1
	end, _ := s.reader.FieldPos(last)
	end += strings.Count(rec[last], "\n")

	gap := start - s.line - 1
	s.line = end
	rec = sanitizeRecord(rec)
	if gap > 0 {
		s.blanks = gap - 1
		s.held = rec
		return []string{}, nil
	}
	return rec, nil
}

// Close closes the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func sanitizeRecord(rec []string) []string {
	for i, v := range rec {
		if !utf8.ValidString(v) {
			rec[i] = strings.ToValidUTF8(v, "�")
		}
	}
	return rec
}

// CSVSink implements SheetSink by buffering rows and writing them as CSV.
// Gaps between written rows become empty records.
type CSVSink struct {
	rows [][]string
}

var _ SheetSink = (*CSVSink)(nil)

// NewCSVSink creates an empty CSV sink.
func NewCSVSink() *CSVSink {
	return &CSVSink{}
}

// WriteRow stores values at the 1-based row.
func (s *CSVSink) WriteRow(_ string, row int, values []string) error {
	if row < 1 {
		return fmt.Errorf("write row %d: %w", row, ErrInvalidAddress)
	}
	for len(s.rows) < row {
		s.rows = append(s.rows, nil)
	}
	s.rows[row-1] = append([]string(nil), values...)
	return nil
}

// Write serializes all rows to w.
func (s *CSVSink) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	for _, rec := range s.rows {
		if rec == nil {
			rec = []string{}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Close is a no-op.
func (s *CSVSink) Close() error {
	return nil
}
