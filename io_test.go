package xltransform

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookSource_ReadRow(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"a", "b"}, {1, 2}, {3}})
	src, err := OpenWorkbookSource(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, "Sheet1", src.DefaultSheet())

	row, err := src.ReadRow("", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, row)

	row, err = src.ReadRow("Sheet1", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, row)

	// Going back restarts the iterator.
	row, err = src.ReadRow("Sheet1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, row)

	_, err = src.ReadRow("Sheet1", 4)
	assert.ErrorIs(t, err, io.EOF)

	_, err = src.ReadRow("Sheet1", 0)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = src.ReadRow("Nope", 1)
	assert.Error(t, err)
}

func TestWorkbookSource_ActiveSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	idx, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Data", "A1", "x"))
	f.SetActiveSheet(idx)

	src := NewWorkbookSource(f)
	assert.Equal(t, "Data", src.DefaultSheet())
	row, err := src.ReadRow("", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, row)
}

func TestOpenWorkbookSource_Missing(t *testing.T) {
	_, err := OpenWorkbookSource(filepath.Join(t.TempDir(), "none.xlsx"))
	assert.Error(t, err)
}

func TestWorkbookSink_TypedCells(t *testing.T) {
	sink, err := NewWorkbookSink("Out", []DataType{TypeInteger, TypeDecimal, TypeBool, TypeText, TypeInteger})
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.WriteHeader("", 1, []string{"n", "d", "b", "t", "x"}))
	require.NoError(t, sink.WriteRow("", 2, []string{"42", "2.5", "true", "007", "$5"}))
	assert.Error(t, sink.WriteRow("Missing", 3, []string{"1"}))

	f := sink.File()
	assert.Equal(t, "Out", f.GetSheetName(0))

	numType, err := f.GetCellType("Out", "A2")
	require.NoError(t, err)
	textType, err := f.GetCellType("Out", "D2")
	require.NoError(t, err)
	assert.NotEqual(t, textType, numType)

	typ, err := f.GetCellType("Out", "C2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeBool, typ)

	// Text columns and non-literal numbers stay text.
	v, err := f.GetCellValue("Out", "D2")
	require.NoError(t, err)
	assert.Equal(t, "007", v)
	v, err = f.GetCellValue("Out", "E2")
	require.NoError(t, err)
	assert.Equal(t, "$5", v)

	var buf bytes.Buffer
	require.NoError(t, sink.Write(&buf))
	out, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer out.Close()
	rows, err := out.GetRows("Out")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"n", "d", "b", "t", "x"}, {"42", "2.5", "TRUE", "007", "$5"}}, rows)
}

func TestCSVSource(t *testing.T) {
	src := NewCSVSource("data", strings.NewReader("\xEF\xBB\xBFa,b\n1,\"two, too\"\n3\n"))
	defer src.Close()
	assert.Equal(t, "data", src.DefaultSheet())

	row, err := src.ReadRow("", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, row, "BOM is skipped")

	row, err = src.ReadRow("", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "two, too"}, row)

	row, err = src.ReadRow("", 2)
	require.NoError(t, err, "re-reading the current row is allowed")
	assert.Equal(t, []string{"1", "two, too"}, row)

	row, err = src.ReadRow("", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, row, "ragged rows are accepted")

	_, err = src.ReadRow("", 1)
	assert.ErrorContains(t, err, "already at row 3")

	_, err = src.ReadRow("", 4)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCSVSource_BlankLinesAreRows(t *testing.T) {
	src := NewCSVSource("x", strings.NewReader("id,score\n1,30\n\n3,200\n\n\n\"multi\nline\",5\n6,7\n\n"))

	want := [][]string{
		{"id", "score"},
		{"1", "30"},
		{},
		{"3", "200"},
		{},
		{},
		{"multi\nline", "5"},
		{"6", "7"},
	}
	for i, w := range want {
		row, err := src.ReadRow("", i+1)
		require.NoError(t, err, "row %d", i+1)
		assert.Equal(t, w, row, "row %d", i+1)
	}
	_, err := src.ReadRow("", len(want)+1)
	assert.ErrorIs(t, err, io.EOF, "trailing blank lines are not rows")
}

func TestCSVSource_LeadingBlankLine(t *testing.T) {
	src := NewCSVSource("x", strings.NewReader("\na\n"))
	row, err := src.ReadRow("", 1)
	require.NoError(t, err)
	assert.Empty(t, row)
	row, err = src.ReadRow("", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, row)
}

func TestCSVSource_InvalidUTF8(t *testing.T) {
	src := NewCSVSource("x", strings.NewReader("ok,\xff\xfe\n"))
	row, err := src.ReadRow("", 1)
	require.NoError(t, err)
	assert.Equal(t, "ok", row[0])
	assert.Equal(t, "�", row[1])
}

func TestOpenCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "People.csv")
	require.NoError(t, os.WriteFile(path, []byte("name\nAda\n"), 0o644))

	src, err := OpenCSVSource(path)
	require.NoError(t, err)
	assert.Equal(t, "People", src.DefaultSheet())
	row, err := src.ReadRow("", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, row)
	require.NoError(t, src.Close())

	_, err = OpenCSVSource(filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}

func TestCSVSink(t *testing.T) {
	sink := NewCSVSink()
	require.NoError(t, sink.WriteRow("", 1, []string{"a", "b"}))
	require.NoError(t, sink.WriteRow("", 3, []string{"x", "y, z"}))
	assert.ErrorIs(t, sink.WriteRow("", 0, nil), ErrInvalidAddress)

	var buf bytes.Buffer
	require.NoError(t, sink.Write(&buf))
	assert.Equal(t, "a,b\n\nx,\"y, z\"\n", buf.String())
	assert.NoError(t, sink.Close())
}

func TestFileIO_Dispatch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\n"), 0o644))

	src, err := FileIO{}.OpenSource(csvPath)
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)
	src.Close()

	src, err = FileIO{}.OpenSource(writeWorkbook(t, [][]any{{"a"}}))
	require.NoError(t, err)
	assert.IsType(t, &WorkbookSource{}, src)
	src.Close()

	sink, err := FileIO{}.NewSink("out.csv", "x", nil)
	require.NoError(t, err)
	assert.IsType(t, &CSVSink{}, sink)

	sink, err = FileIO{}.NewSink("out.xlsx", "x", nil)
	require.NoError(t, err)
	assert.IsType(t, &WorkbookSink{}, sink)
	sink.Close()
}
