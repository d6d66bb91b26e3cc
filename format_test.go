package xltransform

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAutoFit(t *testing.T) {
	in := writeWorkbook(t, [][]any{{"id", "score"}, {1, 30}})
	tmpl := scoresTemplate()
	tmpl.Columns[0].Ranges[0].Value = strings.Repeat("x", 100)
	out := filepath.Join(t.TempDir(), "out.xlsx")

	outcome := ProcessFile(context.Background(), in, out, tmpl, WithPreWrite(AutoFit(true)))
	require.NoError(t, outcome.Err())

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	w, err := f.GetColWidth("Sheet1", "A")
	require.NoError(t, err)
	assert.InDelta(t, float64(minColumnWidth), w, 0.5)
	w, err = f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	assert.InDelta(t, float64(maxColumnWidth), w, 0.5)

	panes, err := f.GetPanes("Sheet1")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestAutoFit_IgnoresCSV(t *testing.T) {
	assert.NoError(t, AutoFit(true)(NewCSVSink()))
}
