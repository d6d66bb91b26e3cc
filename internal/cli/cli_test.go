package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const templatesYAML = `templates:
  - name: bands
    columns:
      - position: 1
        name: id
        type: integer
        role: pass-through
      - position: 2
        name: score
        type: decimal
        role: range-resolved
        default: unknown
        ranges:
          - {from: "0", to: "50", value: low}
          - {from: "50.01", to: "100", value: high}
  - name: broken
    columns:
      - position: 1
        name: a
      - position: 1
        name: b
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_OK(t *testing.T) {
	tf := writeFile(t, "t.yaml", templatesYAML)
	out, err := execute(t, "validate", "-f", tf, "-n", "bands")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestValidate_ReportsErrors(t *testing.T) {
	tf := writeFile(t, "t.yaml", templatesYAML)
	out, err := execute(t, "validate", "-f", tf, "-n", "broken")
	require.Error(t, err)
	assert.Contains(t, out, "duplicate position 1")
}

func TestDescribe(t *testing.T) {
	tf := writeFile(t, "t.yaml", templatesYAML)
	out, err := execute(t, "describe", "-f", tf)
	require.NoError(t, err)
	assert.Contains(t, out, "Template: bands")
	assert.Contains(t, out, `0 .. 50 -> "low"`)
}

func TestDescribe_MissingTemplateFlag(t *testing.T) {
	_, err := execute(t, "describe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--template-file")
}

func TestRun(t *testing.T) {
	tf := writeFile(t, "t.yaml", templatesYAML)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ID", "Score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, 12.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{2, "n/a"}))
	in := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, f.SaveAs(in))
	outPath := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := execute(t, "run", "-f", tf, in, outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+outPath+" (1 warnings, 0 errors)")
	assert.Contains(t, out, "[WARN] row 3 score (B3)")

	res, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer res.Close()
	rows, err := res.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "score"}, {"1", "low"}, {"2", "unknown"}}, rows)
}

func TestRun_ArgCount(t *testing.T) {
	_, err := execute(t, "run", "only-one")
	require.Error(t, err)
}

func TestImport_NeedsDatabase(t *testing.T) {
	tf := writeFile(t, "t.yaml", templatesYAML)
	_, err := execute(t, "import", tf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestExport_EmptyMemoryStore(t *testing.T) {
	out, err := execute(t, "export", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"templates": []`)
}
