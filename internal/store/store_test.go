package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xltransform"
)

func sampleTemplate() *xltransform.Template {
	return &xltransform.Template{
		Name:        "scores",
		Description: "score bands",
		Columns: []xltransform.Column{
			{Position: 2, Name: "band", Type: xltransform.TypeInteger, Role: xltransform.RoleRangeResolved, Default: "unknown",
				Ranges: []xltransform.Range{
					{From: "0", To: "50", Value: "low"},
					{From: "51", To: "100", Value: "high"},
				}},
			{Position: 1, Name: "name", Type: xltransform.TypeText, Role: xltransform.RolePassThrough},
		},
	}
}

// exerciseStore runs the same contract checks against any Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	id, err := s.Save(ctx, sampleTemplate())
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "scores", got.Name)
	assert.Equal(t, "score bands", got.Description)
	require.Len(t, got.Columns, 2)

	band, ok := got.Column(2)
	require.True(t, ok)
	assert.Equal(t, xltransform.RoleRangeResolved, band.Role)
	assert.Equal(t, "unknown", band.Default)
	require.Len(t, band.Ranges, 2)
	assert.Equal(t, "low", band.Ranges[0].Value, "range order is preserved")
	assert.Equal(t, "high", band.Ranges[1].Value)
	assert.Equal(t, band.ID, band.Ranges[0].ColumnID)

	// Replace keeps the id and swaps the columns.
	got.Name = "scores v2"
	got.Columns = got.Columns[:1]
	id2, err := s.Save(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	again, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "scores v2", again.Name)
	assert.Len(t, again.Columns, 1)

	other, err := s.Save(ctx, &xltransform.Template{Name: "other"})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Less(t, list[0].ID, list[1].ID)

	require.NoError(t, s.Delete(ctx, other))
	_, err = s.Load(ctx, other)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, other), ErrNotFound)
}

func TestMemory_Contract(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.Save(ctx, sampleTemplate())
	require.NoError(t, err)

	a, err := m.Load(ctx, id)
	require.NoError(t, err)
	a.Columns[0].Ranges = nil
	a.Name = "mutated"

	b, err := m.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "scores", b.Name)
	assert.NotEmpty(t, b.Columns[0].Ranges)
}

func TestMemory_LoadUnknown(t *testing.T) {
	_, err := NewMemory().Load(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportCatalog(t *testing.T) {
	ctx := context.Background()
	cat := xltransform.NewCatalog()
	_, err := cat.Add(sampleTemplate())
	require.NoError(t, err)
	_, err = cat.Add(&xltransform.Template{Name: "second"})
	require.NoError(t, err)

	m := NewMemory()
	ids, err := ImportCatalog(ctx, m, cat)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	second, err := m.Load(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "second", second.Name)
}

func TestPostgres_Contract(t *testing.T) {
	url := os.Getenv("XLTRANSFORM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("XLTRANSFORM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, url, 2)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	_, err = p.pool.Exec(ctx, `TRUNCATE templates RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	exerciseStore(t, p)

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	ts, err := p.UpdatedAt(ctx, list[0].ID)
	require.NoError(t, err)
	assert.False(t, ts.IsZero())
}
