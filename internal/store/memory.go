package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/javajack/xltransform"
)

// Memory is a Store kept in process memory. Templates are copied on the way
// in and out, so callers never share state with the store.
type Memory struct {
	mu  sync.RWMutex
	cat *xltransform.Catalog
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cat: xltransform.NewCatalog()}
}

// Load implements xltransform.TemplateStore.
func (m *Memory) Load(_ context.Context, id xltransform.TemplateID) (*xltransform.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.cat.Template(id)
	if !ok {
		return nil, fmt.Errorf("load template %d: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, t *xltransform.Template) (xltransform.TemplateID, error) {
	if t == nil {
		return 0, fmt.Errorf("save template: nil template")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := t.Clone()
	if c.ID != 0 {
		m.cat.Remove(c.ID)
	}
	id, err := m.cat.Add(c)
	if err != nil {
		return 0, fmt.Errorf("save template %q: %w", t.Name, err)
	}
	return id, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context) ([]*xltransform.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.cat.Templates()
	out := make([]*xltransform.Template, 0, len(all))
	for _, t := range all {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *xltransform.Template) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, id xltransform.TemplateID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cat.Remove(id) {
		return fmt.Errorf("delete template %d: %w", id, ErrNotFound)
	}
	return nil
}
