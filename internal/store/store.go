// Package store persists templates with their columns and ranges.
//
// Two implementations share the Store interface: Memory for tests and
// single-process use, and Postgres backed by pgx.
package store

import (
	"context"
	"errors"

	"github.com/javajack/xltransform"
)

// ErrNotFound is returned when a template id is unknown.
var ErrNotFound = errors.New("template not found")

// Store loads and saves templates. Columns and ranges are always loaded
// eagerly with their template.
type Store interface {
	xltransform.TemplateStore

	// Save inserts or replaces a template and returns its id. A zero ID
	// allocates a new one.
	Save(ctx context.Context, t *xltransform.Template) (xltransform.TemplateID, error)

	// List returns all templates ordered by id.
	List(ctx context.Context) ([]*xltransform.Template, error)

	// Delete removes a template with its columns and ranges.
	Delete(ctx context.Context, id xltransform.TemplateID) error
}

// ImportCatalog saves every template of cat into s and returns the stored ids
// in catalog order.
func ImportCatalog(ctx context.Context, s Store, cat *xltransform.Catalog) ([]xltransform.TemplateID, error) {
	var ids []xltransform.TemplateID
	for _, t := range cat.Templates() {
		id, err := s.Save(ctx, t)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
