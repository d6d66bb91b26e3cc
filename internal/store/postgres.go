package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/javajack/xltransform"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to url, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, url string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Load implements xltransform.TemplateStore.
func (p *Postgres) Load(ctx context.Context, id xltransform.TemplateID) (*xltransform.Template, error) {
	return loadTemplate(ctx, p.pool, id)
}

// Save implements Store. The template row is upserted and its columns and
// ranges are replaced, all in one transaction.
func (p *Postgres) Save(ctx context.Context, t *xltransform.Template) (xltransform.TemplateID, error) {
	if t == nil {
		return 0, fmt.Errorf("save template: nil template")
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := saveTemplate(ctx, tx, t)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit template %q: %w", t.Name, err)
	}
	return id, nil
}

// List implements Store.
func (p *Postgres) List(ctx context.Context) ([]*xltransform.Template, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	out := make([]*xltransform.Template, 0, len(ids))
	for _, id := range ids {
		t, err := loadTemplate(ctx, p.pool, xltransform.TemplateID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, id xltransform.TemplateID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete template %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdatedAt returns when a template was last saved.
func (p *Postgres) UpdatedAt(ctx context.Context, id xltransform.TemplateID) (time.Time, error) {
	var ts pgtype.Timestamptz
	err := p.pool.QueryRow(ctx, `SELECT updated_at FROM templates WHERE id = $1`, int64(id)).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("template %d: %w", id, err)
	}
	return ts.Time, nil
}

func saveTemplate(ctx context.Context, db DBTX, t *xltransform.Template) (xltransform.TemplateID, error) {
	var id int64
	if t.ID == 0 {
		err := db.QueryRow(ctx,
			`INSERT INTO templates (name, description) VALUES ($1, $2) RETURNING id`,
			t.Name, t.Description).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert template %q: %w", t.Name, err)
		}
	} else {
		id = int64(t.ID)
		_, err := db.Exec(ctx,
			`INSERT INTO templates (id, name, description) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = now()`,
			id, t.Name, t.Description)
		if err != nil {
			return 0, fmt.Errorf("upsert template %d: %w", id, err)
		}
		// Explicit ids bypass the sequence; move it past them.
		_, err = db.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence('templates', 'id'), GREATEST((SELECT MAX(id) FROM templates), 1))`)
		if err != nil {
			return 0, fmt.Errorf("advance template sequence: %w", err)
		}
		if _, err := db.Exec(ctx, `DELETE FROM template_columns WHERE template_id = $1`, id); err != nil {
			return 0, fmt.Errorf("clear columns of template %d: %w", id, err)
		}
	}

	for _, c := range t.Columns {
		var colID int64
		err := db.QueryRow(ctx,
			`INSERT INTO template_columns
			   (template_id, position, name, display_name, data_type, role, default_value, source, check_expr)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			id, c.Position, c.Name, c.DisplayName, string(c.Type), string(c.Role), c.Default, c.Source, c.Check,
		).Scan(&colID)
		if err != nil {
			return 0, fmt.Errorf("insert column %q: %w", c.Name, err)
		}

		for i, r := range c.Ranges {
			_, err := db.Exec(ctx,
				`INSERT INTO column_ranges (column_id, ordinal, range_from, range_to, value)
				 VALUES ($1, $2, $3, $4, $5)`,
				colID, i+1, r.From, r.To, r.Value)
			if err != nil {
				return 0, fmt.Errorf("insert range %d of column %q: %w", i+1, c.Name, err)
			}
		}
	}
	return xltransform.TemplateID(id), nil
}

func loadTemplate(ctx context.Context, db DBTX, id xltransform.TemplateID) (*xltransform.Template, error) {
	t := &xltransform.Template{ID: id}
	err := db.QueryRow(ctx, `SELECT name, description FROM templates WHERE id = $1`, int64(id)).
		Scan(&t.Name, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load template %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load template %d: %w", id, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, position, name, display_name, data_type, role, default_value, source, check_expr
		   FROM template_columns WHERE template_id = $1 ORDER BY position, id`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("load columns of template %d: %w", id, err)
	}
	index := make(map[xltransform.ColumnID]int)
	for rows.Next() {
		var (
			c        xltransform.Column
			colID    int64
			dataType string
			role     string
		)
		if err := rows.Scan(&colID, &c.Position, &c.Name, &c.DisplayName, &dataType, &role, &c.Default, &c.Source, &c.Check); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan column of template %d: %w", id, err)
		}
		c.ID = xltransform.ColumnID(colID)
		c.TemplateID = id
		c.Type = xltransform.DataType(dataType)
		c.Role = xltransform.ColumnRole(role)
		index[c.ID] = len(t.Columns)
		t.Columns = append(t.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load columns of template %d: %w", id, err)
	}

	rows, err = db.Query(ctx,
		`SELECT r.id, r.column_id, r.range_from, r.range_to, r.value
		   FROM column_ranges r JOIN template_columns c ON c.id = r.column_id
		  WHERE c.template_id = $1 ORDER BY r.column_id, r.ordinal`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("load ranges of template %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r              xltransform.Range
			rangeID, colID int64
		)
		if err := rows.Scan(&rangeID, &colID, &r.From, &r.To, &r.Value); err != nil {
			return nil, fmt.Errorf("scan range of template %d: %w", id, err)
		}
		r.ID = xltransform.RangeID(rangeID)
		r.ColumnID = xltransform.ColumnID(colID)
		if i, ok := index[r.ColumnID]; ok {
			t.Columns[i].Ranges = append(t.Columns[i].Ranges, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ranges of template %d: %w", id, err)
	}
	return t, nil
}
