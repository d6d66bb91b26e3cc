package xltransform

import (
	"fmt"
	"slices"
	"sort"
)

// TemplateID identifies a Template inside a Catalog or a store.
type TemplateID int64

// ColumnID identifies a Column.
type ColumnID int64

// RangeID identifies a Range.
type RangeID int64

// DataType governs how raw cell text is parsed and how range bounds compare.
type DataType string

const (
	TypeText    DataType = "text"
	TypeInteger DataType = "integer"
	TypeDecimal DataType = "decimal"
	TypeDate    DataType = "date"
	TypeBool    DataType = "bool"
)

// Valid reports whether dt is a known data type.
func (dt DataType) Valid() bool {
	switch dt {
	case TypeText, TypeInteger, TypeDecimal, TypeDate, TypeBool:
		return true
	}
	return false
}

// IsNumeric reports whether dt compares as a number.
func (dt DataType) IsNumeric() bool {
	return dt == TypeInteger || dt == TypeDecimal
}

// ColumnRole selects how a column's cells are resolved.
type ColumnRole string

const (
	// RolePassThrough keeps the raw value when it coerces, otherwise the default.
	RolePassThrough ColumnRole = "pass-through"
	// RoleFixed always writes the column default and ignores the input.
	RoleFixed ColumnRole = "fixed"
	// RoleRangeResolved consults ranges, then the default, then the raw value.
	RoleRangeResolved ColumnRole = "range-resolved"
)

// Valid reports whether r is a known column role.
func (r ColumnRole) Valid() bool {
	switch r {
	case RolePassThrough, RoleFixed, RoleRangeResolved:
		return true
	}
	return false
}

// Range is an inclusive interval over a column's data type with the value
// that replaces any cell falling inside it. An empty bound is open-ended.
type Range struct {
	ID       RangeID
	ColumnID ColumnID
	From     string
	To       string
	Value    string
}

// Column is one field definition within a template.
type Column struct {
	ID          ColumnID
	TemplateID  TemplateID
	Position    int // 1-based, unique within the template
	Name        string
	DisplayName string
	Type        DataType
	Role        ColumnRole
	Default     string
	Source      string // input column letters; empty reads the column at Position
	Check       string // optional boolean expression over value/raw
	Ranges      []Range
}

// HasDefault reports whether the column carries an explicit default.
func (c Column) HasDefault() bool {
	return c.Default != ""
}

// Label returns the display name, falling back to the name.
func (c Column) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// SourceColumn returns the 1-based input column the raw value is read from.
func (c Column) SourceColumn() (int, error) {
	if c.Source == "" {
		return c.Position, nil
	}
	return ColumnLettersToNumber(c.Source)
}

// Template is a named, ordered set of column definitions.
type Template struct {
	ID          TemplateID
	Name        string
	Description string
	Columns     []Column
}

// Clone returns a deep copy so a run can hold it without observing later edits.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	out.Columns = make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		c.Ranges = slices.Clone(c.Ranges)
		out.Columns[i] = c
	}
	return &out
}

// OrderedColumns returns the columns sorted by position.
func (t *Template) OrderedColumns() []Column {
	cols := slices.Clone(t.Columns)
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].Position < cols[j].Position
	})
	return cols
}

// Column returns the column at the given position.
func (t *Template) Column(position int) (Column, bool) {
	for _, c := range t.Columns {
		if c.Position == position {
			return c, true
		}
	}
	return Column{}, false
}

// Catalog owns templates by id. Columns and ranges live inside their owning
// template; the owner of a column is found by id lookup.
type Catalog struct {
	templates map[TemplateID]*Template
	order     []TemplateID
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{templates: make(map[TemplateID]*Template)}
}

// Add stores a template, assigning ids to the template, its columns and
// ranges when they are zero. Child TemplateID/ColumnID fields are set to
// their owners.
func (c *Catalog) Add(t *Template) (TemplateID, error) {
	if t == nil {
		return 0, fmt.Errorf("add template: nil template")
	}
	if t.ID == 0 {
		t.ID = c.nextTemplateID()
	}
	if _, exists := c.templates[t.ID]; exists {
		return 0, fmt.Errorf("add template: id %d already present", t.ID)
	}

	nextCol := c.maxColumnID() + 1
	nextRange := c.maxRangeID() + 1
	for _, col := range t.Columns {
		nextCol = max(nextCol, col.ID+1)
		for _, r := range col.Ranges {
			nextRange = max(nextRange, r.ID+1)
		}
	}
	for i := range t.Columns {
		col := &t.Columns[i]
		if col.ID == 0 {
			col.ID = nextCol
			nextCol++
		}
		col.TemplateID = t.ID
		for j := range col.Ranges {
			r := &col.Ranges[j]
			if r.ID == 0 {
				r.ID = nextRange
				nextRange++
			}
			r.ColumnID = col.ID
		}
	}

	c.templates[t.ID] = t
	c.order = append(c.order, t.ID)
	return t.ID, nil
}

// Remove deletes the template with the given id and reports whether it existed.
func (c *Catalog) Remove(id TemplateID) bool {
	if _, ok := c.templates[id]; !ok {
		return false
	}
	delete(c.templates, id)
	c.order = slices.DeleteFunc(c.order, func(o TemplateID) bool { return o == id })
	return true
}

// Template returns the template with the given id.
func (c *Catalog) Template(id TemplateID) (*Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// Templates returns all templates in insertion order.
func (c *Catalog) Templates() []*Template {
	out := make([]*Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

// Owner returns the template that owns the given column.
func (c *Catalog) Owner(col ColumnID) (*Template, bool) {
	for _, id := range c.order {
		t := c.templates[id]
		for _, tc := range t.Columns {
			if tc.ID == col {
				return t, true
			}
		}
	}
	return nil, false
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.order)
}

func (c *Catalog) nextTemplateID() TemplateID {
	var top TemplateID
	for id := range c.templates {
		if id > top {
			top = id
		}
	}
	return top + 1
}

func (c *Catalog) maxColumnID() ColumnID {
	var top ColumnID
	for _, t := range c.templates {
		for _, col := range t.Columns {
			if col.ID > top {
				top = col.ID
			}
		}
	}
	return top
}

func (c *Catalog) maxRangeID() RangeID {
	var top RangeID
	for _, t := range c.templates {
		for _, col := range t.Columns {
			for _, r := range col.Ranges {
				if r.ID > top {
					top = r.ID
				}
			}
		}
	}
	return top
}
