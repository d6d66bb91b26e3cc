package xltransform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Interchange is the import/export payload: an export timestamp and a list of
// templates with nested columns and ranges.
type Interchange struct {
	ExportedAt time.Time
	Templates  []TemplateDTO
}

// TemplateDTO mirrors Template on the wire.
type TemplateDTO struct {
	ID          int64       `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Columns     []ColumnDTO `yaml:"columns" json:"columns"`
}

// ColumnDTO mirrors Column on the wire.
type ColumnDTO struct {
	ID          int64      `yaml:"id,omitempty" json:"id,omitempty"`
	Position    int        `yaml:"position" json:"position"`
	Name        string     `yaml:"name" json:"name"`
	DisplayName string     `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Type        string     `yaml:"type" json:"type"`
	Role        string     `yaml:"role" json:"role"`
	Default     string     `yaml:"default,omitempty" json:"default,omitempty"`
	Source      string     `yaml:"source,omitempty" json:"source,omitempty"`
	Check       string     `yaml:"check,omitempty" json:"check,omitempty"`
	Ranges      []RangeDTO `yaml:"ranges,omitempty" json:"ranges,omitempty"`
}

// RangeDTO mirrors Range on the wire.
type RangeDTO struct {
	ID    int64  `yaml:"id,omitempty" json:"id,omitempty"`
	From  string `yaml:"from" json:"from"`
	To    string `yaml:"to" json:"to"`
	Value string `yaml:"value" json:"value"`
}

// interchangeDoc is the document shape; the timestamp stays text so YAML and
// JSON payloads decode the same way.
type interchangeDoc struct {
	ExportedAt string        `yaml:"exported_at" json:"exported_at"`
	Templates  []TemplateDTO `yaml:"templates" json:"templates"`
}

// ParseInterchange decodes a YAML or JSON payload. Unknown fields are
// rejected; no business validation is performed.
func ParseInterchange(data []byte) (*Interchange, error) {
	var doc interchangeDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse interchange: empty payload")
		}
		return nil, fmt.Errorf("parse interchange: %w", err)
	}

	ic := &Interchange{Templates: doc.Templates}
	if s := strings.TrimSpace(doc.ExportedAt); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parse interchange: exported_at %q: %w", s, err)
		}
		ic.ExportedAt = t
	}
	return ic, nil
}

// Import maps the payload into a fresh Catalog. Only structural checks are
// made: enum text must be known, and ids must not collide. Empty type and
// role default to text and pass-through.
func Import(ic *Interchange) (*Catalog, error) {
	cat := NewCatalog()
	for i, dto := range ic.Templates {
		t, err := dto.toTemplate()
		if err != nil {
			return nil, fmt.Errorf("template %d (%q): %w", i+1, dto.Name, err)
		}
		if _, err := cat.Add(t); err != nil {
			return nil, fmt.Errorf("template %d (%q): %w", i+1, dto.Name, err)
		}
	}
	return cat, nil
}

func (dto TemplateDTO) toTemplate() (*Template, error) {
	t := &Template{
		ID:          TemplateID(dto.ID),
		Name:        dto.Name,
		Description: dto.Description,
		Columns:     make([]Column, 0, len(dto.Columns)),
	}
	for _, cd := range dto.Columns {
		dt := DataType(strings.ToLower(strings.TrimSpace(cd.Type)))
		if dt == "" {
			dt = TypeText
		}
		if !dt.Valid() {
			return nil, fmt.Errorf("column %q: unknown type %q", cd.Name, cd.Type)
		}
		role := ColumnRole(strings.ToLower(strings.TrimSpace(cd.Role)))
		if role == "" {
			role = RolePassThrough
		}
		if !role.Valid() {
			return nil, fmt.Errorf("column %q: unknown role %q", cd.Name, cd.Role)
		}

		col := Column{
			ID:          ColumnID(cd.ID),
			Position:    cd.Position,
			Name:        cd.Name,
			DisplayName: cd.DisplayName,
			Type:        dt,
			Role:        role,
			Default:     cd.Default,
			Source:      cd.Source,
			Check:       cd.Check,
		}
		for _, rd := range cd.Ranges {
			col.Ranges = append(col.Ranges, Range{
				ID:    RangeID(rd.ID),
				From:  rd.From,
				To:    rd.To,
				Value: rd.Value,
			})
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

// Export builds a payload from templates, stamped with at.
func Export(templates []*Template, at time.Time) *Interchange {
	ic := &Interchange{ExportedAt: at.UTC(), Templates: make([]TemplateDTO, 0, len(templates))}
	for _, t := range templates {
		ic.Templates = append(ic.Templates, templateDTO(t))
	}
	return ic
}

func templateDTO(t *Template) TemplateDTO {
	dto := TemplateDTO{
		ID:          int64(t.ID),
		Name:        t.Name,
		Description: t.Description,
		Columns:     make([]ColumnDTO, 0, len(t.Columns)),
	}
	for _, c := range t.OrderedColumns() {
		cd := ColumnDTO{
			ID:          int64(c.ID),
			Position:    c.Position,
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Type:        string(c.Type),
			Role:        string(c.Role),
			Default:     c.Default,
			Source:      c.Source,
			Check:       c.Check,
		}
		for _, r := range c.Ranges {
			cd.Ranges = append(cd.Ranges, RangeDTO{ID: int64(r.ID), From: r.From, To: r.To, Value: r.Value})
		}
		dto.Columns = append(dto.Columns, cd)
	}
	return dto
}

// Marshal encodes the payload as "yaml" (default) or "json".
func (ic *Interchange) Marshal(format string) ([]byte, error) {
	doc := interchangeDoc{Templates: ic.Templates}
	if !ic.ExportedAt.IsZero() {
		doc.ExportedAt = ic.ExportedAt.Format(time.RFC3339)
	}
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	case "", "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode interchange: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode interchange: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown interchange format %q", format)
	}
}
