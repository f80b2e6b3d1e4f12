package dsl

import (
	"strings"

	"github.com/tordrt/dbtranslate/internal/schema"
)

// Builder converts introspected tables into a Schema
type Builder struct {
	generator  Generator
	datasource Datasource
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithGenerator sets the generator block of built schemas
func WithGenerator(g Generator) BuilderOption {
	return func(b *Builder) { b.generator = g }
}

// WithDatasource sets the datasource block of built schemas
func WithDatasource(d Datasource) BuilderOption {
	return func(b *Builder) { b.datasource = d }
}

// NewBuilder creates a builder using the default generator and datasource blocks
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		generator:  DefaultGenerator(),
		datasource: DefaultDatasource(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns a fresh Schema with one model per table
func (b *Builder) Build(tables []schema.Table) *Schema {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
	}

	s := &Schema{
		Generator:  b.generator,
		Datasource: b.datasource,
		Models:     make([]Model, 0, len(tables)),
	}
	for _, t := range tables {
		s.Models = append(s.Models, buildModel(t, known))
	}
	return s
}

// FieldFromColumn maps one catalog column to a scalar field
func FieldFromColumn(col schema.Column) Field {
	base := FieldType(col.Type)

	f := Field{
		Name:       col.Field,
		Type:       base,
		IsRequired: !col.Nullable,
		IsID:       col.Key == schema.KeyPrimary,
		DBType:     DBAnnotation(col.Type),
		Default:    DefaultExpr(col.Default, base),
	}
	if col.Nullable {
		f.Type += "?"
	}
	if col.Key == schema.KeyPrimary || col.Key == schema.KeyUnique {
		f.Unique = &UniqueFlag{}
	}
	return f
}

func buildModel(t schema.Table, known map[string]bool) Model {
	m := Model{Name: t.Name}
	for _, col := range t.Columns {
		m.Fields = append(m.Fields, FieldFromColumn(col))
	}

	// A composite primary key is a block-level @@id; its columns keep the
	// unique flag of their PRI key but lose the inline id.
	if m.IDFieldCount() > 1 {
		var ids []string
		for i := range m.Fields {
			f := &m.Fields[i]
			if !f.IsID {
				continue
			}
			ids = append(ids, f.Name)
			f.IsID = false
		}
		m.Directives = append(m.Directives, "  @@id(["+strings.Join(ids, ", ")+"])")
	}

	for _, key := range t.Keys {
		switch k := key.(type) {
		case schema.ForeignKey:
			if f, ok := relationField(&m, &t, k, known); ok {
				m.Fields = append(m.Fields, f)
			}
		case schema.UniqueComposite:
			if len(k.Columns) == 1 {
				if f := m.FieldByName(k.Columns[0]); f != nil && f.Unique != nil && k.ConstraintName != f.Name {
					f.Unique.Map = k.ConstraintName
				}
				continue
			}
			m.Directives = append(m.Directives,
				"  @@unique(["+strings.Join(k.Columns, ", ")+`], map: "`+k.ConstraintName+`")`)
		}
	}
	for _, key := range t.Keys {
		if k, ok := key.(schema.Index); ok {
			m.Directives = append(m.Directives,
				"  @@index(["+strings.Join(k.Columns, ", ")+`], map: "`+k.Name+`")`)
		}
	}

	m.RecomputeWidths()
	return m
}

// relationField builds the relation field for a foreign key pointing at a known table
func relationField(m *Model, t *schema.Table, fk schema.ForeignKey, known map[string]bool) (Field, bool) {
	if !known[fk.ReferencedTable] || (len(fk.Columns) == 0 && fk.ConstraintName == "") {
		return Field{}, false
	}

	name := fk.ReferencedTable
	if m.FieldByName(name) != nil {
		name = fk.ReferencedTable + "_" + strings.Join(fk.Columns, "_")
		if m.FieldByName(name) != nil {
			return Field{}, false
		}
	}

	required := true
	for _, c := range fk.Columns {
		if col := t.ColumnByName(c); col != nil && col.Nullable {
			required = false
		}
	}

	f := Field{
		Name:       name,
		Type:       fk.ReferencedTable,
		IsRequired: required,
		Relation: &Relation{
			Fields:     append([]string(nil), fk.Columns...),
			References: append([]string(nil), fk.ReferencedColumns...),
			Map:        fk.ConstraintName,
			OnDelete:   referentialAction(fk.OnDelete, deleteDefault(required)),
			OnUpdate:   referentialAction(fk.OnUpdate, "Cascade"),
		},
	}
	if !required {
		f.Type += "?"
	}
	return f, true
}

func deleteDefault(required bool) string {
	if required {
		return "Restrict"
	}
	return "SetNull"
}

// referentialAction maps a catalog rule to its attribute spelling, or "" when it
// matches the implicit default
func referentialAction(rule, implicit string) string {
	var action string
	switch strings.ToUpper(rule) {
	case "CASCADE":
		action = "Cascade"
	case "SET NULL":
		action = "SetNull"
	case "SET DEFAULT":
		action = "SetDefault"
	case "RESTRICT", "NO ACTION":
		action = "Restrict"
	default:
		return ""
	}
	if action == implicit {
		return ""
	}
	return action
}
