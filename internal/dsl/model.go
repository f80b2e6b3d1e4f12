// Package dsl holds the Prisma-style schema object model, the builder that derives
// it from introspected tables, and the printer and parser that move it to and from text.
package dsl

// Schema is a parsed or generated schema file
type Schema struct {
	Generator  Generator
	Datasource Datasource
	Models     []Model
}

// Generator is the generator block of a schema file
type Generator struct {
	Name     string
	Provider string
}

// Datasource is the datasource block of a schema file.
// The url line is always rendered as env("DATABASE_URL").
type Datasource struct {
	Name     string
	Provider string
}

// DefaultGenerator returns the generator block written for new schemas
func DefaultGenerator() Generator {
	return Generator{Name: "client", Provider: "prisma-client-js"}
}

// DefaultDatasource returns the datasource block written for new schemas
func DefaultDatasource() Datasource {
	return Datasource{Name: "db", Provider: "mysql"}
}

// Model is one table's block.
//
// NameWidth and TypeWidth are the padded column widths used when printing. They are
// derived from Fields and must be refreshed with RecomputeWidths after Fields change.
type Model struct {
	Name       string
	Fields     []Field
	Directives []string
	NameWidth  int
	TypeWidth  int
}

// Field is one line of a model block
type Field struct {
	Name       string
	Type       string
	IsArray    bool
	IsRequired bool
	IsID       bool
	Unique     *UniqueFlag
	Default    *string
	DBType     string
	Relation   *Relation
}

// UniqueFlag is the @unique attribute, optionally carrying a constraint name
type UniqueFlag struct {
	Map string
}

// Relation is the argument list of a @relation attribute
type Relation struct {
	Map        string
	Fields     []string
	References []string
	OnUpdate   string
	OnDelete   string
}

// AddField appends f and refreshes the column widths
func (m *Model) AddField(f Field) {
	m.Fields = append(m.Fields, f)
	m.RecomputeWidths()
}

// RecomputeWidths sets NameWidth and TypeWidth to the longest name and type plus one
func (m *Model) RecomputeWidths() {
	m.NameWidth, m.TypeWidth = 0, 0
	for _, f := range m.Fields {
		if len(f.Name)+1 > m.NameWidth {
			m.NameWidth = len(f.Name) + 1
		}
		if len(f.Type)+1 > m.TypeWidth {
			m.TypeWidth = len(f.Type) + 1
		}
	}
}

// IDFieldCount returns how many fields are marked as id
func (m *Model) IDFieldCount() int {
	n := 0
	for _, f := range m.Fields {
		if f.IsID {
			n++
		}
	}
	return n
}

// FieldByName returns the named field, or nil
func (m *Model) FieldByName(name string) *Field {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// ModelByName returns the named model, or nil
func (s *Schema) ModelByName(name string) *Model {
	for i := range s.Models {
		if s.Models[i].Name == name {
			return &s.Models[i]
		}
	}
	return nil
}
