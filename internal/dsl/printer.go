package dsl

import (
	"io"
	"strings"
)

// Format renders s as schema file text
func Format(s *Schema) string {
	var b strings.Builder
	b.WriteString(s.Generator.String())
	b.WriteString("\n\n")
	b.WriteString(s.Datasource.String())
	b.WriteString("\n\n")
	for i := range s.Models {
		b.WriteString(s.Models[i].String())
		b.WriteString("\n")
	}
	return b.String()
}

// Print writes the rendered schema to w
func Print(w io.Writer, s *Schema) error {
	_, err := io.WriteString(w, Format(s))
	return err
}

// String renders the generator block without a trailing newline
func (g Generator) String() string {
	return "generator " + g.Name + " {\n" +
		`  provider = "` + g.Provider + "\"\n" +
		"}"
}

// String renders the datasource block without a trailing newline
func (d Datasource) String() string {
	return "datasource " + d.Name + " {\n" +
		`  provider = "` + d.Provider + "\"\n" +
		`  url      = env("DATABASE_URL")` + "\n" +
		"}"
}

// String renders the model block, ending in "}\n"
func (m *Model) String() string {
	nameWidth, typeWidth := m.NameWidth, m.TypeWidth
	for _, f := range m.Fields {
		nameWidth = max(nameWidth, len(f.Name)+1)
		typeWidth = max(typeWidth, len(f.Type)+1)
	}
	singleID := m.IDFieldCount() == 1

	var b strings.Builder
	b.WriteString("model " + m.Name + " {\n")
	for _, f := range m.Fields {
		b.WriteString("  ")
		b.WriteString(f.line(nameWidth, typeWidth, singleID))
		b.WriteString("\n")
	}
	if len(m.Directives) > 0 {
		b.WriteString("\n")
		for _, d := range m.Directives {
			b.WriteString(d)
			b.WriteString("\n")
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Attributes returns the field's attribute tokens in print order
func (f Field) Attributes(singleID bool) []string {
	var attrs []string
	if f.IsID && singleID {
		attrs = append(attrs, "@id")
	}
	if f.Unique != nil {
		attrs = append(attrs, f.Unique.String())
	}
	if f.Default != nil {
		attrs = append(attrs, "@default("+*f.Default+")")
	}
	if f.DBType != "" {
		attrs = append(attrs, "@db."+f.DBType)
	}
	if f.Relation != nil {
		attrs = append(attrs, f.Relation.String())
	}
	return attrs
}

func (f Field) line(nameWidth, typeWidth int, singleID bool) string {
	line := pad(f.Name, nameWidth) + " " + pad(f.Type, typeWidth) + " " +
		strings.Join(f.Attributes(singleID), " ")
	return strings.TrimRight(line, " ")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
