package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbtranslate/internal/db"
	"github.com/tordrt/dbtranslate/internal/schema"
)

// MarkdownFormatter formats an introspection report as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the tables followed by a section listing the skipped tables
func (f *MarkdownFormatter) Format(tables []schema.Table, failures []db.TableError) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range tables {
		f.formatTable(table)
	}

	if len(failures) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Skipped")
		_, _ = fmt.Fprintln(f.writer)
		for _, failure := range failures {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %v\n", failure.Table, failure.Err)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
	return nil
}

func (f *MarkdownFormatter) formatTable(table schema.Table) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range table.Columns {
		constraintStr := f.formatConstraints(col)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Field, col.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Field, col.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	fks, uniques, indexes := splitKeys(table.Keys)

	if len(fks) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range fks {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)%s\n",
				strings.Join(fk.Columns, ", "),
				fk.ReferencedTable,
				strings.Join(fk.ReferencedColumns, ", "),
				fk.ConstraintName,
				referentialRules(fk))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(uniques)+len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Idx")
		_, _ = fmt.Fprintln(f.writer)
		for _, u := range uniques {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", u.ConstraintName, strings.Join(u.Columns, ", "))
		}
		for _, idx := range indexes {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatConstraints(col schema.Column) string {
	var constraints []string

	switch col.Key {
	case schema.KeyPrimary:
		constraints = append(constraints, "PK")
	case schema.KeyUnique:
		constraints = append(constraints, "UNIQUE")
	}

	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}

	if col.Default != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.Default))
	}

	if col.Extra != "" {
		constraints = append(constraints, strings.ToUpper(col.Extra))
	}

	return strings.Join(constraints, ", ")
}
