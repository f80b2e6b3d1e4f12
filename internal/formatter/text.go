package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbtranslate/internal/db"
	"github.com/tordrt/dbtranslate/internal/schema"
)

// TextFormatter formats an introspection report as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the tables followed by the tables that could not be read
func (f *TextFormatter) Format(tables []schema.Table, failures []db.TableError) error {
	for i, table := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(table)
	}

	if len(failures) > 0 {
		if len(tables) > 0 {
			_, _ = fmt.Fprintln(f.writer)
		}
		for _, failure := range failures {
			_, _ = fmt.Fprintf(f.writer, "SKIPPED %s: %v\n", failure.Table, failure.Err)
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(table schema.Table) {
	pkStr := ""
	if pk := primaryKey(table); len(pk) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	fks, uniques, indexes := splitKeys(table.Keys)

	if len(fks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, fk := range fks {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s%s\n",
				strings.Join(fk.Columns, ", "),
				fk.ReferencedTable,
				strings.Join(fk.ReferencedColumns, ", "),
				referentialRules(fk))
		}
	}

	if len(uniques)+len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, u := range uniques {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s) UNIQUE\n", u.ConstraintName, strings.Join(u.Columns, ", "))
		}
		for _, idx := range indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
		}
	}
}

func (f *TextFormatter) formatColumn(col schema.Column) string {
	parts := []string{col.Field + ":", col.Type}

	if col.Key == schema.KeyUnique {
		parts = append(parts, "UNIQUE")
	}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if col.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.Default))
	}

	if col.Extra != "" {
		parts = append(parts, strings.ToUpper(col.Extra))
	}

	return strings.Join(parts, " ")
}

func primaryKey(table schema.Table) []string {
	var pk []string
	for _, col := range table.Columns {
		if col.Key == schema.KeyPrimary {
			pk = append(pk, col.Field)
		}
	}
	return pk
}

func splitKeys(keys []schema.Key) (fks []schema.ForeignKey, uniques []schema.UniqueComposite, indexes []schema.Index) {
	for _, key := range keys {
		switch k := key.(type) {
		case schema.ForeignKey:
			fks = append(fks, k)
		case schema.UniqueComposite:
			uniques = append(uniques, k)
		case schema.Index:
			indexes = append(indexes, k)
		}
	}
	return fks, uniques, indexes
}

func referentialRules(fk schema.ForeignKey) string {
	var rules string
	if fk.OnDelete != "" {
		rules += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		rules += " ON UPDATE " + fk.OnUpdate
	}
	return rules
}
