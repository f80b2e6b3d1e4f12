// Package formatter renders introspection reports for the inspect command.
package formatter

import (
	"io"

	"github.com/pkg/errors"

	"github.com/tordrt/dbtranslate/internal/db"
	"github.com/tordrt/dbtranslate/internal/schema"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Formatter writes introspected tables and the tables that failed
type Formatter interface {
	Format(tables []schema.Table, failures []db.TableError) error
}

// New returns the formatter registered under format
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	default:
		return nil, errors.Errorf("unknown report format %q (expected %s or %s)", format, FormatText, FormatMarkdown)
	}
}
