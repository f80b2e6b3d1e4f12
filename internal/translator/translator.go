// Package translator renders introspected tables into a bound output file and
// compares that file with the live database.
package translator

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tordrt/dbtranslate/internal/dsl"
	"github.com/tordrt/dbtranslate/internal/registry"
	"github.com/tordrt/dbtranslate/internal/schema"
)

// ErrUnknownFormat is returned by New for a format with no translator
var ErrUnknownFormat = errors.New("unknown format")

const (
	diskLabel     = "disk schema:\n\n"
	databaseLabel = "db schema:\n\n"
)

// Translator converts tables to one output format and keeps at most one schema
// loaded from its file and one built from the database.
type Translator interface {
	// WriteToDisk builds the output from tables and overwrites the bound file
	WriteToDisk(tables []schema.Table) error
	// LoadFromDisk reads the bound file. It is a no-op once a disk schema is loaded.
	LoadFromDisk() error
	// LoadFromDatabase replaces the database-side schema with one built from tables
	LoadFromDatabase(tables []schema.Table)
	// String renders whichever of the disk and database schemas are loaded, each
	// under its own label, or "" when neither is
	String() string
}

type options struct {
	builder *dsl.Builder
	logger  *zap.Logger
}

// Option configures a translator
type Option func(*options)

// WithBuilder sets the builder used to turn tables into schema files
func WithBuilder(b *dsl.Builder) Option {
	return func(o *options) {
		if b != nil {
			o.builder = b
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New returns the translator for format bound to the file at path
func New(format registry.Format, path string, opts ...Option) (Translator, error) {
	o := options{builder: dsl.NewBuilder(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	switch format {
	case registry.FormatPrisma:
		return NewPrismaTranslator(path, o.builder, o.logger), nil
	case registry.FormatJSON:
		return NewJSONTranslator(path, o.logger), nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
}
