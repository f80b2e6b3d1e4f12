package translator

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tordrt/dbtranslate/internal/dsl"
	"github.com/tordrt/dbtranslate/internal/schema"
)

// PrismaTranslator writes and reads Prisma-style schema files
type PrismaTranslator struct {
	path    string
	builder *dsl.Builder
	logger  *zap.Logger

	disk     *dsl.Schema
	database *dsl.Schema
}

// NewPrismaTranslator creates a translator bound to path
func NewPrismaTranslator(path string, builder *dsl.Builder, logger *zap.Logger) *PrismaTranslator {
	if builder == nil {
		builder = dsl.NewBuilder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrismaTranslator{path: path, builder: builder, logger: logger}
}

// WriteToDisk builds a schema from tables and overwrites the bound file with it
func (p *PrismaTranslator) WriteToDisk(tables []schema.Table) error {
	text := dsl.Format(p.builder.Build(tables))

	p.logger.Debug("writing schema file", zap.String("path", p.path), zap.Int("tables", len(tables)))
	if err := os.WriteFile(p.path, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", p.path)
	}
	return nil
}

// LoadFromDisk parses the bound file unless a disk schema is already loaded
func (p *PrismaTranslator) LoadFromDisk() error {
	if p.disk != nil {
		return nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", p.path)
	}
	defer f.Close()

	s, err := dsl.NewParser(dsl.WithLogger(p.logger)).Parse(f)
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", p.path)
	}
	p.disk = s
	return nil
}

// LoadFromDatabase replaces the database-side schema
func (p *PrismaTranslator) LoadFromDatabase(tables []schema.Table) {
	p.database = p.builder.Build(tables)
}

// DiskSchema returns the schema loaded from the bound file, or nil
func (p *PrismaTranslator) DiskSchema() *dsl.Schema {
	return p.disk
}

// DatabaseSchema returns the schema built from the database, or nil
func (p *PrismaTranslator) DatabaseSchema() *dsl.Schema {
	return p.database
}

func (p *PrismaTranslator) String() string {
	var b strings.Builder
	if p.disk != nil {
		b.WriteString(diskLabel)
		b.WriteString(dsl.Format(p.disk))
		b.WriteString("\n\n")
	}
	if p.database != nil {
		b.WriteString(databaseLabel)
		b.WriteString(dsl.Format(p.database))
		b.WriteString("\n\n")
	}
	return b.String()
}
