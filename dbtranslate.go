// Package dbtranslate introspects MySQL databases and keeps schema files in sync
// with them.
//
// Each registered database carries disk mappings, one per output format. A sync
// introspects the database once and overwrites every mapped file:
//   - prisma: a Prisma-style schema file (generator, datasource and one model per table)
//   - json: {"tables": {"<table>": {"<column>": "<type> [KEY] [NOT NULL] [AUTO_INCREMENT]"}}}
//
// # Quick Start
//
//	reg, err := registry.Load(cfg.SessionPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc := dbtranslate.New(reg, dbtranslate.WithLogger(logger))
//	result, err := svc.Sync(ctx, "shop")
//
// Tables that cannot be read are skipped and reported in the result; only a
// failed connection fails the sync of a database.
package dbtranslate

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tordrt/dbtranslate/internal/db"
	"github.com/tordrt/dbtranslate/internal/dsl"
	"github.com/tordrt/dbtranslate/internal/registry"
	"github.com/tordrt/dbtranslate/internal/schema"
	"github.com/tordrt/dbtranslate/internal/translator"
)

// Source selects which side a view renders
type Source string

const (
	SourceDisk     Source = "disk"
	SourceDatabase Source = "database"
)

// ParseSource converts a user supplied source name
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceDisk, SourceDatabase:
		return Source(s), nil
	default:
		return "", errors.Errorf("unknown source %q (expected disk or database)", s)
	}
}

// Introspector reads the tables of the database at url
type Introspector interface {
	Introspect(ctx context.Context, url string) ([]schema.Table, []db.TableError, error)
}

// IntrospectorFunc adapts a function to Introspector
type IntrospectorFunc func(ctx context.Context, url string) ([]schema.Table, []db.TableError, error)

// Introspect calls fn
func (fn IntrospectorFunc) Introspect(ctx context.Context, url string) ([]schema.Table, []db.TableError, error) {
	return fn(ctx, url)
}

// MySQLIntrospector introspects live MySQL databases
func MySQLIntrospector(logger *zap.Logger) Introspector {
	return IntrospectorFunc(func(ctx context.Context, url string) ([]schema.Table, []db.TableError, error) {
		return db.Introspect(ctx, url, logger)
	})
}

// Options filters the tables that are translated.
//
// If both Tables and ExcludeTables are set, Tables is applied first and the
// exclusions are then removed from it.
type Options struct {
	// Tables restricts translation to these tables. Empty means all tables.
	Tables []string

	// ExcludeTables lists tables that are never translated,
	// e.g. []string{"schema_migrations"}
	ExcludeTables []string
}

// Service runs translations for the databases of a registry
type Service struct {
	registry     *registry.Registry
	introspector Introspector
	builder      *dsl.Builder
	logger       *zap.Logger
	opts         Options
}

// Option configures a Service
type Option func(*Service)

// WithIntrospector replaces the MySQL introspector
func WithIntrospector(i Introspector) Option {
	return func(s *Service) { s.introspector = i }
}

// WithBuilder sets the builder used for prisma output
func WithBuilder(b *dsl.Builder) Option {
	return func(s *Service) { s.builder = b }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOptions sets the table filters
func WithOptions(opts Options) Option {
	return func(s *Service) { s.opts = opts }
}

// New creates a service over reg
func New(reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		builder:  dsl.NewBuilder(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.introspector == nil {
		s.introspector = MySQLIntrospector(s.logger)
	}
	return s
}

// Registry returns the registry the service operates on
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// SyncResult reports one database sync
type SyncResult struct {
	Database string
	// Written lists the mappings whose files were overwritten
	Written []registry.DiskMapping
	// Failures lists the tables that could not be introspected
	Failures []db.TableError
	// WriteErrors holds one error per mapping that could not be written
	WriteErrors []error
}

// Sync introspects the named database and writes every mapped file.
// Write failures are collected in the result and returned combined.
func (s *Service) Sync(ctx context.Context, name string) (*SyncResult, error) {
	database, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, database, database.DiskMappings)
}

// SyncAll syncs every registered database. A database that cannot be reached
// does not stop the others.
func (s *Service) SyncAll(ctx context.Context) ([]*SyncResult, error) {
	var (
		results []*SyncResult
		errs    error
	)
	for _, database := range s.registry.Databases() {
		result, err := s.sync(ctx, &database, database.DiskMappings)
		if result != nil {
			results = append(results, result)
		}
		errs = multierr.Append(errs, err)
	}
	return results, errs
}

// Write introspects the named database and writes only the file mapped to format
func (s *Service) Write(ctx context.Context, name string, format registry.Format) (*SyncResult, error) {
	database, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	mapping, err := database.Mapping(format)
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, database, []registry.DiskMapping{mapping})
}

func (s *Service) sync(ctx context.Context, database *registry.Database, mappings []registry.DiskMapping) (*SyncResult, error) {
	if len(mappings) == 0 {
		s.logger.Info("no disk mappings, skipping", zap.String("database", database.Name))
		return &SyncResult{Database: database.Name}, nil
	}

	tables, failures, err := s.introspect(ctx, database)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Database: database.Name, Failures: failures}
	for _, mapping := range mappings {
		tr, err := s.translator(mapping)
		if err == nil {
			err = tr.WriteToDisk(tables)
		}
		if err != nil {
			s.logger.Error("failed to write mapping",
				zap.String("database", database.Name),
				zap.String("path", mapping.Path),
				zap.Error(err))
			result.WriteErrors = append(result.WriteErrors, err)
			continue
		}
		s.logger.Info("wrote schema",
			zap.String("database", database.Name),
			zap.Stringer("format", mapping.Format),
			zap.String("path", mapping.Path))
		result.Written = append(result.Written, mapping)
	}

	return result, multierr.Combine(result.WriteErrors...)
}

// View renders the named database's mapping for format from source. The rendered
// text carries the "disk schema:" or "db schema:" label of the translator.
func (s *Service) View(ctx context.Context, name string, format registry.Format, source Source) (string, error) {
	database, err := s.registry.Get(name)
	if err != nil {
		return "", err
	}

	var tr translator.Translator
	switch source {
	case SourceDisk:
		mapping, err := database.Mapping(format)
		if err != nil {
			return "", err
		}
		if tr, err = s.translator(mapping); err != nil {
			return "", err
		}
		if err := tr.LoadFromDisk(); err != nil {
			return "", err
		}
	case SourceDatabase:
		path := ""
		if mapping, err := database.Mapping(format); err == nil {
			path = mapping.Path
		}
		if tr, err = s.translator(registry.DiskMapping{Format: format, Path: path}); err != nil {
			return "", err
		}
		tables, _, err := s.introspect(ctx, database)
		if err != nil {
			return "", err
		}
		tr.LoadFromDatabase(tables)
	default:
		return "", errors.Errorf("unknown source %q", source)
	}

	return tr.String(), nil
}

// Inspect introspects the named database without writing anything
func (s *Service) Inspect(ctx context.Context, name string) ([]schema.Table, []db.TableError, error) {
	database, err := s.registry.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return s.introspect(ctx, database)
}

func (s *Service) introspect(ctx context.Context, database *registry.Database) ([]schema.Table, []db.TableError, error) {
	tables, failures, err := s.introspector.Introspect(ctx, database.URL)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to introspect %s", database.Name)
	}
	for _, f := range failures {
		s.logger.Warn("skipped table",
			zap.String("database", database.Name),
			zap.String("table", f.Table),
			zap.Error(f.Err))
	}
	return filterTables(tables, s.opts), failures, nil
}

func (s *Service) translator(mapping registry.DiskMapping) (translator.Translator, error) {
	return translator.New(mapping.Format, mapping.Path,
		translator.WithBuilder(s.builder),
		translator.WithLogger(s.logger))
}

func filterTables(tables []schema.Table, opts Options) []schema.Table {
	if len(opts.Tables) == 0 && len(opts.ExcludeTables) == 0 {
		return tables
	}

	includeSet := make(map[string]bool, len(opts.Tables))
	for _, name := range opts.Tables {
		includeSet[name] = true
	}
	excludeSet := make(map[string]bool, len(opts.ExcludeTables))
	for _, name := range opts.ExcludeTables {
		excludeSet[name] = true
	}

	filtered := make([]schema.Table, 0, len(tables))
	for _, table := range tables {
		if len(includeSet) > 0 && !includeSet[table.Name] {
			continue
		}
		if excludeSet[table.Name] {
			continue
		}
		filtered = append(filtered, table)
	}
	return filtered
}
