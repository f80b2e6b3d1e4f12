// Package registry persists the configured databases and the files each one is
// rendered to.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no database has the requested name
	ErrNotFound = errors.New("database not found")
	// ErrNoMapping is returned when a database has no file bound for a format
	ErrNoMapping = errors.New("no disk mapping for format")
)

// Format is the output format a disk mapping is rendered in
type Format string

const (
	FormatJSON   Format = "json"
	FormatPrisma Format = "prisma"
)

// Formats lists every supported format
var Formats = []Format{FormatJSON, FormatPrisma}

// ParseFormat converts a user supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPrisma:
		return f, nil
	default:
		return "", errors.Errorf("unknown format %q (expected json or prisma)", s)
	}
}

func (f Format) String() string { return string(f) }

// DiskMapping binds a database to the file one format is written to
type DiskMapping struct {
	Format Format `json:"format" validate:"required,oneof=json prisma"`
	Path   string `json:"path" validate:"required"`
}

// Database is one registered connection
type Database struct {
	Name         string        `json:"name" validate:"required"`
	URL          string        `json:"db_url" validate:"required"`
	DiskMappings []DiskMapping `json:"disk_mappings" validate:"dive"`
}

// Mapping returns the disk mapping for format
func (d *Database) Mapping(format Format) (DiskMapping, error) {
	for _, m := range d.DiskMappings {
		if m.Format == format {
			return m, nil
		}
	}
	return DiskMapping{}, errors.Wrapf(ErrNoMapping, "%s has no %s mapping", d.Name, format)
}

// SetMapping binds format to path, replacing any existing binding for that format
func (d *Database) SetMapping(format Format, path string) {
	for i := range d.DiskMappings {
		if d.DiskMappings[i].Format == format {
			d.DiskMappings[i].Path = path
			return
		}
	}
	d.DiskMappings = append(d.DiskMappings, DiskMapping{Format: format, Path: path})
}

// Registry is the set of registered databases backed by a JSON file.
// It is not safe for concurrent use.
type Registry struct {
	path      string
	databases []Database
	validate  *validator.Validate
}

// Load reads the registry file at path. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, validate: validator.New()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrapf(err, "failed to read registry %s", path)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return r, nil
	}

	var databases []Database
	if err := json.Unmarshal(data, &databases); err != nil {
		return nil, errors.Wrapf(err, "failed to decode registry %s", path)
	}
	for _, db := range databases {
		if err := r.validate.Struct(db); err != nil {
			return nil, errors.Wrapf(err, "invalid registry entry %q", db.Name)
		}
	}
	r.databases = databases

	return r, nil
}

// Path returns the file the registry is saved to
func (r *Registry) Path() string {
	return r.path
}

// Save writes the registry file, creating its directory when needed
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create registry directory")
	}

	databases := r.databases
	if databases == nil {
		databases = []Database{}
	}
	data, err := json.MarshalIndent(databases, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode registry")
	}
	if err := os.WriteFile(r.path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write registry %s", r.path)
	}
	return nil
}

// Databases returns a copy of the registered databases sorted by name. The
// registry's own order, and pointers returned by Find, are left untouched.
func (r *Registry) Databases() []Database {
	databases := make([]Database, len(r.databases))
	for i, db := range r.databases {
		db.DiskMappings = append([]DiskMapping(nil), db.DiskMappings...)
		databases[i] = db
	}
	sort.SliceStable(databases, func(i, j int) bool {
		return databases[i].Name < databases[j].Name
	})
	return databases
}

// Add registers db. It reports false without changing anything when the URL is
// empty or already registered.
func (r *Registry) Add(db Database) (bool, error) {
	if db.URL == "" {
		return false, nil
	}
	for _, existing := range r.databases {
		if existing.URL == db.URL {
			return false, nil
		}
	}
	if err := r.validate.Struct(db); err != nil {
		return false, errors.Wrap(err, "invalid database")
	}
	if r.Find(db.Name) != nil {
		return false, errors.Errorf("a database named %q is already registered", db.Name)
	}

	r.databases = append(r.databases, db)
	return true, nil
}

// Find returns the named database, or nil
func (r *Registry) Find(name string) *Database {
	for i := range r.databases {
		if r.databases[i].Name == name {
			return &r.databases[i]
		}
	}
	return nil
}

// Get returns the named database or ErrNotFound
func (r *Registry) Get(name string) (*Database, error) {
	if db := r.Find(name); db != nil {
		return db, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "%q", name)
}

// Remove deletes the named database
func (r *Registry) Remove(name string) error {
	for i := range r.databases {
		if r.databases[i].Name == name {
			r.databases = append(r.databases[:i], r.databases[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "%q", name)
}

// Rename changes the name of a registered database
func (r *Registry) Rename(name, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return errors.New("new name must not be empty")
	}
	db, err := r.Get(name)
	if err != nil {
		return err
	}
	if other := r.Find(newName); other != nil && other != db {
		return errors.Errorf("a database named %q is already registered", newName)
	}
	db.Name = newName
	return nil
}

// SetMapping binds format to path for the named database
func (r *Registry) SetMapping(name string, format Format, path string) error {
	if _, err := ParseFormat(string(format)); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("path must not be empty")
	}
	db, err := r.Get(name)
	if err != nil {
		return err
	}
	db.SetMapping(format, path)
	return nil
}
