// Package config loads the settings shared by every command.
package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFile is read from the working directory when no path is given
	DefaultFile = "dbtranslate.yaml"
	// StorageEnv overrides the storage directory of the config file
	StorageEnv = "DBTRANSLATE_STORAGE"
	// SessionFile is the registry file name inside the storage directory
	SessionFile = "session.json"
)

// Config holds the process configuration. It is built once at startup and passed
// to the commands that need it.
type Config struct {
	StorageDir string `yaml:"storage_dir" validate:"required"`
	LogLevel   string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Generator  Block  `yaml:"generator"`
	Datasource Block  `yaml:"datasource"`
}

// Block names a generator or datasource block of written schema files
type Block struct {
	Name     string `yaml:"name" validate:"required"`
	Provider string `yaml:"provider" validate:"required"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	storage := ".dbtranslate"
	if home, err := os.UserHomeDir(); err == nil {
		storage = filepath.Join(home, ".dbtranslate")
	}

	return Config{
		StorageDir: storage,
		LogLevel:   "info",
		Generator:  Block{Name: "client", Provider: "prisma-client-js"},
		Datasource: Block{Name: "db", Provider: "mysql"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path, then
// the environment. An empty path reads DefaultFile if it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}

	if dir := os.Getenv(StorageEnv); dir != "" {
		cfg.StorageDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// SessionPath returns the registry file location
func (c Config) SessionPath() string {
	return filepath.Join(c.StorageDir, SessionFile)
}
