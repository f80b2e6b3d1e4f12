package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tordrt/dbtranslate"
	"github.com/tordrt/dbtranslate/internal/config"
	"github.com/tordrt/dbtranslate/internal/dsl"
	"github.com/tordrt/dbtranslate/internal/registry"
)

// app holds what every subcommand needs. It is filled in by the root command's
// PersistentPreRunE.
type app struct {
	configPath string
	storageDir string
	debug      bool

	cfg      config.Config
	logger   *zap.Logger
	registry *registry.Registry
	// newService builds the service; tests replace it to avoid a live database
	newService func(a *app, opts dbtranslate.Options) *dbtranslate.Service
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dbtranslate",
		Short:         "Keep Prisma and JSON schema files in sync with MySQL databases",
		Long:          `dbtranslate introspects registered MySQL databases and writes their structure as a Prisma-style schema file or a JSON table description.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&a.storageDir, "storage", "", "Storage directory for the session registry (overrides config and $"+config.StorageEnv+")")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newRenameCmd(a),
		newMapCmd(a),
		newSyncCmd(a),
		newWriteCmd(a),
		newViewCmd(a),
		newInspectCmd(a),
	)
	return rootCmd
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.storageDir != "" {
		cfg.StorageDir = a.storageDir
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := newLogger(cfg.LogLevel, a.debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		a.logger = logger
	}

	reg, err := registry.Load(cfg.SessionPath())
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a.registry = reg
	a.logger.Debug("loaded registry",
		zap.String("path", reg.Path()),
		zap.Int("databases", len(reg.Databases())))

	return nil
}

// newLogger logs to stderr so that stdout only carries command output
func newLogger(level string, debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

func (a *app) service(opts dbtranslate.Options) *dbtranslate.Service {
	if a.newService != nil {
		return a.newService(a, opts)
	}
	return dbtranslate.New(a.registry,
		dbtranslate.WithLogger(a.logger),
		dbtranslate.WithBuilder(a.builder()),
		dbtranslate.WithOptions(opts))
}

func (a *app) builder() *dsl.Builder {
	return dsl.NewBuilder(
		dsl.WithGenerator(dsl.Generator{Name: a.cfg.Generator.Name, Provider: a.cfg.Generator.Provider}),
		dsl.WithDatasource(dsl.Datasource{Name: a.cfg.Datasource.Name, Provider: a.cfg.Datasource.Provider}),
	)
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
