package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/fieldcheck/internal/core/api"
	"github.com/solatis/fieldcheck/internal/core/config"
	"github.com/solatis/fieldcheck/internal/core/db"
	"github.com/solatis/fieldcheck/internal/core/logging"
	"github.com/solatis/fieldcheck/internal/core/store"
	"github.com/solatis/fieldcheck/internal/rules"
)

// Exit codes for validate.
const (
	ExitInvalid = 1
	ExitConfig  = 2
)

var (
	configFile  string
	dbURL       string
	logLevel    string
	logFormat   string
	locale      string
	presetsFile string
)

// NewRootCmd builds the command tree with fresh flag state.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fieldcheck",
		Short:         "fieldcheck declarative record validation",
		Long:          `fieldcheck validates flat records against ordered, declarative rule sets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "message locale (en, pt-BR)")
	rootCmd.PersistentFlags().StringVar(&presetsFile, "presets-file", "", "TOML file with extra custom presets")

	rootCmd.AddCommand(
		newValidateCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newRuleSetCmd(),
		newPresetsCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// ExitError carries a process exit code. An empty Err means the command
// already reported the failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if err != nil {
		return 1
	}
	return 0
}

// loadConfig applies persistent flags over file and environment settings.
func loadConfig(cmd *cobra.Command) (*config.ServiceConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL = dbURL
	}
	if flags.Changed("locale") {
		cfg.Locale = locale
	}
	if flags.Changed("presets-file") {
		cfg.PresetsFile = presetsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	logger, err := logging.New(logLevel, logFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func newEngine(cfg *config.ServiceConfig, logger *zap.Logger) (*rules.Engine, error) {
	presets := rules.DefaultPresets()
	if cfg.PresetsFile != "" {
		extra, err := rules.LoadPresetFile(cfg.PresetsFile)
		if err != nil {
			return nil, err
		}
		presets = presets.Extend(extra...)
	}
	return rules.NewEngine(
		rules.WithPresets(presets),
		rules.WithLocale(rules.MatchLocale(cfg.Locale)),
		rules.WithLogger(logger),
	)
}

// backend is the store behind a ValidatorService plus its cleanup.
type backend struct {
	ruleSets store.RuleSetStore
	presets  store.PresetStore
	close    func() error
}

// openBackend uses the database when one is configured and an in-memory
// store otherwise. The schema must be current.
func openBackend(ctx context.Context, cfg *config.ServiceConfig) (*backend, error) {
	if cfg.DatabaseURL == "" {
		mem := store.NewMemoryStore()
		return &backend{ruleSets: mem, presets: mem, close: func() error { return nil }}, nil
	}

	status, err := db.MigrateStatus(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	if status.Dirty {
		return nil, fmt.Errorf("database schema is dirty at version %d", status.Version)
	}
	if status.Pending() {
		return nil, fmt.Errorf("schema at version %d of %d - run 'fieldcheck migrate up' first", status.Version, status.Latest)
	}

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}
	sqlStore, err := store.NewSQLStore(queries)
	if err != nil {
		database.Close()
		return nil, err
	}
	return &backend{ruleSets: sqlStore, presets: sqlStore, close: database.Close}, nil
}

// serviceEnv is what every service-backed command needs.
type serviceEnv struct {
	cfg     *config.ServiceConfig
	logger  *zap.Logger
	service *api.ValidatorService
	backend *backend
}

func (e *serviceEnv) Close() {
	if err := e.backend.close(); err != nil {
		e.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = e.logger.Sync()
}

func newServiceEnv(cmd *cobra.Command) (*serviceEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	b, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	service, err := api.NewValidatorService(cmd.Context(), engine, b.ruleSets, b.presets, api.Options{
		MaxDocumentSize: cfg.MaxDocumentSize,
		Cache:           store.NewCompiledCache(cfg.CacheTTL),
		Logger:          logger,
	})
	if err != nil {
		b.close()
		return nil, err
	}
	return &serviceEnv{cfg: cfg, logger: logger, service: service, backend: b}, nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// exitForError marks configuration errors and unknown rule sets with ExitConfig.
func exitForError(err error) error {
	switch api.Classify(err) {
	case api.ClassInvalid, api.ClassNotFound:
		return &ExitError{Code: ExitConfig, Err: err}
	}
	return err
}
