package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/bugboard/internal/backend"
	"github.com/joescharf/bugboard/internal/output"
	"github.com/joescharf/bugboard/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "bugboard",
	Short: "bugboard - a small issue tracker with a kanban board",
	Long: `bugboard tracks issues, comments and users.

It serves a browser UI with a searchable issue list, a kanban board and a
dashboard, and offers the same operations from the command line and over MCP.
Issues live in a local SQLite database or in a hosted records backend.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/bugboard/config.yaml)")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BUGBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults() {
	dir, _ := configDirFunc()
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "bugboard.db"))
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("backend.url", "")
	viper.SetDefault("backend.project_id", "")
	viper.SetDefault("backend.public_key", "")
	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5")
	viper.SetDefault("notify.max", 20)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	logger = newLogger(viper.GetString("log_level"))

	// The store is opened lazily so config and version work without one.
}

// newLogger builds the text logger used by the server and background work.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	s, err := openStore(viper.GetString("store.driver"))
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// openStore constructs the store named by driver.
func openStore(driver string) (store.Store, error) {
	switch driver {
	case "", "sqlite":
		s, err := store.NewSQLiteStore(viper.GetString("db_path"))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return s, nil
	case "remote":
		baseURL := viper.GetString("backend.url")
		if baseURL == "" {
			return nil, fmt.Errorf("backend.url is required for the remote store (set it in config or BUGBOARD_BACKEND_URL)")
		}
		client := backend.NewClient(backend.Config{
			BaseURL:   baseURL,
			ProjectID: viper.GetString("backend.project_id"),
			PublicKey: viper.GetString("backend.public_key"),
			Timeout:   viper.GetDuration("backend.timeout"),
		})
		s, err := backend.NewStore(client)
		if err != nil {
			return nil, fmt.Errorf("open backend: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store.driver %q: must be sqlite or remote", driver)
	}
}
