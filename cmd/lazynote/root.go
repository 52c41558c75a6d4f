package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazynote/internal/config"
	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/note"
	"github.com/Joseda-hg/lazynote/internal/project"
	"github.com/Joseda-hg/lazynote/internal/tag"
)

var (
	verbose    bool
	configPath string
	dbPath     string
	dsn        string
	driver     string
	owner      string
)

var rootCmd = &cobra.Command{
	Use:   "lazynote",
	Short: "Notes, tasks and events in one terminal",
	Long: `lazynote keeps notes with optional task and event details, tags and projects.
It runs as a terminal browser, a JSON web API, or one-shot commands.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return tuiCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite db path")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database connection string")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "owner id for notes")
}

// app bundles the services every command needs.
type app struct {
	cfg        config.Config
	configPath string
	store      *db.Store
	notes      *note.Service
	tags       *tag.Service
	projects   *project.Service
	logger     *slog.Logger
}

func loadConfig() (config.Config, string, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return config.Config{}, "", err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dsn != "" {
		cfg.DSN = dsn
	}
	if driver != "" {
		cfg.Driver = driver
	}
	if owner != "" {
		cfg.OwnerID = owner
	}
	if !verbose && strings.EqualFold(cfg.LogLevel, "debug") {
		verbose = true
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return cfg, path, nil
}

func openApp() (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	drv, source, err := cfg.Source()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(drv, source)
	if err != nil {
		return nil, err
	}
	store := db.NewStore(conn, drv)

	logger := slog.Default()
	slog.Debug("store opened", "driver", drv, "owner", cfg.OwnerID)
	return &app{
		cfg:        cfg,
		configPath: path,
		store:      store,
		notes:      note.NewService(store, note.WithLogger(logger)),
		tags:       tag.NewService(store, tag.WithLogger(logger)),
		projects:   project.NewService(store, project.WithLogger(logger)),
		logger:     logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "err", err)
	}
}
