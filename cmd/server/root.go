package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metadesk-backend/internal/config"
	"metadesk-backend/internal/logging"
	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command of the server binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "metadesk",
		Short:        "Metadata-driven entity query service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: app.yaml in . or ../..)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewHashKeyCommand())
	return cmd
}

// env holds what every command shares.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *metadata.Registry
}

func load(opts *RootOptions) (*env, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	defs, err := metadata.LoadDefinitions(cfg.Metadata.EntitiesDir)
	if err != nil {
		return nil, err
	}
	catalog, err := metadata.LoadCatalog(cfg.Metadata.LocalesDir, cfg.Metadata.DefaultLocale)
	if err != nil {
		return nil, err
	}
	reg, err := metadata.NewRegistry(defs, nil, catalog)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	logger.Info("metadata loaded",
		zap.Int("entities", len(defs)),
		zap.Strings("locales", catalog.Locales()),
	)
	return &env{cfg: cfg, logger: logger, registry: reg}, nil
}

// openModels connects to the database and migrates entity tables.
func (rt *env) openModels(ctx context.Context) (*store.Store, *store.Models, error) {
	db := rt.cfg.Database
	if db.IsSQLite() && db.Name != ":memory:" {
		if err := os.MkdirAll(db.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	s, err := store.New(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	models, err := store.NewModels(s, rt.registry)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := store.NewMigrator(models, rt.logger).Migrate(ctx); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return s, models, nil
}
