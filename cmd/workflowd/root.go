package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/terra-clan/translation-workflow/internal/config"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

type commandContext struct {
	configFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configFlag)
		if c.configErr != nil {
			return
		}
		setupLogging(c.config.Log)
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "workflowd",
		Short:         "Translation workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (defaults to $WORKFLOW_CONFIG)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newBootstrapCommand(ctx))

	return rootCmd
}

// setupLogging installs a JSON slog handler as the default logger
func setupLogging(cfg config.LogConfig) {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// openStore connects to PostgreSQL when a DSN is configured and falls back to
// the in-memory store otherwise
func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	if cfg.DSN == "" {
		slog.Warn("no database configured, using in-memory store")
		return storage.NewMemoryStore(), nil
	}

	if cfg.MigrateOnStart {
		slog.Info("running database migrations", "dir", cfg.MigrationsDir)
		if err := storage.MigrateFromDSN(ctx, cfg.DSN, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, err := storage.NewPostgresStore(ctx, storage.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxConns,
		MaxIdleConns: cfg.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}
	slog.Info("database connected successfully")

	return store, nil
}
