package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/translation-workflow/internal/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return errors.New("migrate requires DATABASE_DSN")
			}

			runCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
			if err := storage.MigrateFromDSN(runCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}
