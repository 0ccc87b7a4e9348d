package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/templates"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

// bootstrapManager creates a manager account and returns a fresh token for it
func bootstrapManager(ctx context.Context, svc *workflow.Service, name, email string) (*models.User, string, error) {
	user, err := svc.CreateUser(ctx, models.CreateUserRequest{
		Name:  name,
		Email: email,
		Role:  models.RoleManager,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create manager: %w", err)
	}

	token, err := svc.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

func newBootstrapCommand(ctx *commandContext) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first manager account and print its access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return errors.New("bootstrap requires DATABASE_DSN; the in-memory store does not outlive the command")
			}

			runCtx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			store, err := openStore(runCtx, cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			loader, err := templates.NewDefaultLoader()
			if err != nil {
				return err
			}

			// Bootstrap sends no notifications
			svc := workflow.NewService(store, nil, loader, workflow.Options{Attempts: cfg.Workflow.Attempts})

			user, token, err := bootstrapManager(runCtx, svc, name, email)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "manager %d <%s>\ntoken: %s\n", user.ID, user.Email, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "Manager display name")
	cmd.Flags().StringVar(&email, "email", "", "Manager email")
	cmd.MarkFlagRequired("email")

	return cmd
}
