package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/translation-workflow/internal/api"
	"github.com/terra-clan/translation-workflow/internal/config"
	"github.com/terra-clan/translation-workflow/internal/notify"
	"github.com/terra-clan/translation-workflow/internal/reminder"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// openQueue connects to Redis when an address is configured and falls back to
// the in-process queue otherwise
func openQueue(ctx context.Context, cfg *config.Config) (notify.Queue, error) {
	if cfg.Redis.Address == "" {
		slog.Info("no redis configured, using in-process notification queue")
		return notify.NewMemoryQueue(cfg.Notifications.QueueSize), nil
	}

	queue, err := notify.NewRedisQueue(ctx, notify.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Key:      cfg.Redis.QueueKey,
	})
	if err != nil {
		return nil, err
	}

	// Envelopes left in the processing list by a previous run go back to the queue
	recovered, err := queue.Recover(ctx)
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("failed to recover notification queue: %w", err)
	}
	if recovered > 0 {
		slog.Info("recovered in-flight notifications", "count", recovered)
	}

	return queue, nil
}

func serve(parent context.Context, cfg *config.Config) error {
	slog.Info("starting workflowd",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(parent, 30*time.Second)
	defer initCancel()

	store, err := openStore(initCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	loader, err := templates.NewDefaultLoader()
	if err != nil {
		return fmt.Errorf("failed to load default templates: %w", err)
	}
	if cfg.Templates.Dir != "" {
		if err := loader.LoadFromDir(cfg.Templates.Dir); err != nil {
			slog.Warn("failed to load templates from dir", "dir", cfg.Templates.Dir, "error", err)
		}
	}

	queue, err := openQueue(initCtx, cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	hub := notify.NewHub(0)
	listen := cfg.Database.DSN != "" && cfg.Database.Listen

	workerOpts := notify.WorkerOptions{
		Workers:         cfg.Notifications.Workers,
		DeliveryTimeout: cfg.Notifications.DeliveryTimeout,
		MaxAttempts:     cfg.Notifications.MaxAttempts,
	}
	// With LISTEN/NOTIFY the database announces stored notifications itself
	if !listen {
		workerOpts.Publisher = hub
	}

	svc := workflow.NewService(store, notify.NewDispatcher(queue, cfg.Notifications.DispatchTimeout), loader, workflow.Options{
		Attempts: cfg.Workflow.Attempts,
	})

	if _, isMemory := store.(*storage.MemoryStore); isMemory {
		user, token, err := bootstrapManager(initCtx, svc, "Administrator", "admin@localhost")
		if err != nil {
			return err
		}
		slog.Warn("in-memory store seeded with a manager", "user_id", user.ID, "token", token)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	worker := notify.NewWorker(queue, store, workerOpts)
	worker.Start(ctx)

	reminders := reminder.NewReminder(svc, cfg.Reminder.Interval)
	reminders.Start(ctx)

	listenerDone := make(chan struct{})
	if listen {
		go func() {
			defer close(listenerDone)
			if err := storage.NewListener(cfg.Database.DSN).Run(ctx, notify.Relay(store, hub)); err != nil {
				slog.Error("notification listener failed", "error", err)
			}
		}()
	} else {
		close(listenerDone)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, svc, hub, map[string]api.HealthChecker{
		"queue": queue,
	})
	httpServer := &http.Server{
		Addr:        cfg.Server.Address(),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		cancel()
		return err
	}

	slog.Info("shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Cancel context to stop background workers
	cancel()
	worker.Wait()
	reminders.Wait()
	<-listenerDone

	slog.Info("workflowd stopped")
	return nil
}
