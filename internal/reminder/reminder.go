// Package reminder periodically notifies translators and reviewers whose
// assignments are past their deadline.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// OverdueNotifier sends reminders for overdue assignments and reports how many
// were sent.
type OverdueNotifier interface {
	RemindOverdue(ctx context.Context) (int, error)
}

// Reminder runs overdue checks on a fixed interval
type Reminder struct {
	notifier OverdueNotifier
	interval time.Duration
	wg       sync.WaitGroup
}

// NewReminder creates a new reminder worker. A non-positive interval disables it.
func NewReminder(notifier OverdueNotifier, interval time.Duration) *Reminder {
	return &Reminder{
		notifier: notifier,
		interval: interval,
	}
}

// Start begins the reminder worker in a goroutine
func (r *Reminder) Start(ctx context.Context) {
	if r.interval <= 0 {
		slog.Info("overdue reminders disabled")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Wait blocks until the worker started by Start has returned
func (r *Reminder) Wait() {
	r.wg.Wait()
}

func (r *Reminder) run(ctx context.Context) {
	slog.Info("reminder worker started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder worker stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs a single overdue check
func (r *Reminder) Tick(ctx context.Context) int {
	slog.Debug("running overdue check")

	sent, err := r.notifier.RemindOverdue(ctx)
	if err != nil {
		slog.Error("failed to send overdue reminders", "error", err)
		return 0
	}

	if sent > 0 {
		slog.Info("overdue reminders sent", "count", sent)
	}
	return sent
}
