package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

// Publisher receives notifications once they are stored
type Publisher interface {
	Publish(n *models.Notification)
}

// WorkerOptions holds delivery worker settings
type WorkerOptions struct {
	// Workers is the number of concurrent consumers
	Workers int
	// DeliveryTimeout bounds a single store write
	DeliveryTimeout time.Duration
	// MaxAttempts is how often an envelope is tried before it is dropped
	MaxAttempts int
	// PollTimeout is how long a consumer blocks on an empty queue
	PollTimeout time.Duration
	// Publisher, if set, is told about every stored notification
	Publisher Publisher
}

// Worker consumes the queue and persists notifications
type Worker struct {
	queue Queue
	store storage.Store
	opts  WorkerOptions
	wg    sync.WaitGroup
}

// NewWorker creates a delivery worker
func NewWorker(queue Queue, store storage.Store, opts WorkerOptions) *Worker {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 2 * time.Second
	}

	return &Worker{
		queue: queue,
		store: store,
		opts:  opts,
	}
}

// Start launches the consumers; they stop when ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	slog.Info("notification worker started", "workers", w.opts.Workers)

	for i := 0; i < w.opts.Workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}
}

// Wait blocks until every consumer has stopped
func (w *Worker) Wait() {
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

func (w *Worker) run(ctx context.Context, id int) {
	for ctx.Err() == nil {
		if _, err := w.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			slog.Error("notification worker failed to poll", "worker", id, "error", err)
			// back off so a broken queue does not spin
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext delivers one envelope. It reports whether an envelope was
// taken; an error means the queue itself failed.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	env, err := w.queue.Pop(ctx, w.opts.PollTimeout)
	if err != nil {
		return false, err
	}
	if env == nil {
		return false, nil
	}

	w.deliver(ctx, env)
	return true, nil
}

func (w *Worker) deliver(ctx context.Context, env *Envelope) {
	n := env.Notification
	if n == nil {
		slog.Error("dropping empty notification envelope", "envelope_id", env.ID)
		w.ack(ctx, env)
		return
	}

	dctx, cancel := context.WithTimeout(ctx, w.opts.DeliveryTimeout)
	err := w.store.WithTx(dctx, func(tx storage.Tx) error {
		return tx.CreateNotification(dctx, n)
	})
	cancel()

	switch {
	case err == nil:
		w.ack(ctx, env)
		slog.Debug("notification delivered", "envelope_id", env.ID, "notification_id", n.ID, "user_id", n.UserID)
		if w.opts.Publisher != nil {
			w.opts.Publisher.Publish(n)
		}

	case errors.Is(err, storage.ErrNotFound):
		slog.Error("dropping notification for unknown recipient", "envelope_id", env.ID, "user_id", n.UserID)
		w.ack(ctx, env)

	default:
		env.Attempts++
		w.ack(ctx, env)
		if env.Attempts >= w.opts.MaxAttempts {
			slog.Error("dropping notification after repeated failures",
				"envelope_id", env.ID,
				"user_id", n.UserID,
				"attempts", env.Attempts,
				"error", err,
			)
			return
		}

		slog.Warn("notification delivery failed, requeueing",
			"envelope_id", env.ID,
			"attempts", env.Attempts,
			"error", err,
		)
		if err := w.queue.Push(context.WithoutCancel(ctx), env); err != nil {
			slog.Error("failed to requeue notification", "envelope_id", env.ID, "error", err)
		}
	}
}

func (w *Worker) ack(ctx context.Context, env *Envelope) {
	if err := w.queue.Ack(context.WithoutCancel(ctx), env); err != nil {
		slog.Error("failed to acknowledge notification", "envelope_id", env.ID, "error", err)
	}
}
