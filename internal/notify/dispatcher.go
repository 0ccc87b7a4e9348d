package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Dispatcher hands committed notifications to the queue. Failures are logged
// and never reach the caller.
type Dispatcher struct {
	queue   Queue
	timeout time.Duration
}

// NewDispatcher creates a dispatcher that gives each enqueue at most timeout
func NewDispatcher(queue Queue, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{queue: queue, timeout: timeout}
}

// Dispatch enqueues notifications. It outlives cancellation of ctx so that a
// client hanging up right after a commit does not lose the side effects.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications ...*models.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	for _, n := range notifications {
		env := &Envelope{
			ID:           uuid.NewString(),
			Notification: n,
			EnqueuedAt:   time.Now().UTC(),
		}
		if err := d.queue.Push(ctx, env); err != nil {
			slog.Error("failed to enqueue notification",
				"envelope_id", env.ID,
				"user_id", n.UserID,
				"related_type", n.RelatedType,
				"related_id", n.RelatedID,
				"error", err,
			)
			continue
		}
		slog.Debug("notification enqueued", "envelope_id", env.ID, "user_id", n.UserID)
	}
}
