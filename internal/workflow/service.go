// Package workflow implements the translation workflow: assignments, the
// translation, review and approval stages, and the project status they roll
// up into. Every operation runs as one store transaction; notifications are
// handed to the Notifier only after that transaction commits.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
)

// Notifier receives the notifications produced by a committed transition.
// Implementations must not block the caller for long and must not fail it.
type Notifier interface {
	Dispatch(ctx context.Context, notifications ...*models.Notification)
}

// Options holds optional service parameters
type Options struct {
	// Attempts is how many times an operation is tried when the store is unavailable
	Attempts int
	// Now overrides the clock
	Now func() time.Time
}

// Service is the workflow orchestrator. It is the only writer of workflow state.
type Service struct {
	store     storage.Store
	notifier  Notifier
	templates *templates.Loader
	now       func() time.Time
	attempts  int
}

// NewService creates a workflow service
func NewService(store storage.Store, notifier Notifier, loader *templates.Loader, opts Options) *Service {
	if opts.Attempts <= 0 {
		opts.Attempts = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:     store,
		notifier:  notifier,
		templates: loader,
		now:       func() time.Time { return opts.Now().UTC() },
		attempts:  opts.Attempts,
	}
}

// Ping checks that the store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// outbox collects notifications inside a transaction attempt
type outbox struct {
	svc   *Service
	items []*models.Notification
}

// add renders a template for userID. Rendering problems are logged and the
// notification is dropped; they never fail the transition.
func (o *outbox) add(userID int64, key string, data templates.Data, relatedType string, relatedID int64) {
	title, message, err := o.svc.templates.Render(key, data)
	if err != nil {
		slog.Error("failed to render notification", "template", key, "user_id", userID, "error", err)
		return
	}

	o.items = append(o.items, &models.Notification{
		UserID:      userID,
		Title:       title,
		Message:     message,
		RelatedType: relatedType,
		RelatedID:   relatedID,
		CreatedAt:   o.svc.now(),
	})
}

// run executes fn in a transaction, retrying while the store is unavailable.
// Workflow errors pass through untouched.
func (s *Service) run(ctx context.Context, op string, fn func(tx storage.Tx, out *outbox) error) error {
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		out := &outbox{svc: s}
		err := s.store.WithTx(ctx, func(tx storage.Tx) error {
			return fn(tx, out)
		})

		if err == nil {
			if len(out.items) > 0 && s.notifier != nil {
				s.notifier.Dispatch(ctx, out.items...)
			}
			return nil
		}

		if !errors.Is(err, storage.ErrUnavailable) {
			return fromStore(err)
		}

		lastErr = err
		slog.Warn("store unavailable", "op", op, "attempt", attempt, "error", err)
	}

	return fmt.Errorf("%w: %s: %v", ErrInfrastructure, op, lastErr)
}

// read executes a read-only fn with the same retry policy as run
func (s *Service) read(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	return s.run(ctx, op, func(tx storage.Tx, _ *outbox) error {
		return fn(tx)
	})
}

type actorKey struct{}

// WithActor marks ctx as acting on behalf of userID. Stage operations then
// only accept assignments held by that user.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func actorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}

// heldByActor reports whether the assignment belongs to the acting user, if any
func heldByActor(ctx context.Context, a *models.Assignment) bool {
	id, ok := actorFrom(ctx)
	return !ok || a.UserID == id
}
