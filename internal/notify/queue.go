// Package notify delivers workflow notifications after the transition that
// produced them has committed. Notifications travel through a queue to a
// worker that persists them, and live subscribers get them through the Hub.
package notify

import (
	"context"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Envelope is one queued notification
type Envelope struct {
	ID           string               `json:"id"`
	Notification *models.Notification `json:"notification"`
	Attempts     int                  `json:"attempts"`
	EnqueuedAt   time.Time            `json:"enqueuedAt"`

	// raw is the encoded form as popped, used to acknowledge it
	raw string
}

// Queue is an at-least-once notification queue. A popped envelope stays
// claimed until it is acknowledged.
type Queue interface {
	// Push enqueues an envelope
	Push(ctx context.Context, env *Envelope) error

	// Pop claims the oldest envelope, waiting up to timeout.
	// It returns nil, nil when nothing arrived in time.
	Pop(ctx context.Context, timeout time.Duration) (*Envelope, error)

	// Ack removes a claimed envelope for good
	Ack(ctx context.Context, env *Envelope) error

	// HealthCheck verifies the queue backend is reachable
	HealthCheck(ctx context.Context) error

	Close() error
}

// MemoryQueue is an in-process Queue used when no Redis is configured.
// Envelopes do not survive a restart.
type MemoryQueue struct {
	ch chan *Envelope
}

// NewMemoryQueue creates an in-process queue holding up to size envelopes
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{ch: make(chan *Envelope, size)}
}

// Push enqueues env, waiting for room until ctx is done
func (q *MemoryQueue) Push(ctx context.Context, env *Envelope) error {
	select {
	case q.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop returns the next envelope or nil after timeout
func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env := <-q.ch:
		return env, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack is a no-op; popped envelopes are already gone
func (q *MemoryQueue) Ack(ctx context.Context, env *Envelope) error {
	return nil
}

// Len returns the number of queued envelopes
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// HealthCheck always succeeds
func (q *MemoryQueue) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (q *MemoryQueue) Close() error {
	return nil
}
