package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// NotificationChannel is the channel the notifications trigger publishes on
const NotificationChannel = "notification_created"

// NotificationEvent is the payload of a notification_created event
type NotificationEvent struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`
}

// ParseNotificationEvent decodes a notification_created payload
func ParseNotificationEvent(payload string) (NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("failed to decode notification event: %w", err)
	}
	if ev.ID == 0 || ev.UserID == 0 {
		return ev, fmt.Errorf("incomplete notification event: %q", payload)
	}
	return ev, nil
}

// Listener relays PostgreSQL notification_created events.
// It holds a dedicated lib/pq connection outside the pgx pool because LISTEN
// needs a connection that is never handed back to other queries.
type Listener struct {
	dsn          string
	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

// NewListener creates a listener for the database at dsn
func NewListener(dsn string) *Listener {
	return &Listener{
		dsn:          dsn,
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Run listens until ctx is cancelled, calling handle for every event
func (l *Listener) Run(ctx context.Context, handle func(ctx context.Context, ev NotificationEvent)) error {
	listener := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("notification listener connection event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(NotificationChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", NotificationChannel, err)
	}

	slog.Info("notification listener started", "channel", NotificationChannel)

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification listener stopped")
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; events sent while disconnected are lost
			if n == nil {
				slog.Warn("notification listener reconnected")
				continue
			}
			ev, err := ParseNotificationEvent(n.Extra)
			if err != nil {
				slog.Error("invalid notification event", "error", err)
				continue
			}
			handle(ctx, ev)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					slog.Warn("notification listener ping failed", "error", err)
				}
			}()
		}
	}
}
