package notify

import (
	"context"
	"log/slog"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

// Relay returns a storage.Listener handler that loads each announced
// notification and publishes it on the hub.
func Relay(store storage.Store, hub *Hub) func(ctx context.Context, ev storage.NotificationEvent) {
	return func(ctx context.Context, ev storage.NotificationEvent) {
		if hub.Subscribers(ev.UserID) == 0 {
			return
		}

		var n *models.Notification
		err := store.WithTx(ctx, func(tx storage.Tx) error {
			var err error
			n, err = tx.GetNotification(ctx, ev.ID)
			return err
		})
		if err != nil {
			slog.Error("failed to load announced notification", "notification_id", ev.ID, "error", err)
			return
		}

		hub.Publish(n)
	}
}
