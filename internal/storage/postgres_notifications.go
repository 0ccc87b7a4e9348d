package storage

import (
	"context"
	"fmt"

	"github.com/terra-clan/translation-workflow/internal/models"
)

const notificationColumns = `id, user_id, title, message, related_type, related_id, is_read, created_at`

func scanNotification(row scanner) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.RelatedType, &n.RelatedID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNotification inserts a notification. The notifications_created_notify
// trigger announces the row on the notification_created channel.
func (t *pgTx) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, related_type, related_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		n.UserID, n.Title, n.Message, n.RelatedType, n.RelatedID, n.IsRead, n.CreatedAt,
	).Scan(&n.ID)
	return classify(err, "create notification")
}

func (t *pgTx) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(t.tx.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "get notification")
	}
	return n, nil
}

func (t *pgTx) ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error) {
	var w whereBuilder
	if filters.UserID != 0 {
		w.add("user_id = $%d", filters.UserID)
	}
	if filters.UnreadOnly {
		w.add("is_read = $%d", false)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + ` ORDER BY id DESC`
	if filters.Limit > 0 {
		query += " LIMIT " + w.arg(filters.Limit)
	}
	if filters.Offset > 0 {
		query += " OFFSET " + w.arg(filters.Offset)
	}

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, classify(err, "list notifications")
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, classify(err, "scan notification")
		}
		notifications = append(notifications, n)
	}

	return notifications, classify(rows.Err(), "iterate notifications")
}

// MarkNotificationRead toggles the read flag, the only mutation notifications allow
func (t *pgTx) MarkNotificationRead(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return classify(err, "mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %d", ErrNotFound, id)
	}
	return nil
}

func (t *pgTx) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, classify(err, "mark notifications read")
	}
	return tag.RowsAffected(), nil
}
