package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

const defaultNotificationLimit = 50

// CreateNotification stores a notification sent directly by a user or an
// integration. Unlike workflow notifications it is written synchronously.
func (s *Service) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title", ErrMissingField)
	}

	n := &models.Notification{
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Message:     req.Message,
		RelatedType: req.RelatedType,
		RelatedID:   req.RelatedID,
		CreatedAt:   s.now(),
	}
	err := s.run(ctx, "create notification", func(tx storage.Tx, _ *outbox) error {
		if _, err := tx.GetUser(ctx, req.UserID); err != nil {
			return notFound(err, ErrUnknownUser, req.UserID)
		}
		return tx.CreateNotification(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListUnread returns a user's unread notifications, newest first
func (s *Service) ListUnread(ctx context.Context, userID int64) ([]*models.Notification, error) {
	return s.ListNotifications(ctx, models.NotificationFilters{UserID: userID, UnreadOnly: true})
}

// ListNotifications returns a user's notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultNotificationLimit
	}

	var notifications []*models.Notification
	err := s.read(ctx, "list notifications", func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, filters.UserID); err != nil {
			return notFound(err, ErrUnknownUser, filters.UserID)
		}
		var err error
		notifications, err = tx.ListNotifications(ctx, filters)
		return err
	})
	return notifications, err
}

// MarkRead flags a notification as read. With an actor set only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, id int64) (*models.Notification, error) {
	var n *models.Notification
	err := s.run(ctx, "mark notification read", func(tx storage.Tx, _ *outbox) error {
		var err error
		n, err = tx.GetNotification(ctx, id)
		if err != nil {
			return notFound(err, ErrUnknownNotification, id)
		}
		if actor, ok := actorFrom(ctx); ok && actor != n.UserID {
			return fmt.Errorf("%w: notification %d", ErrNotRecipient, id)
		}
		if n.IsRead {
			return nil
		}

		n.IsRead = true
		return tx.MarkNotificationRead(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// MarkAllRead flags every unread notification of a user as read
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	var updated int64
	err := s.run(ctx, "mark all notifications read", func(tx storage.Tx, _ *outbox) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return notFound(err, ErrUnknownUser, userID)
		}
		var err error
		updated, err = tx.MarkAllNotificationsRead(ctx, userID)
		return err
	})
	return updated, err
}
