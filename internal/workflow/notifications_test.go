package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/models"
)

func TestNotificationReadFlags(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.CreateNotification(f.ctx, models.CreateNotificationRequest{
		UserID: f.translator.ID, Title: "Glossary updated", Message: "See the new terms",
	})
	require.NoError(t, err)
	_, err = f.svc.CreateNotification(f.ctx, models.CreateNotificationRequest{
		UserID: f.translator.ID, Title: "Reminder",
	})
	require.NoError(t, err)

	unread, err := f.svc.ListUnread(f.ctx, f.translator.ID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	_, err = f.svc.MarkRead(WithActor(f.ctx, f.reviewer.ID), first.ID)
	assert.ErrorIs(t, err, ErrNotRecipient)

	read, err := f.svc.MarkRead(WithActor(f.ctx, f.translator.ID), first.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	unread, err = f.svc.ListUnread(f.ctx, f.translator.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Reminder", unread[0].Title)

	updated, err := f.svc.MarkAllRead(f.ctx, f.translator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	all, err := f.svc.ListNotifications(f.ctx, models.NotificationFilters{UserID: f.translator.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateNotificationValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateNotification(f.ctx, models.CreateNotificationRequest{UserID: f.translator.ID})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = f.svc.CreateNotification(f.ctx, models.CreateNotificationRequest{UserID: 999, Title: "x"})
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = f.svc.MarkRead(f.ctx, 999)
	assert.ErrorIs(t, err, ErrUnknownNotification)
}

func TestRemindOverdue(t *testing.T) {
	f := newFixture(t)

	deadline := f.now.Add(24 * time.Hour)
	second := f.user("Lina", "lina@example.com", models.RoleTranslator)
	a, err := f.svc.CreateAssignment(f.ctx, models.CreateAssignmentRequest{
		ProjectID: f.project.ID, UserID: second.ID, Role: models.RoleTranslator, LanguageID: f.french.ID, Deadline: &deadline,
	})
	require.NoError(t, err)
	f.notes.take()

	reminded, err := f.svc.RemindOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, reminded)

	f.now = f.now.Add(48 * time.Hour)

	reminded, err = f.svc.RemindOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reminded)

	notes := f.notes.take()
	require.Len(t, notes, 1)
	assert.Equal(t, second.ID, notes[0].UserID)
	assert.Equal(t, a.ID, notes[0].RelatedID)

	reminded, err = f.svc.RemindOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, reminded)
	assert.Empty(t, f.notes.take())
}
