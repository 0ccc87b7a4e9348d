package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

func seedUser(t *testing.T, store *storage.MemoryStore) *models.User {
	t.Helper()
	u := &models.User{Name: "Rana", Email: "rana@example.com", Role: models.RoleReviewer, IsActive: true}
	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.CreateUser(context.Background(), u)
	})
	require.NoError(t, err)
	return u
}

func storedNotifications(t *testing.T, store *storage.MemoryStore, userID int64) []*models.Notification {
	t.Helper()
	var out []*models.Notification
	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		var err error
		out, err = tx.ListNotifications(context.Background(), models.NotificationFilters{UserID: userID})
		return err
	})
	require.NoError(t, err)
	return out
}

func TestMemoryQueuePopTimeout(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()

	env, err := q.Pop(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, env)

	require.NoError(t, q.Push(ctx, &Envelope{ID: "a"}))
	assert.Equal(t, 1, q.Len())

	// full queue respects the caller's deadline
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Push(short, &Envelope{ID: "b"}), context.DeadlineExceeded)

	env, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "a", env.ID)
}

func TestDispatchAndDeliver(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	user := seedUser(t, store)

	queue := NewMemoryQueue(8)
	hub := NewHub(4)
	sub := hub.Subscribe(user.ID)
	defer sub.Close()

	d := NewDispatcher(queue, time.Second)
	d.Dispatch(ctx,
		&models.Notification{UserID: user.ID, Title: "one"},
		&models.Notification{UserID: user.ID, Title: "two"},
	)
	require.Equal(t, 2, queue.Len())

	w := NewWorker(queue, store, WorkerOptions{PollTimeout: 10 * time.Millisecond, Publisher: hub})
	for i := 0; i < 2; i++ {
		took, err := w.ProcessNext(ctx)
		require.NoError(t, err)
		assert.True(t, took)
	}
	took, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, took)

	stored := storedNotifications(t, store, user.ID)
	require.Len(t, stored, 2)
	assert.Equal(t, "two", stored[0].Title)

	live := <-sub.C
	assert.Equal(t, "one", live.Title)
	assert.NotZero(t, live.ID)
}

func TestDispatchSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queue := NewMemoryQueue(1)
	NewDispatcher(queue, time.Second).Dispatch(ctx, &models.Notification{UserID: 1, Title: "x"})
	assert.Equal(t, 1, queue.Len())
}

func TestDispatchFailureIsNotFatal(t *testing.T) {
	queue := NewMemoryQueue(1)
	d := NewDispatcher(queue, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(),
			&models.Notification{UserID: 1, Title: "fits"},
			&models.Notification{UserID: 1, Title: "dropped"},
		)
	})
	assert.Equal(t, 1, queue.Len())
}

func TestWorkerRequeuesUntilMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	user := seedUser(t, store)
	queue := NewMemoryQueue(8)

	w := NewWorker(queue, store, WorkerOptions{PollTimeout: 10 * time.Millisecond, MaxAttempts: 2})
	NewDispatcher(queue, time.Second).Dispatch(ctx, &models.Notification{UserID: user.ID, Title: "retry"})

	// first attempt fails and is requeued, second succeeds
	store.FailNext(1)
	_, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, queue.Len())

	_, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Len(t, storedNotifications(t, store, user.ID), 1)

	// two failures exhaust the attempts
	NewDispatcher(queue, time.Second).Dispatch(ctx, &models.Notification{UserID: user.ID, Title: "lost"})
	store.FailNext(2)
	_, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	_, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Zero(t, queue.Len())
	assert.Len(t, storedNotifications(t, store, user.ID), 1)
}

func TestWorkerDropsUnknownRecipient(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	queue := NewMemoryQueue(8)

	NewDispatcher(queue, time.Second).Dispatch(ctx, &models.Notification{UserID: 42, Title: "nobody"})

	w := NewWorker(queue, store, WorkerOptions{PollTimeout: 10 * time.Millisecond})
	took, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, took)
	assert.Zero(t, queue.Len())
}

func TestWorkerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := storage.NewMemoryStore()
	user := seedUser(t, store)
	queue := NewMemoryQueue(8)

	w := NewWorker(queue, store, WorkerOptions{Workers: 2, PollTimeout: 10 * time.Millisecond})
	w.Start(ctx)

	NewDispatcher(queue, time.Second).Dispatch(ctx, &models.Notification{UserID: user.ID, Title: "async"})

	require.Eventually(t, func() bool {
		return len(storedNotifications(t, store, user.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
}

func TestHub(t *testing.T) {
	hub := NewHub(1)

	a := hub.Subscribe(1)
	b := hub.Subscribe(1)
	other := hub.Subscribe(2)
	assert.Equal(t, 2, hub.Subscribers(1))

	hub.Publish(&models.Notification{ID: 10, UserID: 1})
	assert.Equal(t, int64(10), (<-a.C).ID)
	assert.Equal(t, int64(10), (<-b.C).ID)
	assert.Empty(t, other.C)

	// a full subscriber is skipped rather than blocking
	hub.Publish(&models.Notification{ID: 11, UserID: 1})
	hub.Publish(&models.Notification{ID: 12, UserID: 1})
	assert.Equal(t, int64(11), (<-a.C).ID)

	a.Close()
	a.Close()
	_, open := <-a.C
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers(1))

	b.Close()
	other.Close()
	assert.Zero(t, hub.Subscribers(1))
}

func TestRelay(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	user := seedUser(t, store)

	n := &models.Notification{UserID: user.ID, Title: "from the database"}
	require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateNotification(ctx, n)
	}))

	hub := NewHub(1)
	relay := Relay(store, hub)

	// nobody listening, nothing loaded
	relay(ctx, storage.NotificationEvent{ID: n.ID, UserID: user.ID})

	sub := hub.Subscribe(user.ID)
	defer sub.Close()

	relay(ctx, storage.NotificationEvent{ID: n.ID, UserID: user.ID})
	got := <-sub.C
	assert.Equal(t, "from the database", got.Title)

	relay(ctx, storage.NotificationEvent{ID: 999, UserID: user.ID})
	assert.Empty(t, sub.C)
}
