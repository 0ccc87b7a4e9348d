package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// newTestRedisQueue connects to REDIS_TEST_ADDRESS or skips
func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}

	q, err := NewRedisQueue(context.Background(), RedisConfig{
		Address: addr,
		Key:     "workflow-test:" + uuid.NewString(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		q.client.Del(context.Background(), q.key, q.processing)
		q.Close()
	})
	return q
}

func TestRedisQueueAckAndRecover(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &Envelope{ID: "first", Notification: &models.Notification{UserID: 1, Title: "a"}}))
	require.NoError(t, q.Push(ctx, &Envelope{ID: "second", Notification: &models.Notification{UserID: 1, Title: "b"}}))

	env, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "first", env.ID)
	require.NoError(t, q.Ack(ctx, env))

	// claimed but never acknowledged
	env, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "second", env.ID)

	recovered, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	env, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "second", env.ID)
	require.NoError(t, q.Ack(ctx, env))

	env, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, env)
}
