package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue on a Redis list. Popped envelopes are moved to a
// processing list and removed from it on Ack, so envelopes claimed by a worker
// that died are recovered on the next start.
type RedisQueue struct {
	client     *redis.Client
	key        string
	processing string
}

// RedisConfig holds Redis queue settings
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// NewRedisQueue connects to Redis and returns a queue on cfg.Key
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "workflow:notifications"
	}

	return &RedisQueue{
		client:     client,
		key:        key,
		processing: key + ":processing",
	}, nil
}

// Push enqueues env at the head of the list
func (q *RedisQueue) Push(ctx context.Context, env *Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

// Pop moves the oldest envelope onto the processing list and returns it
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	payload, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop notification: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		// an undecodable payload would be retried forever
		q.client.LRem(ctx, q.processing, 1, payload)
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	env.raw = payload

	return &env, nil
}

// Ack removes env from the processing list
func (q *RedisQueue) Ack(ctx context.Context, env *Envelope) error {
	if env.raw == "" {
		return nil
	}
	if err := q.client.LRem(ctx, q.processing, 1, env.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack notification %s: %w", env.ID, err)
	}
	return nil
}

// Recover moves envelopes left on the processing list back onto the queue
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	recovered := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.key, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return recovered, fmt.Errorf("failed to recover notifications: %w", err)
		}
		recovered++
	}

	if recovered > 0 {
		slog.Info("recovered unacknowledged notifications", "count", recovered, "queue", q.key)
	}
	return recovered, nil
}

// HealthCheck verifies Redis connectivity
func (q *RedisQueue) HealthCheck(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
