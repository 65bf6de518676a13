// Package notify publishes terminal run-status records for the notification
// collaborator (email digests, dashboards) over Redis.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

const (
	// JobRunChannel carries fire-and-forget run events for live listeners.
	JobRunChannel = "phonewatch:jobs"
	// JobRunStream retains run events for consumers that poll.
	JobRunStream = "phonewatch:jobs:stream"

	DefaultRedisAddr = "localhost:6379"
)

// RedisNotifier publishes job runs to a Redis channel and stream.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a notifier for the given Redis address.
func NewRedisNotifier(addr string) *RedisNotifier {
	if addr == "" {
		addr = DefaultRedisAddr
	}
	return &RedisNotifier{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Close closes the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// PublishJobRun publishes one terminal run record to both the pubsub channel
// and the stream.
func (n *RedisNotifier) PublishJobRun(ctx context.Context, run *models.JobRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal job run: %w", err)
	}

	if err := n.client.Publish(ctx, JobRunChannel, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to publish job run: %w", err)
	}

	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: JobRunStream,
		ID:     "*",
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add job run to stream: %w", err)
	}

	return nil
}
