package publish

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis publishes snapshots over Redis pub/sub. Deployments already running
// Redis for other tenants use this instead of standing up an MQTT broker.
type Redis struct {
	client *redis.Client
	topic  string
}

// NewRedis wraps an already-connected client. The caller owns the client's
// lifecycle only until construction; Close tears it down.
func NewRedis(client *redis.Client, topic string) *Redis {
	return &Redis{client: client, topic: topic}
}

func (r *Redis) Publish(ctx context.Context, payload []byte) error {
	if err := r.client.Publish(ctx, r.topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.topic, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
