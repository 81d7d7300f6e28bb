//go:build integration

// Package containers starts throwaway broker instances for integration
// tests. Containers are torn down through t.Cleanup; Ryuk reaps anything a
// crashed test run leaves behind.
package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance with a connected
// client for assertions.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
}

// NewRedisContainer starts a Redis container and pings it.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}

	rc := &RedisContainer{Container: container, URL: url}
	rc.Client = rc.NewClient(t)
	if err := rc.Client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	return rc
}

// NewClient opens an additional client against the container, closed via
// t.Cleanup. Useful when a publisher under test wants to own its own
// connection lifecycle.
func (r *RedisContainer) NewClient(t *testing.T) *redis.Client {
	t.Helper()

	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		t.Fatalf("parse redis URL %q: %v", r.URL, err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
