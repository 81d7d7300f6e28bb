package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"carpark/internal/carpark"
)

// Fan-out target names, used in logs and metric labels.
const (
	targetDisplay   = "display"
	targetPublisher = "publisher"
)

// dispatch delivers queued snapshots to one target until the queue closes or
// ctx is cancelled. Each snapshot gets its own retry budget; exhausting it
// drops that snapshot for this target only.
func (c *Coordinator) dispatch(ctx context.Context, target string, queue <-chan carpark.Snapshot, timeout time.Duration, send func(ctx context.Context, snap carpark.Snapshot) error) {
	for snap := range queue {
		if ctx.Err() != nil {
			return
		}
		c.deliver(ctx, target, snap, timeout, send)
	}
}

func (c *Coordinator) deliver(ctx context.Context, target string, snap carpark.Snapshot, timeout time.Duration, send func(ctx context.Context, snap carpark.Snapshot) error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBase

	attempt := 0
	operation := func() error {
		attempt++
		if c.metrics != nil {
			c.metrics.FanoutAttempts.WithLabelValues(target).Inc()
		}

		err := c.attempt(ctx, timeout, snap, send)
		if err != nil {
			c.logger.Debug("fan-out attempt failed",
				"target", target, "attempt", attempt, "error", err)
		}
		return err
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.retryAttempts-1), ctx))
	if err == nil {
		return
	}

	// The store mutation is authoritative; delivery is best effort. Log it,
	// count it, move on to the next snapshot.
	c.logger.Error("fan-out failed, dropping snapshot",
		"target", target, "attempts", attempt, "error", err)
	if c.metrics != nil {
		c.metrics.FanoutFailures.WithLabelValues(target).Inc()
	}
}

// attempt bounds a single delivery. The send runs on its own goroutine and
// is abandoned once the deadline passes, so a sink that blocks without
// honoring ctx still cannot stall the dispatcher.
func (c *Coordinator) attempt(ctx context.Context, timeout time.Duration, snap carpark.Snapshot, send func(ctx context.Context, snap carpark.Snapshot) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- send(attemptCtx, snap)
	}()

	select {
	case err := <-result:
		return err
	case <-attemptCtx.Done():
		return attemptCtx.Err()
	}
}

func (c *Coordinator) render(ctx context.Context, snap carpark.Snapshot) error {
	return c.sink.Render(ctx, snap.Text())
}

func (c *Coordinator) publish(ctx context.Context, snap carpark.Snapshot) error {
	payload, err := snap.Payload()
	if err != nil {
		return backoff.Permanent(fmt.Errorf("encode payload: %w", err))
	}
	return c.pub.Publish(ctx, payload)
}
