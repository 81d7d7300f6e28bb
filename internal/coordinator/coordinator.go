// Package coordinator serializes gate events against the lot and fans the
// resulting snapshots out to the display sink and the bus publisher. The two
// targets are isolated from each other: each has its own queue, its own
// retry budget, and its own failure accounting, so a wedged broker never
// blanks the display and a slow display never backs up the gate.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"carpark/internal/carpark"
	"carpark/internal/platform/metrics"
	"carpark/internal/sensor"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBase      = 250 * time.Millisecond
	defaultRenderTimeout  = 2 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultQueueSize      = 16
	defaultShutdownGrace  = 10 * time.Second
)

// Sink renders a formatted status line.
type Sink interface {
	Render(ctx context.Context, text string) error
}

// Publisher delivers a status payload to the bus.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// TemperatureProvider supplies the optional telemetry reading attached to
// snapshots.
type TemperatureProvider interface {
	Temperature() (float64, bool)
}

// Coordinator owns the event-processing loop. Construct with New, then call
// Run exactly once.
type Coordinator struct {
	lot    *carpark.Lot
	sink   Sink
	pub    Publisher
	logger *slog.Logger

	metrics  *metrics.Metrics
	temp     TemperatureProvider
	onReject func(event sensor.Event, err error)

	retryAttempts  uint64
	retryBase      time.Duration
	renderTimeout  time.Duration
	publishTimeout time.Duration
	queueSize      int
	shutdownGrace  time.Duration
}

type Option func(c *Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTemperature attaches a telemetry provider; absent, snapshots carry no
// temperature.
func WithTemperature(p TemperatureProvider) Option {
	return func(c *Coordinator) {
		c.temp = p
	}
}

// WithRetry sets the per-target delivery budget: attempts per snapshot and
// the initial backoff delay between them.
func WithRetry(attempts uint64, base time.Duration) Option {
	return func(c *Coordinator) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithAttemptTimeouts bounds a single render and a single publish attempt.
func WithAttemptTimeouts(render, publish time.Duration) Option {
	return func(c *Coordinator) {
		if render > 0 {
			c.renderTimeout = render
		}
		if publish > 0 {
			c.publishTimeout = publish
		}
	}
}

// WithQueueSize sets the per-target snapshot buffer. When a target falls so
// far behind its queue fills, the oldest pending update for it is dropped.
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithShutdownGrace bounds how long Run waits for in-flight deliveries after
// cancellation before abandoning them.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.shutdownGrace = d
		}
	}
}

// WithRejectionFunc installs a callback for gate events rejected at an
// occupancy boundary, e.g. to sound a buzzer at the gate.
func WithRejectionFunc(fn func(event sensor.Event, err error)) Option {
	return func(c *Coordinator) {
		c.onReject = fn
	}
}

// New constructs a Coordinator over an authoritative lot and its two
// fan-out targets.
func New(lot *carpark.Lot, sink Sink, pub Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		lot:            lot,
		sink:           sink,
		pub:            pub,
		logger:         slog.Default(),
		retryAttempts:  defaultRetryAttempts,
		retryBase:      defaultRetryBase,
		renderTimeout:  defaultRenderTimeout,
		publishTimeout: defaultPublishTimeout,
		queueSize:      defaultQueueSize,
		shutdownGrace:  defaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes gate events until ctx is cancelled or events is closed.
// Events apply strictly one at a time in arrival order; the store mutation
// for an event completes before the next event is read. Fan-out happens off
// the loop, on per-target dispatch goroutines.
func (c *Coordinator) Run(ctx context.Context, events <-chan sensor.Event) error {
	renderQ := make(chan carpark.Snapshot, c.queueSize)
	publishQ := make(chan carpark.Snapshot, c.queueSize)

	// Dispatchers outlive loop cancellation so in-flight deliveries can
	// finish; drain bounds how long.
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.dispatch(workerCtx, targetDisplay, renderQ, c.renderTimeout, c.render)
	}()
	go func() {
		defer wg.Done()
		c.dispatch(workerCtx, targetPublisher, publishQ, c.publishTimeout, c.publish)
	}()

	for {
		select {
		case <-ctx.Done():
			c.drain(renderQ, publishQ, stopWorkers, &wg)
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				c.drain(renderQ, publishQ, stopWorkers, &wg)
				return nil
			}
			c.apply(event, renderQ, publishQ)
		}
	}
}

// apply runs the invariant-checking mutation and, on success, hands one
// snapshot copy to each target queue.
func (c *Coordinator) apply(event sensor.Event, renderQ, publishQ chan carpark.Snapshot) {
	var snap carpark.Snapshot
	var err error
	switch event {
	case sensor.Enter:
		snap, err = c.lot.Enter()
	case sensor.Exit:
		snap, err = c.lot.Exit()
	default:
		c.logger.Warn("dropping unknown gate event", "event", int(event))
		return
	}

	if err != nil {
		c.logger.Warn("gate event rejected",
			"event", event.String(), "error", err, "occupied", c.lot.Occupied())
		if c.metrics != nil {
			c.metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
		}
		if c.onReject != nil {
			c.onReject(event, err)
		}
		return
	}

	if c.temp != nil {
		if celsius, ok := c.temp.Temperature(); ok {
			snap = snap.WithTemperature(celsius)
		}
	}

	c.logger.Info("occupancy changed",
		"event", event.String(), "occupied", snap.Occupied, "available", snap.Available)
	if c.metrics != nil {
		c.metrics.Transitions.WithLabelValues(event.String()).Inc()
		c.metrics.Occupied.Set(float64(snap.Occupied))
		c.metrics.Available.Set(float64(snap.Available))
	}

	c.enqueue(targetDisplay, renderQ, snap)
	c.enqueue(targetPublisher, publishQ, snap)
}

// enqueue never blocks the loop. A full queue means the target is already
// retrying a backlog; the stalest pending snapshot is dropped to make room
// so the target converges on the newest state once it recovers.
func (c *Coordinator) enqueue(target string, queue chan carpark.Snapshot, snap carpark.Snapshot) {
	select {
	case queue <- snap:
		return
	default:
	}

	c.logger.Warn("fan-out queue full, dropping stalest snapshot", "target", target)
	if c.metrics != nil {
		c.metrics.FanoutDropped.WithLabelValues(target).Inc()
	}
	select {
	case <-queue:
	default:
	}
	select {
	case queue <- snap:
	default:
	}
}

func (c *Coordinator) drain(renderQ, publishQ chan carpark.Snapshot, stopWorkers context.CancelFunc, wg *sync.WaitGroup) {
	close(renderQ)
	close(publishQ)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.shutdownGrace):
		c.logger.Warn("abandoning in-flight fan-out after shutdown grace")
		stopWorkers()
		<-done
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, carpark.ErrFull):
		return "full"
	case errors.Is(err, carpark.ErrEmpty):
		return "empty"
	default:
		return "unknown"
	}
}
