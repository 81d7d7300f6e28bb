package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpark/internal/carpark"
	"carpark/internal/platform/metrics"
	"carpark/internal/publish"
	"carpark/internal/sensor"
	"carpark/internal/telemetry"
)

var errBrokerDown = errors.New("broker unreachable")

type fakeSink struct {
	mu       sync.Mutex
	texts    []string
	failures []error
}

func (f *fakeSink) fail(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

func (f *fakeSink) Render(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSink) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

// blockingSink never returns and ignores ctx, the worst-behaved display.
type blockingSink struct{}

func (blockingSink) Render(ctx context.Context, text string) error {
	select {}
}

type harness struct {
	lot    *carpark.Lot
	sink   *fakeSink
	pub    *publish.Memory
	events chan sensor.Event
	done   chan error
}

// startCoordinator runs a coordinator with fast retries over a fresh lot.
// Callers send events, then call stop to close the gate and wait for every
// queued fan-out to settle.
func startCoordinator(t *testing.T, capacity int, opts ...Option) *harness {
	t.Helper()

	lot, err := carpark.New("Moondalup", capacity)
	require.NoError(t, err)

	h := &harness{
		lot:    lot,
		sink:   &fakeSink{},
		pub:    publish.NewMemory(publish.Topic("Moondalup")),
		events: make(chan sensor.Event),
		done:   make(chan error, 1),
	}

	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetry(3, time.Millisecond),
		WithAttemptTimeouts(100*time.Millisecond, 100*time.Millisecond),
	}
	coord := New(lot, h.sink, h.pub, append(base, opts...)...)
	go func() {
		h.done <- coord.Run(context.Background(), h.events)
	}()
	return h
}

func (h *harness) send(t *testing.T, events ...sensor.Event) {
	t.Helper()
	for _, e := range events {
		select {
		case h.events <- e:
		case <-time.After(2 * time.Second):
			t.Fatalf("coordinator stopped accepting events")
		}
	}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	close(h.events)
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not drain and stop")
	}
}

func TestCoordinator_FansOutOncePerTransition(t *testing.T) {
	h := startCoordinator(t, 10)
	h.send(t, sensor.Enter)
	h.stop(t)

	// Scenario B: exactly one render and one publish per accepted change.
	require.Len(t, h.sink.Texts(), 1)
	payloads := h.pub.Payloads()
	require.Len(t, payloads, 1)

	var got carpark.Snapshot
	require.NoError(t, json.Unmarshal(payloads[0], &got))
	assert.Equal(t, "Moondalup", got.Location)
	assert.Equal(t, 1, got.Occupied)
	assert.Equal(t, 9, got.Available)
}

func TestCoordinator_DisplayAndPayloadAgree(t *testing.T) {
	h := startCoordinator(t, 10, WithTemperature(telemetry.Static{Celsius: 24}))
	h.send(t, sensor.Enter, sensor.Enter)
	h.stop(t)

	texts := h.sink.Texts()
	payloads := h.pub.Payloads()
	require.Len(t, texts, 2)
	require.Len(t, payloads, 2)

	for i, payload := range payloads {
		var snap carpark.Snapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		assert.Contains(t, texts[i], fmt.Sprintf("Available bays: %03d", snap.Available))
		assert.Contains(t, texts[i], "Temperature: 24°C")
	}
}

func TestCoordinator_PublisherRecoversWithinRetryBudget(t *testing.T) {
	h := startCoordinator(t, 10)
	// Scenario C: two failures, success on the third attempt.
	h.pub.Fail(errBrokerDown, errBrokerDown)

	h.send(t, sensor.Enter)
	h.stop(t)

	require.Len(t, h.pub.Payloads(), 1, "snapshot should be delivered on the third attempt")
	assert.Len(t, h.sink.Texts(), 1, "display must be unaffected by publisher failures")
}

func TestCoordinator_PublisherExhaustsRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := startCoordinator(t, 10, WithMetrics(m))

	// Scenario D: all three attempts fail for the first snapshot.
	h.pub.Fail(errBrokerDown, errBrokerDown, errBrokerDown)

	h.send(t, sensor.Enter)
	h.send(t, sensor.Enter) // loop must keep accepting events
	h.stop(t)

	// The mutation stands even though its broadcast was dropped.
	assert.Equal(t, 2, h.lot.Occupied())
	assert.Len(t, h.sink.Texts(), 2)

	// Second snapshot still went out.
	payloads := h.pub.Payloads()
	require.Len(t, payloads, 1)
	var snap carpark.Snapshot
	require.NoError(t, json.Unmarshal(payloads[0], &snap))
	assert.Equal(t, 2, snap.Occupied)
}

func TestCoordinator_SinkFailureDoesNotBlockPublisher(t *testing.T) {
	h := startCoordinator(t, 10)
	h.sink.fail(errBrokerDown, errBrokerDown, errBrokerDown) // whole budget

	h.send(t, sensor.Enter)
	h.stop(t)

	assert.Empty(t, h.sink.Texts())
	assert.Len(t, h.pub.Payloads(), 1)
}

func TestCoordinator_RejectedEventEmitsNothing(t *testing.T) {
	var mu sync.Mutex
	var rejected []sensor.Event
	h := startCoordinator(t, 1, WithRejectionFunc(func(e sensor.Event, err error) {
		mu.Lock()
		defer mu.Unlock()
		rejected = append(rejected, e)
	}))

	h.send(t, sensor.Exit)  // empty lot
	h.send(t, sensor.Enter) // ok
	h.send(t, sensor.Enter) // full
	h.stop(t)

	assert.Equal(t, 1, h.lot.Occupied())
	assert.Len(t, h.sink.Texts(), 1, "rejections must not reach the display")
	assert.Len(t, h.pub.Payloads(), 1, "rejections must not reach the bus")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []sensor.Event{sensor.Exit, sensor.Enter}, rejected)
}

func TestCoordinator_AppliesEventsInOrder(t *testing.T) {
	h := startCoordinator(t, 100)
	h.send(t, sensor.Enter, sensor.Enter, sensor.Enter, sensor.Exit, sensor.Enter)
	h.stop(t)

	assert.Equal(t, 3, h.lot.Occupied())

	// The published sequence mirrors the mutation sequence.
	var occupied []int
	for _, payload := range h.pub.Payloads() {
		var snap carpark.Snapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		occupied = append(occupied, snap.Occupied)
	}
	assert.Equal(t, []int{1, 2, 3, 2, 3}, occupied)
}

func TestCoordinator_StopsOnContextCancel(t *testing.T) {
	lot, err := carpark.New("Moondalup", 5)
	require.NoError(t, err)
	coord := New(lot, &fakeSink{}, publish.NewMemory("t"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- coord.Run(ctx, make(chan sensor.Event))
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop on cancel")
	}
}

func TestCoordinator_ShutdownGraceBoundsBlockedSink(t *testing.T) {
	lot, err := carpark.New("Moondalup", 5)
	require.NoError(t, err)
	events := make(chan sensor.Event)
	coord := New(lot, blockingSink{}, publish.NewMemory("t"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetry(1, time.Millisecond),
		WithAttemptTimeouts(20*time.Millisecond, 20*time.Millisecond),
		WithShutdownGrace(200*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- coord.Run(context.Background(), events)
	}()

	events <- sensor.Enter
	close(events)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator hung on a sink that ignores cancellation")
	}
}

func TestCoordinator_QueueFullDropsStalestForThatTarget(t *testing.T) {
	lot, err := carpark.New("Moondalup", 100)
	require.NoError(t, err)
	sink := &fakeSink{}
	pub := publish.NewMemory("t")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	coord := New(lot, sink, pub,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
		WithQueueSize(1),
		WithRetry(1, time.Millisecond))

	// Fill the display queue straight from the loop goroutineless path.
	renderQ := make(chan carpark.Snapshot, 1)
	publishQ := make(chan carpark.Snapshot, 1)
	coord.apply(sensor.Enter, renderQ, publishQ)
	coord.apply(sensor.Enter, renderQ, publishQ)
	coord.apply(sensor.Enter, renderQ, publishQ)

	// Queues hold only the newest snapshot; older ones were dropped, counted.
	require.Len(t, renderQ, 1)
	newest := <-renderQ
	assert.Equal(t, 3, newest.Occupied)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FanoutDropped.WithLabelValues("display")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FanoutDropped.WithLabelValues("publisher")))
}
