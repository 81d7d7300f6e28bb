package sensor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HTTPGate accepts gate events over HTTP, the backend used when the physical
// gate hardware posts webhooks instead of driving a local device. Events are
// enqueued without blocking the request; a full queue answers 503 so the
// device can retry, matching its at-least-once delivery posture.
type HTTPGate struct {
	logger *slog.Logger
	events chan Event
}

func NewHTTPGate(logger *slog.Logger, queueSize int) *HTTPGate {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &HTTPGate{
		logger: logger,
		events: make(chan Event, queueSize),
	}
}

// Register mounts the gate routes on the given router.
func (g *HTTPGate) Register(r chi.Router) {
	r.Post("/sensor/enter", g.handle(Enter))
	r.Post("/sensor/exit", g.handle(Exit))
}

func (g *HTTPGate) handle(event Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case g.events <- event:
			writeJSON(w, http.StatusAccepted, map[string]string{"event": event.String()})
		default:
			g.logger.Warn("gate queue full, rejecting event", "event", event.String())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gate queue full"})
		}
	}
}

// Run drains the HTTP-side queue into the coordinator's channel, preserving
// arrival order.
func (g *HTTPGate) Run(ctx context.Context, out chan<- Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-g.events:
			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
