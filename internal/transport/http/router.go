// Package httptransport exposes the daemon's operational surface: health,
// prometheus metrics, the current lot status, and any HTTP-backed gate
// sensor. It stays thin; occupancy behavior lives behind the coordinator.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carpark/internal/carpark"
)

// Registrar lets a collaborator mount its own routes, e.g. the HTTP gate
// sensor.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the operational endpoints. status reads the authoritative
// lot state on demand.
func NewRouter(logger *slog.Logger, status func() carpark.Snapshot, extra ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		snap := status()
		body, err := snap.Payload()
		if err != nil {
			logger.Error("encode status", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode status"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})

	for _, reg := range extra {
		reg.Register(r)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
