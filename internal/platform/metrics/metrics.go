package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the daemon.
type Metrics struct {
	Transitions    *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	FanoutAttempts *prometheus.CounterVec
	FanoutFailures *prometheus.CounterVec
	FanoutDropped  *prometheus.CounterVec
	Occupied       prometheus.Gauge
	Available      prometheus.Gauge
}

// New creates all metrics against the given registerer. main passes
// prometheus.DefaultRegisterer; tests pass their own registry so parallel
// packages never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carpark_transitions_total",
			Help: "Accepted occupancy transitions by direction.",
		}, []string{"direction"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carpark_rejections_total",
			Help: "Gate events rejected at an occupancy boundary.",
		}, []string{"reason"}),
		FanoutAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carpark_fanout_attempts_total",
			Help: "Delivery attempts per fan-out target, including retries.",
		}, []string{"target"}),
		FanoutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carpark_fanout_failures_total",
			Help: "Snapshots abandoned after exhausting retries, per target.",
		}, []string{"target"}),
		FanoutDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carpark_fanout_dropped_total",
			Help: "Snapshots dropped because a target queue was full.",
		}, []string{"target"}),
		Occupied: factory.NewGauge(prometheus.GaugeOpts{
			Name: "carpark_occupied_bays",
			Help: "Currently occupied bays.",
		}),
		Available: factory.NewGauge(prometheus.GaugeOpts{
			Name: "carpark_available_bays",
			Help: "Currently available bays.",
		}),
	}
}
