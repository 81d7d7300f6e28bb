package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"carpark/internal/carpark"
	"carpark/internal/coordinator"
	"carpark/internal/display"
	"carpark/internal/platform/config"
	"carpark/internal/platform/httpserver"
	"carpark/internal/platform/logger"
	"carpark/internal/platform/metrics"
	platformredis "carpark/internal/platform/redis"
	"carpark/internal/publish"
	"carpark/internal/sensor"
	"carpark/internal/telemetry"
	httptransport "carpark/internal/transport/http"
)

// main wires configuration into the lot, the gate sensor, the display sink,
// and the bus publisher, then runs the coordinator until a signal arrives.
// Occupancy behavior lives in the internal packages; this stays assembly.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("carpark daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lot, err := carpark.New(cfg.Location, cfg.Capacity)
	if err != nil {
		return fmt.Errorf("construct lot: %w", err)
	}

	topic := cfg.Topic
	if topic == "" {
		topic = publish.Topic(cfg.Location)
	}
	pub, err := buildPublisher(ctx, cfg, topic)
	if err != nil {
		return fmt.Errorf("connect publisher %q: %w", cfg.PublisherBackend, err)
	}
	defer pub.Close()

	sink, err := buildDisplay(cfg)
	if err != nil {
		return fmt.Errorf("construct display %q: %w", cfg.DisplayBackend, err)
	}

	source, gate, err := buildSensor(cfg, log)
	if err != nil {
		return fmt.Errorf("construct sensor %q: %w", cfg.SensorBackend, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []coordinator.Option{
		coordinator.WithLogger(log),
		coordinator.WithMetrics(m),
		coordinator.WithRetry(cfg.RetryAttempts, cfg.RetryBase),
		coordinator.WithAttemptTimeouts(cfg.RenderTimeout, cfg.PublishTimeout),
	}
	if cfg.TemperatureSimulated {
		opts = append(opts, coordinator.WithTemperature(telemetry.NewSimulated(0, 45)))
	}
	coord := coordinator.New(lot, sink, pub, opts...)

	var registrars []httptransport.Registrar
	if gate != nil {
		registrars = append(registrars, gate)
	}
	srv := httpserver.New(cfg.HTTPAddr, httptransport.NewRouter(log, lot.Status, registrars...))

	log.Info("starting carpark daemon",
		"location", cfg.Location, "capacity", cfg.Capacity,
		"topic", topic, "publisher", cfg.PublisherBackend,
		"sensor", cfg.SensorBackend, "display", cfg.DisplayBackend,
		"http", cfg.HTTPAddr)

	events := make(chan sensor.Event)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coord.Run(ctx, events)
	})
	g.Go(func() error {
		return source.Run(ctx, events)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("carpark daemon stopped")
	return nil
}

func buildPublisher(ctx context.Context, cfg config.Config, topic string) (publish.Publisher, error) {
	switch cfg.PublisherBackend {
	case "mqtt":
		return publish.NewMQTT(cfg.MQTTBrokerURL, topic)
	case "redis":
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return publish.NewRedis(client.Client, topic), nil
	case "kafka":
		return publish.NewKafka(cfg.KafkaBrokers, topic, cfg.Location)
	case "memory":
		return publish.NewMemory(topic), nil
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", cfg.PublisherBackend)
	}
}

func buildDisplay(cfg config.Config) (display.Sink, error) {
	switch cfg.DisplayBackend {
	case "console":
		return display.NewConsole(os.Stdout), nil
	case "file":
		return display.NewFile(cfg.StatusFilePath), nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", cfg.DisplayBackend)
	}
}

// buildSensor returns the event source and, for the HTTP backend, the gate
// to mount on the router.
func buildSensor(cfg config.Config, log *slog.Logger) (sensor.Source, *sensor.HTTPGate, error) {
	switch cfg.SensorBackend {
	case "console":
		return sensor.NewConsole(os.Stdin, log), nil, nil
	case "http":
		gate := sensor.NewHTTPGate(log, 64)
		return gate, gate, nil
	case "simulator":
		return sensor.NewSimulator(cfg.SimulatorRate), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sensor backend %q", cfg.SensorBackend)
	}
}
