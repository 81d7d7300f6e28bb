package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the daemon. Values come from
// environment variables with development-friendly defaults; validation
// failures are fatal before the coordinator starts.
type Config struct {
	Location string
	Capacity int

	SensorBackend    string // console, http, simulator
	DisplayBackend   string // console, file
	PublisherBackend string // mqtt, redis, kafka, memory

	HTTPAddr       string
	StatusFilePath string
	SimulatorRate  float64

	MQTTBrokerURL string
	RedisURL      string
	KafkaBrokers  []string
	Topic         string

	RetryAttempts  uint64
	RetryBase      time.Duration
	RenderTimeout  time.Duration
	PublishTimeout time.Duration

	TemperatureSimulated bool
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Location:         envOr("CARPARK_LOCATION", "Moondalup"),
		SensorBackend:    envOr("CARPARK_SENSOR", "console"),
		DisplayBackend:   envOr("CARPARK_DISPLAY", "console"),
		PublisherBackend: envOr("CARPARK_PUBLISHER", "mqtt"),
		HTTPAddr:         envOr("CARPARK_HTTP_ADDR", ":8080"),
		StatusFilePath:   envOr("CARPARK_STATUS_FILE", "carpark-status.txt"),
		MQTTBrokerURL:    envOr("CARPARK_MQTT_BROKER", "tcp://localhost:1883"),
		RedisURL:         envOr("CARPARK_REDIS_URL", "redis://localhost:6379"),
	}

	var err error
	if cfg.Capacity, err = envInt("CARPARK_CAPACITY", 130); err != nil {
		return Config{}, err
	}
	if cfg.Capacity < 1 {
		return Config{}, fmt.Errorf("CARPARK_CAPACITY must be positive, got %d", cfg.Capacity)
	}

	attempts, err := envInt("CARPARK_RETRY_ATTEMPTS", 3)
	if err != nil {
		return Config{}, err
	}
	if attempts < 1 {
		return Config{}, fmt.Errorf("CARPARK_RETRY_ATTEMPTS must be at least 1, got %d", attempts)
	}
	cfg.RetryAttempts = uint64(attempts)

	if cfg.RetryBase, err = envDuration("CARPARK_RETRY_BASE", 250*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.RenderTimeout, err = envDuration("CARPARK_RENDER_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PublishTimeout, err = envDuration("CARPARK_PUBLISH_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.SimulatorRate, err = envFloat("CARPARK_SIMULATOR_RATE", 0.5); err != nil {
		return Config{}, err
	}

	if brokers := os.Getenv("CARPARK_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	} else {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}

	cfg.Topic = os.Getenv("CARPARK_TOPIC") // empty means derive from location
	cfg.TemperatureSimulated = envOr("CARPARK_TEMPERATURE", "simulated") == "simulated"

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
