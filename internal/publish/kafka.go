package publish

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka publishes snapshots to a Kafka topic, keyed by location so a
// multi-lot cluster preserves per-lot ordering within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	key    []byte
}

// NewKafka connects to the given brokers ("host:port" seeds).
func NewKafka(brokers []string, topic, location string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic, key: []byte(location)}, nil
}

func (k *Kafka) Publish(ctx context.Context, payload []byte) error {
	record := &kgo.Record{Topic: k.topic, Key: k.key, Value: payload}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	k.client.Close()
	return nil
}
