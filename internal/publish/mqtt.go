package publish

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const mqttKeepAlive = 300 * time.Second

// MQTT publishes snapshots to an MQTT broker at QoS 1. The client ID carries
// a random suffix so two lots (or a restart racing its old session) never
// evict each other from the broker.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// NewMQTT connects to the broker and returns a ready publisher.
// brokerURL is a paho URL such as "tcp://localhost:1883".
func NewMQTT(brokerURL, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("carpark-" + uuid.NewString()[:8]).
		SetKeepAlive(mqttKeepAlive).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", brokerURL, err)
	}
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Publish(ctx context.Context, payload []byte) error {
	token := m.client.Publish(m.topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", m.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", m.topic, ctx.Err())
	}
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
