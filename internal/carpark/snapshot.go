package carpark

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is an immutable point-in-time view of the lot. Copies of one
// snapshot go to the display sink and the bus publisher independently, so
// neither holds a reference back into the Lot's mutable state.
type Snapshot struct {
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	Occupied  int       `json:"occupied"`
	Available int       `json:"available"`
	Timestamp time.Time `json:"timestamp"`

	// Temperature is ancillary telemetry and may be absent.
	Temperature    float64 `json:"temperature,omitempty"`
	HasTemperature bool    `json:"-"`
}

// WithTemperature returns a copy carrying a temperature reading.
func (s Snapshot) WithTemperature(celsius float64) Snapshot {
	s.Temperature = celsius
	s.HasTemperature = true
	return s
}

// Text renders the snapshot for human-readable sinks. Deterministic, and the
// sole formatter for both display and broadcast content, so the two never
// disagree on what the lot looks like.
func (s Snapshot) Text() string {
	temp := "n/a"
	if s.HasTemperature {
		temp = fmt.Sprintf("%.0f°C", s.Temperature)
	}
	return fmt.Sprintf("%s | Available bays: %03d | Temperature: %s | At: %s",
		s.Location, s.Available, temp, s.Timestamp.Format("15:04:05"))
}

// Payload encodes the snapshot for the message bus.
func (s Snapshot) Payload() ([]byte, error) {
	body := struct {
		Snapshot
		Temperature *float64 `json:"temperature,omitempty"`
	}{Snapshot: s}
	if s.HasTemperature {
		body.Temperature = &s.Temperature
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}
