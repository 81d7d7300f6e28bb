// Package publish delivers status payloads to a message bus. One publisher
// serves one lot: the topic is fixed at construction, derived from the lot
// location, so subscribers key on a stable name. Backends cover the brokers
// this has been deployed against; tests use the in-memory recorder.
package publish

import (
	"context"
	"strings"
)

// Publisher sends one payload to the bus topic. Publish must be safe for
// repeated calls from a single dispatch goroutine and should return once the
// broker acknowledges or ctx expires.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Topic derives the bus topic for a lot location, e.g.
// "Moondalup City" -> "carpark/moondalup-city/status".
func Topic(location string) string {
	slug := strings.ToLower(strings.TrimSpace(location))
	slug = strings.Join(strings.Fields(slug), "-")
	return "carpark/" + slug + "/status"
}
