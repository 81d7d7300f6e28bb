package carpark

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Location:  "Moondalup",
		Capacity:  130,
		Occupied:  37,
		Available: 93,
		Timestamp: time.Date(2026, 8, 30, 12, 3, 11, 0, time.UTC),
	}
}

func TestSnapshot_Text(t *testing.T) {
	snap := testSnapshot()
	assert.Equal(t, "Moondalup | Available bays: 093 | Temperature: n/a | At: 12:03:11", snap.Text())

	withTemp := snap.WithTemperature(24.4)
	assert.Equal(t, "Moondalup | Available bays: 093 | Temperature: 24°C | At: 12:03:11", withTemp.Text())

	// Deterministic: same snapshot, same text.
	assert.Equal(t, withTemp.Text(), withTemp.Text())
}

func TestSnapshot_Payload(t *testing.T) {
	body, err := testSnapshot().WithTemperature(24.4).Payload()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "Moondalup", decoded["location"])
	assert.Equal(t, float64(93), decoded["available"])
	assert.Equal(t, 24.4, decoded["temperature"])
	assert.Contains(t, decoded, "timestamp")
}

func TestSnapshot_PayloadOmitsAbsentTemperature(t *testing.T) {
	body, err := testSnapshot().Payload()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotContains(t, decoded, "temperature")
}

func TestSnapshot_WithTemperatureDoesNotMutate(t *testing.T) {
	snap := testSnapshot()
	_ = snap.WithTemperature(31)
	assert.False(t, snap.HasTemperature)
}
