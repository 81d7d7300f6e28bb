// Package telemetry supplies ancillary sensor readings attached to status
// snapshots. Only temperature for now.
package telemetry

import (
	"math/rand/v2"
	"sync"
)

// Provider reports the current ambient temperature in celsius. The second
// return is false when no reading is available; snapshots then omit the
// field rather than broadcasting a stale or invented value.
type Provider interface {
	Temperature() (float64, bool)
}

// Static always reports the same reading. Used where the lot has no
// thermometer but operators want a configured placeholder.
type Static struct {
	Celsius float64
}

func (s Static) Temperature() (float64, bool) {
	return s.Celsius, true
}

// Simulated produces a bounded random walk between min and max, standing in
// for the tutorial's sense-hat thermometer.
type Simulated struct {
	mu       sync.Mutex
	min, max float64
	current  float64
	started  bool
}

func NewSimulated(min, max float64) *Simulated {
	if max <= min {
		min, max = 0, 45
	}
	return &Simulated{min: min, max: max}
}

func (s *Simulated) Temperature() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.current = s.min + rand.Float64()*(s.max-s.min)
		s.started = true
		return s.current, true
	}

	s.current += rand.Float64() - 0.5
	if s.current < s.min {
		s.current = s.min
	}
	if s.current > s.max {
		s.current = s.max
	}
	return s.current, true
}
