package sensor

import (
	"context"
	"math/rand/v2"
	"time"
)

// Simulator generates gate traffic with exponentially distributed
// inter-arrival times, useful for soak-testing the pipeline without
// hardware. Rate is the mean number of events per second.
type Simulator struct {
	rate      float64
	enterBias float64 // probability an event is an entry
}

func NewSimulator(rate float64) *Simulator {
	if rate <= 0 {
		rate = 0.5
	}
	return &Simulator{rate: rate, enterBias: 0.55}
}

func (s *Simulator) Run(ctx context.Context, out chan<- Event) error {
	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			event := Exit
			if rand.Float64() < s.enterBias {
				event = Enter
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
			timer.Reset(s.nextInterval())
		}
	}
}

func (s *Simulator) nextInterval() time.Duration {
	return time.Duration(rand.ExpFloat64() / s.rate * float64(time.Second))
}
