// Package sensor defines the input side of the carpark: discrete enter/exit
// intents produced by whatever device guards the gate. Backends are selected
// by configuration at startup; the coordinator only ever sees the Source
// interface and the Event channel.
package sensor

import "context"

// Event is a gate crossing intent. It carries no payload and is consumed
// exactly once by the coordinator.
type Event int

const (
	Enter Event = iota
	Exit
)

func (e Event) String() string {
	switch e {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// Source feeds gate events into out until ctx is cancelled. Implementations
// must preserve the order events were observed in; they must not close out.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}
