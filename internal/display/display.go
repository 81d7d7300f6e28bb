// Package display defines the output side of the carpark: sinks that render
// the formatted status line. A sink may be slow or fail outright; the
// coordinator bounds each render with a timeout and retries it, so
// implementations only need to honor ctx and report errors.
package display

import "context"

// Sink renders one status line. Implementations must be safe for calls from
// a single dispatch goroutine and should respect ctx cancellation.
type Sink interface {
	Render(ctx context.Context, text string) error
}
