package display

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console writes status lines to a writer, one per update. The stand-in for
// the tutorial's LED matrix when running at a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Render(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return fmt.Errorf("write status line: %w", err)
	}
	return nil
}
