package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Console reads gate events from line-oriented input, one token per line.
// It stands in for the tutorial's keyboard-driven gate during development.
type Console struct {
	in     io.Reader
	logger *slog.Logger
}

func NewConsole(in io.Reader, logger *slog.Logger) *Console {
	return &Console{in: in, logger: logger}
}

// Run scans lines until EOF or ctx cancellation. Unrecognised tokens are
// logged and skipped rather than aborting the gate.
func (c *Console) Run(ctx context.Context, out chan<- Event) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("read console input: %w", err)
				}
				return nil
			}
			event, ok := parseToken(line)
			if !ok {
				if strings.TrimSpace(line) != "" {
					c.logger.Warn("ignoring unrecognised gate token", "token", line)
				}
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func parseToken(line string) (Event, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "i", "in", "enter":
		return Enter, true
	case "o", "out", "exit":
		return Exit, true
	default:
		return 0, false
	}
}
