package publish

import (
	"context"
	"sync"
)

// Memory records payloads in-process. It backs the offline publisher mode
// and doubles as the scripted fake in tests: Fail schedules errors for the
// next publishes, which exercises the coordinator's retry path.
type Memory struct {
	mu       sync.Mutex
	topic    string
	payloads [][]byte
	failures []error
	closed   bool
}

func NewMemory(topic string) *Memory {
	return &Memory{topic: topic}
}

// Fail queues errs to be returned, in order, by upcoming Publish calls.
func (m *Memory) Fail(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

func (m *Memory) Publish(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.payloads = append(m.payloads, buf)
	return nil
}

// Payloads returns a copy of everything published so far.
func (m *Memory) Payloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.payloads))
	copy(out, m.payloads)
	return out
}

// Topic returns the topic this publisher was built for.
func (m *Memory) Topic() string {
	return m.topic
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
