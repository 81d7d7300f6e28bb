package carpark

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sentinel errors for occupancy boundaries. The lot reports these instead of
// clamping; callers decide what a rejected transition means for the device.
var (
	ErrFull  = errors.New("lot at capacity")
	ErrEmpty = errors.New("lot already empty")
)

// Lot owns the authoritative occupancy count for one parking facility. It is
// the only place occupancy mutates, and every mutation holds the lock so the
// 0 <= occupied <= capacity invariant survives concurrent callers.
type Lot struct {
	mu       sync.Mutex
	location string
	capacity int
	occupied int

	now func() time.Time
}

type Option func(l *Lot)

// WithClock overrides the snapshot timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Lot) {
		l.now = now
	}
}

// New constructs an empty Lot.
func New(location string, capacity int, opts ...Option) (*Lot, error) {
	if location == "" {
		return nil, errors.New("lot location must not be empty")
	}
	if capacity < 1 {
		return nil, fmt.Errorf("lot capacity must be positive, got %d", capacity)
	}
	l := &Lot{
		location: location,
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Enter records a vehicle entering. At capacity it returns ErrFull and
// leaves the count unchanged.
func (l *Lot) Enter() (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.occupied == l.capacity {
		return Snapshot{}, ErrFull
	}
	l.occupied++
	return l.snapshotLocked(), nil
}

// Exit records a vehicle leaving. On an empty lot it returns ErrEmpty and
// leaves the count unchanged.
func (l *Lot) Exit() (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.occupied == 0 {
		return Snapshot{}, ErrEmpty
	}
	l.occupied--
	return l.snapshotLocked(), nil
}

// Status returns the current state without mutating it.
func (l *Lot) Status() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Location returns the immutable facility identifier.
func (l *Lot) Location() string {
	return l.location
}

// Capacity returns the total number of bays.
func (l *Lot) Capacity() int {
	return l.capacity
}

// Occupied returns the current count. Exposed for tests and the status
// endpoint; mutation still goes through Enter/Exit only.
func (l *Lot) Occupied() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.occupied
}

func (l *Lot) snapshotLocked() Snapshot {
	return Snapshot{
		Location:  l.location,
		Capacity:  l.capacity,
		Occupied:  l.occupied,
		Available: l.capacity - l.occupied,
		Timestamp: l.now(),
	}
}
