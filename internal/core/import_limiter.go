package core

// import_limiter.go bounds how many dataset imports run at once in this
// process. With the default of one slot, HTTP-triggered imports queue
// behind each other instead of contending for the same Type and
// Generation rows.

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTooManyImports is returned when no slot frees up within the wait time.
	ErrTooManyImports = errors.New("too many imports in progress, please try again later")

	// ErrImportsClosed is returned once Close has been called.
	ErrImportsClosed = errors.New("imports are closed: server is shutting down")
)

const (
	DefaultMaxConcurrentImports = 1
	DefaultImportWait           = 30 * time.Second
)

// ImportLimiter is a counting semaphore for import runs.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	active  int
	drained chan struct{} // closed while active == 0

	closed    chan struct{}
	closeOnce sync.Once
}

// NewImportLimiter allows maxConcurrent simultaneous imports. Callers that
// cannot get a slot within maxWait receive ErrTooManyImports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultImportWait
	}
	drained := make(chan struct{})
	close(drained)

	return &ImportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		drained: drained,
		closed:  make(chan struct{}),
	}
}

// Acquire blocks until a slot is free, maxWait elapses, ctx is done or the
// limiter is closed.
// Every successful Acquire must be paired with Release.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	if l.isClosed() {
		return ErrImportsClosed
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		if l.isClosed() {
			<-l.slots
			return ErrImportsClosed
		}
		l.track(+1)
		return nil
	case <-l.closed:
		return ErrImportsClosed
	case <-timer.C:
		return ErrTooManyImports
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *ImportLimiter) TryAcquire() bool {
	if l.isClosed() {
		return false
	}
	select {
	case l.slots <- struct{}{}:
		l.track(+1)
		return true
	default:
		return false
	}
}

// Close makes every later Acquire fail with ErrImportsClosed and wakes
// callers still waiting for a slot. Imports already holding a slot are
// unaffected; use WaitForDrain to wait for them.
func (l *ImportLimiter) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

func (l *ImportLimiter) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ImportLimiter) Release() {
	l.track(-1)
	<-l.slots
}

func (l *ImportLimiter) track(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == 0 && delta > 0 {
		l.drained = make(chan struct{})
	}
	l.active += delta
	if l.active == 0 {
		close(l.drained)
	}
	importSlotsActive.Set(float64(l.active))
}

// Active returns the number of imports holding a slot.
func (l *ImportLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until no import holds a slot or ctx is done. The
// server calls it during shutdown so running imports commit or roll back
// before the pool closes.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		drained := l.drained
		idle := l.active == 0
		l.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ImportLimiterStatus is a point-in-time view of the limiter.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current slot usage.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := l.Active()
	return ImportLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
