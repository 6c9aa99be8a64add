package core

// parse_limiter.go bounds the number of documents parsed at once.
//
// Parsing reads a whole document into memory, so the limiter is what keeps
// a burst of uploads from multiplying memory use. Requests that cannot get
// a slot wait up to maxWait and then fail with ErrTooManyParses.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyParses is returned when every parse slot stayed busy for the
// whole wait. Clients should retry after a short delay.
var ErrTooManyParses = errors.New("too many parses in progress, please try again later")

// DefaultMaxConcurrentParses is the default number of parallel parses.
const DefaultMaxConcurrentParses = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ParseLimiter is a counting semaphore with a bounded wait.
type ParseLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu       sync.Mutex
	active   int
	drained  chan struct{}
	onChange func(active int)
}

// NewParseLimiter allows at most maxConcurrent parses at once. Callers that
// cannot get a slot within maxWait receive ErrTooManyParses.
func NewParseLimiter(maxConcurrent int, maxWait time.Duration) *ParseLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentParses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ParseLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must call Release exactly once after a
// nil return. A cancelled ctx wins over the wait timeout.
func (l *ParseLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTooManyParses
	}
}

// TryAcquire takes a slot without waiting.
func (l *ParseLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ParseLimiter) Release() {
	l.add(-1)
	<-l.slots
}

func (l *ParseLimiter) add(delta int) {
	l.mu.Lock()
	l.active += delta
	active := l.active
	if active == 0 && l.drained != nil {
		close(l.drained)
		l.drained = nil
	}
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(active)
	}
}

// ActiveCount returns the number of slots in use.
func (l *ParseLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the number of slots.
func (l *ParseLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *ParseLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no parse is active or ctx is done. The server
// calls it during shutdown.
func (l *ParseLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	if l.active == 0 {
		l.mu.Unlock()
		return nil
	}
	if l.drained == nil {
		l.drained = make(chan struct{})
	}
	drained := l.drained
	l.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseLimiterStatus is a snapshot of the limiter.
type ParseLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *ParseLimiter) Status() ParseLimiterStatus {
	return ParseLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
