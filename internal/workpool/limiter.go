package workpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyImports is returned when every batch slot stays occupied for
// the whole wait window. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

const (
	DefaultMaxConcurrent = 4
	DefaultMaxWaitTime   = 30 * time.Second
)

// Limiter caps how many import batches commit at once. A batch that cannot
// get a slot within maxWait is rejected rather than queued indefinitely.
type Limiter struct {
	sem     *semaphore.Weighted
	size    int
	maxWait time.Duration

	mu      sync.Mutex
	active  int
	waiting int
	drained chan struct{} // closed whenever active drops to zero
}

// NewLimiter creates a limiter with maxConcurrent slots. Non-positive
// arguments fall back to the package defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	drained := make(chan struct{})
	close(drained)
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		size:    maxConcurrent,
		maxWait: maxWait,
		drained: drained,
	}
}

// Acquire takes a slot, waiting at most maxWait. Cancellation of ctx is
// reported as ctx.Err(); an expired wait as ErrTooManyImports. Every nil
// return must be paired with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()
	err := l.sem.Acquire(waitCtx, 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.waiting--
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
	l.enter()
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.mu.Lock()
	l.enter()
	l.mu.Unlock()
	return true
}

// enter records a new holder. Callers hold mu.
func (l *Limiter) enter() {
	if l.active == 0 {
		l.drained = make(chan struct{})
	}
	l.active++
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.drained)
	}
	l.mu.Unlock()

	l.sem.Release(1)
}

// ActiveCount returns the number of slots currently held.
func (l *Limiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until no slot is held or ctx is done. Used on
// shutdown so running commits finish before the store closes.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.active == 0 {
			l.mu.Unlock()
			return nil
		}
		drained := l.drained
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-drained:
		}
	}
}

// LimiterStatus is a point-in-time view of batch slots.
type LimiterStatus struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *Limiter) Status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStatus{
		Active:        l.active,
		Waiting:       l.waiting,
		Available:     l.size - l.active,
		MaxConcurrent: l.size,
	}
}
