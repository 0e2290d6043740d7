// Package workpool provides bounded concurrency primitives.
//
// Pool runs tasks with at most N in flight and isolates failures: a task
// that errors or panics never cancels its siblings. Limiter caps the number
// of concurrent long-running operations (whole import batches) and supports
// graceful drain on shutdown.
package workpool

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Pool runs tasks with a fixed concurrency ceiling.
//
// Unlike a bare errgroup, a task error does not stop other tasks and Wait
// does not report it; each task is expected to record its own result.
type Pool struct {
	g     errgroup.Group
	limit int

	mu     sync.Mutex
	active int
	peak   int
	done   int
	failed int
}

// New creates a pool that runs at most limit tasks at once.
// A limit below 1 is treated as 1.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	p := &Pool{limit: limit}
	p.g.SetLimit(limit)
	return p
}

// Go schedules task, blocking while the pool is full. The error returned
// by task (or a *PanicError if it panics) is passed to onDone, which runs
// on the task's goroutine. onDone may be nil.
func (p *Pool) Go(task func() error, onDone func(error)) {
	p.g.Go(func() error {
		p.enter()
		err := p.run(task)
		p.exit(err)
		if onDone != nil {
			onDone(err)
		}
		return nil
	})
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}

func (p *Pool) run(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task()
}

func (p *Pool) enter() {
	p.mu.Lock()
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	p.mu.Unlock()
}

func (p *Pool) exit(err error) {
	p.mu.Lock()
	p.active--
	p.done++
	if err != nil {
		p.failed++
	}
	p.mu.Unlock()
}

// PoolStatus is a snapshot of a pool's counters.
type PoolStatus struct {
	Limit     int `json:"limit"`
	Active    int `json:"active"`
	Peak      int `json:"peak"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Status returns the pool's current counters.
func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStatus{
		Limit:     p.limit,
		Active:    p.active,
		Peak:      p.peak,
		Completed: p.done,
		Failed:    p.failed,
	}
}
