package core

// executor.go submits the valid set to the persistence collaborator.
//
// Guarantees:
//   - At most Limit CommitFunc calls are in flight at once
//   - A failing or panicking call marks only its own item failed
//   - Every item is attempted exactly once; no retry, no rollback
//   - Outcome order follows completion order, not Index

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/workpool"
)

// DefaultCommitConcurrency is the ceiling on simultaneous commit calls.
const DefaultCommitConcurrency = 5

// CommitObserver receives per-item commit timings. It must be safe for
// concurrent use.
type CommitObserver interface {
	ObserveCommit(status OutcomeStatus, d time.Duration)
}

// Executor runs commits through a bounded worker pool.
type Executor struct {
	Limit    int            // 0 means DefaultCommitConcurrency
	Observer CommitObserver // optional
}

func (e Executor) limit() int {
	if e.Limit <= 0 {
		return DefaultCommitConcurrency
	}
	return e.Limit
}

// Commit calls fn once for each record in valid and returns one outcome per
// record. ctx is passed to fn unchanged; a cancelled ctx does not stop
// dispatch, it is up to fn to honor it.
func (e Executor) Commit(ctx context.Context, valid []CandidateRecord, fn CommitFunc) []ImportOutcome {
	if len(valid) == 0 {
		return []ImportOutcome{}
	}

	var (
		mu       sync.Mutex
		outcomes = make([]ImportOutcome, 0, len(valid))
	)

	pool := workpool.New(e.limit())
	for _, c := range valid {
		rec := c.clone()
		var (
			receipt CommitReceipt
			started time.Time
		)

		pool.Go(func() error {
			started = time.Now()
			var err error
			receipt, err = fn(ctx, rec)
			return err
		}, func(err error) {
			o := ImportOutcome{Index: rec.Index, ItemName: rec.Parsed.ItemName}
			if err != nil {
				o.Status = StatusFailed
				o.Error = err.Error()
			} else {
				o.Status = StatusSuccess
				o.CommittedID = receipt.CommittedID
			}
			if e.Observer != nil {
				e.Observer.ObserveCommit(o.Status, time.Since(started))
			}

			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		})
	}
	pool.Wait()

	return outcomes
}

// DemoCommit returns a CommitFunc that always succeeds after latency and
// synthesizes a "demo-" prefixed id. Nothing is persisted.
func DemoCommit(latency time.Duration) CommitFunc {
	return func(ctx context.Context, c CandidateRecord) (CommitReceipt, error) {
		if latency > 0 {
			t := time.NewTimer(latency)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
			}
		}
		return CommitReceipt{CommittedID: "demo-" + uuid.NewString()}, nil
	}
}
