package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SlotAccounting(t *testing.T) {
	l := NewLimiter(2, time.Second)
	ctx := context.Background()

	assert.Equal(t, LimiterStatus{Available: 2, MaxConcurrent: 2}, l.Status())

	require.NoError(t, l.Acquire(ctx))
	require.True(t, l.TryAcquire())
	assert.Equal(t, LimiterStatus{Active: 2, Available: 0, MaxConcurrent: 2}, l.Status())
	assert.False(t, l.TryAcquire(), "no slot left")

	l.Release()
	assert.Equal(t, 1, l.ActiveCount())
	l.Release()
	assert.Equal(t, LimiterStatus{Available: 2, MaxConcurrent: 2}, l.Status())
}

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrent, l.Status().MaxConcurrent)
	assert.Equal(t, DefaultMaxWaitTime, l.maxWait)
}

func TestLimiter_RejectsAfterMaxWait(t *testing.T) {
	l := NewLimiter(1, 30*time.Millisecond)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	start := time.Now()
	err := l.Acquire(context.Background())

	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.Equal(t, 0, l.Status().Waiting, "a rejected batch is no longer waiting")
}

func TestLimiter_CallerCancellationWins(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTooManyImports)
}

func TestLimiter_WaiterGetsReleasedSlot(t *testing.T) {
	l := NewLimiter(1, time.Second)
	require.NoError(t, l.Acquire(context.Background()))

	got := make(chan error, 1)
	go func() { got <- l.Acquire(context.Background()) }()

	require.Eventually(t, func() bool { return l.Status().Waiting == 1 }, time.Second, 5*time.Millisecond)
	l.Release()

	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released slot")
	}
	assert.Equal(t, LimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}, l.Status())
	l.Release()
}

func TestLimiter_NeverExceedsCapacity(t *testing.T) {
	const slots = 3
	l := NewLimiter(slots, 5*time.Second)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			defer l.Release()

			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(slots))
	assert.Equal(t, 0, l.ActiveCount())
}

func TestLimiter_WaitForDrain(t *testing.T) {
	l := NewLimiter(2, time.Second)
	require.NoError(t, l.WaitForDrain(context.Background()), "idle limiter drains immediately")

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Release()
		time.Sleep(10 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.WaitForDrain(ctx))
	assert.Equal(t, 0, l.ActiveCount())
}

func TestLimiter_WaitForDrainTimesOut(t *testing.T) {
	l := NewLimiter(1, time.Second)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)
}
