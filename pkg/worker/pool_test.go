package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textann/metric"
)

func TestPoolProcessesAllItems(t *testing.T) {
	var processed int64
	var wg sync.WaitGroup

	pool := NewPool(3, 16, func(_ context.Context, n int) error {
		atomic.AddInt64(&processed, int64(n))
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	want := int64(0)
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		want += int64(i)
		require.NoError(t, pool.Submit(i))
	}
	wg.Wait()

	assert.Equal(t, want, atomic.LoadInt64(&processed))
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPoolLifecycleErrors(t *testing.T) {
	pool := NewPool(1, 1, func(context.Context, int) error { return nil })

	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	assert.ErrorIs(t, pool.Start(ctx), ErrPoolAlreadyStarted)

	require.NoError(t, pool.Stop(time.Second))
	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)

	// Stop is idempotent.
	require.NoError(t, pool.Stop(time.Second))
}

func TestPoolQueueFull(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 1, func(_ context.Context, _ int) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	// One item occupies the worker, one fills the queue; keep submitting
	// until the non-blocking path reports a full queue.
	var sawFull bool
	for i := 0; i < 10; i++ {
		if err := pool.Submit(i); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, sawFull, "expected ErrQueueFull once queue saturated")
	assert.Greater(t, pool.Stats().Dropped, int64(0))

	close(release)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPoolSubmitWaitBlocksUntilSpace(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 1, func(_ context.Context, _ int) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	require.NoError(t, pool.SubmitWait(ctx, 1))
	require.NoError(t, pool.SubmitWait(ctx, 2))

	// Queue is now full; SubmitWait must honor context cancellation.
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer shortCancel()
	err := pool.SubmitWait(shortCtx, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPoolRecordsFailures(t *testing.T) {
	var wg sync.WaitGroup
	pool := NewPool(2, 8, func(_ context.Context, fail bool) error {
		defer wg.Done()
		if fail {
			return errors.New("processing failed")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	for _, fail := range []bool{true, false, true} {
		wg.Add(1)
		require.NoError(t, pool.Submit(fail))
	}
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestPoolWithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	var wg sync.WaitGroup
	pool := NewPool(2, 8, func(_ context.Context, _ int) error {
		wg.Done()
		return nil
	}, WithMetricsRegistry[int](registry, "test_pool"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	wg.Add(1)
	require.NoError(t, pool.Submit(1))
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "test_pool_submitted_total" {
			found = true
		}
	}
	assert.True(t, found, "pool metrics should be registered")
}

func TestPoolStopTimeout(t *testing.T) {
	started := make(chan struct{})
	block := make(chan struct{})
	pool := NewPool(1, 1, func(_ context.Context, _ int) error {
		close(started)
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, pool.Submit(1))
	<-started

	err := pool.Stop(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrStopTimeout)
	close(block)
}

func TestNewPoolNilProcessorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewPool[int](1, 1, nil)
	})
}
