package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textann/errors"
	"github.com/c360/textann/pkg/retry"
)

// fakeTransport counts fetches and can hold transfers open until released.
type fakeTransport struct {
	mu        sync.Mutex
	fetches   map[Identifier]int
	deletes   map[Identifier]int
	failMsg   string
	deleteErr error
	gate      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		fetches: make(map[Identifier]int),
		deletes: make(map[Identifier]int),
	}
}

func (f *fakeTransport) Fetch(ctx context.Context, id Identifier, _ DownloadConditions) (Blob, error) {
	f.mu.Lock()
	f.fetches[id]++
	gate := f.gate
	failMsg := f.failMsg
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Blob{}, ctx.Err()
		}
	}
	if failMsg != "" {
		return Blob{}, fmt.Errorf("%s", failMsg)
	}
	return Blob{Identifier: id, Data: []byte("weights"), Version: "1"}, nil
}

func (f *fakeTransport) Delete(_ context.Context, id Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes[id]++
	return nil
}

func (f *fakeTransport) setDeleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

func (f *fakeTransport) fetchCount(id Identifier) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[id]
}

func quickRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

func startManager(t *testing.T, tr Transport, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(tr, append([]Option{WithRetry(quickRetry())}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(time.Second) })
	return m
}

func TestDownloadLifecycle(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	assert.Equal(t, StateNotDownloaded, m.StateOf(German))
	require.NoError(t, m.DownloadIfNeeded(context.Background(), German, DefaultDownloadConditions()))

	assert.Equal(t, StateAvailable, m.StateOf(German))
	assert.True(t, m.IsAvailable(German))
	assert.NoError(t, m.Ensure(German))

	blob, ok := m.Blob(German)
	require.True(t, ok)
	assert.Equal(t, German, blob.Identifier)
	assert.Positive(t, blob.Size())
}

func TestConcurrentDownloadsCoalesce(t *testing.T) {
	tr := newFakeTransport()
	tr.gate = make(chan struct{})
	m := startManager(t, tr)

	const callers = 5
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			results <- m.DownloadIfNeeded(context.Background(), Spanish, DefaultDownloadConditions())
		}()
	}

	// Let every caller attach before the transfer completes.
	require.Eventually(t, func() bool {
		return m.StateOf(Spanish) == StateDownloading
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(tr.gate)

	for i := 0; i < callers; i++ {
		select {
		case err := <-results:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("caller never completed")
		}
	}

	assert.Equal(t, 1, tr.fetchCount(Spanish), "transfer must be coalesced")
	assert.Equal(t, StateAvailable, m.StateOf(Spanish))
}

func TestDownloadFailureRestoresNotDownloaded(t *testing.T) {
	tr := newFakeTransport()
	tr.failMsg = "connection reset"
	m := startManager(t, tr)

	err := m.DownloadIfNeeded(context.Background(), French, DefaultDownloadConditions())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTransport)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StateNotDownloaded, m.StateOf(French))

	// A later attempt starts a fresh transfer.
	tr.mu.Lock()
	tr.failMsg = ""
	tr.mu.Unlock()
	require.NoError(t, m.DownloadIfNeeded(context.Background(), French, DefaultDownloadConditions()))
	assert.Equal(t, StateAvailable, m.StateOf(French))
	assert.Equal(t, 2, tr.fetchCount(French))
}

func TestDownloadAlreadyAvailableIsImmediate(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	require.NoError(t, m.DownloadIfNeeded(context.Background(), English, DefaultDownloadConditions()))
	require.NoError(t, m.DownloadIfNeeded(context.Background(), English, DefaultDownloadConditions()))
	assert.Equal(t, 1, tr.fetchCount(English))
}

func TestCancellationStopsObservingOnly(t *testing.T) {
	tr := newFakeTransport()
	tr.gate = make(chan struct{})
	m := startManager(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	abandoned := make(chan error, 1)
	go func() {
		abandoned <- m.DownloadIfNeeded(ctx, Korean, DefaultDownloadConditions())
	}()

	require.Eventually(t, func() bool {
		return m.StateOf(Korean) == StateDownloading
	}, time.Second, 5*time.Millisecond)

	patient := make(chan error, 1)
	go func() {
		patient <- m.DownloadIfNeeded(context.Background(), Korean, DefaultDownloadConditions())
	}()
	time.Sleep(10 * time.Millisecond)

	cancel()
	err := <-abandoned
	assert.ErrorIs(t, err, errors.ErrDownloadCancelled)

	// The transfer keeps running for the remaining observer.
	close(tr.gate)
	assert.NoError(t, <-patient)
	assert.Equal(t, StateAvailable, m.StateOf(Korean))
	assert.Equal(t, 1, tr.fetchCount(Korean))
}

func TestDownloadedSnapshot(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	assert.Empty(t, m.Downloaded())

	require.NoError(t, m.DownloadIfNeeded(context.Background(), Dutch, DefaultDownloadConditions()))
	require.NoError(t, m.DownloadIfNeeded(context.Background(), Thai, DefaultDownloadConditions()))

	got := m.Downloaded()
	assert.ElementsMatch(t, []Identifier{Dutch, Thai}, got)

	// Snapshot reads the cache until the next transition invalidates it.
	assert.ElementsMatch(t, []Identifier{Dutch, Thai}, m.Downloaded())

	require.NoError(t, m.Delete(context.Background(), Dutch))
	assert.ElementsMatch(t, []Identifier{Thai}, m.Downloaded())
}

func TestDeleteTransitions(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	require.NoError(t, m.DownloadIfNeeded(context.Background(), Italian, DefaultDownloadConditions()))
	require.NoError(t, m.Delete(context.Background(), Italian))

	assert.Equal(t, StateDeleted, m.StateOf(Italian))
	_, ok := m.Blob(Italian)
	assert.False(t, ok)

	err := m.Ensure(Italian)
	assert.ErrorIs(t, err, errors.ErrModelNotReady)

	// Re-download after deletion works.
	require.NoError(t, m.DownloadIfNeeded(context.Background(), Italian, DefaultDownloadConditions()))
	assert.Equal(t, StateAvailable, m.StateOf(Italian))
}

func TestDeleteWhileDownloadingRejected(t *testing.T) {
	tr := newFakeTransport()
	tr.gate = make(chan struct{})
	m := startManager(t, tr)

	ch, err := m.RequestDownload(Polish, DefaultDownloadConditions())
	require.NoError(t, err)

	err = m.Delete(context.Background(), Polish)
	assert.ErrorIs(t, err, errors.ErrAlreadyDownloading)

	close(tr.gate)
	assert.NoError(t, <-ch)
}

func TestStopDuringDownloadCompletesWaiters(t *testing.T) {
	tr := newFakeTransport()
	tr.gate = make(chan struct{})
	m := startManager(t, tr)

	ch, err := m.RequestDownload(Dutch, DefaultDownloadConditions())
	require.NoError(t, err)

	require.NoError(t, m.Stop(time.Second))
	close(tr.gate)

	// The transfer outlives Stop. Its waiter still gets a completion and
	// its lifecycle event is dropped rather than sent to the closed
	// dispatcher.
	select {
	case err := <-ch:
		assert.ErrorIs(t, err, errors.ErrTransport)
	case <-time.After(time.Second):
		t.Fatal("waiter never completed after Stop")
	}

	assert.Equal(t, StateNotDownloaded, m.StateOf(Dutch))
}

func TestDeleteTransportFailureLeavesStateUntouched(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	require.NoError(t, m.DownloadIfNeeded(context.Background(), Turkish, DefaultDownloadConditions()))

	events, cancel := m.Subscribe()
	defer cancel()

	tr.setDeleteErr(fmt.Errorf("backing store offline"))
	err := m.Delete(context.Background(), Turkish)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	// The model stays Available and observers see no Deleted event.
	assert.Equal(t, StateAvailable, m.StateOf(Turkish))
	_, ok := m.Blob(Turkish)
	assert.True(t, ok)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after failed delete: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	tr.setDeleteErr(nil)
	require.NoError(t, m.Delete(context.Background(), Turkish))
	assert.Equal(t, StateDeleted, m.StateOf(Turkish))

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Identifier == Turkish && ev.State == StateDeleted {
				return
			}
		case <-deadline:
			t.Fatal("no Deleted event observed")
		}
	}
}

func TestSubscribeObservesAvailable(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	events, cancel := m.Subscribe()
	defer cancel()

	require.NoError(t, m.DownloadIfNeeded(context.Background(), Russian, DefaultDownloadConditions()))

	var sawAvailable bool
	deadline := time.After(time.Second)
	for !sawAvailable {
		select {
		case ev := <-events:
			if ev.Identifier == Russian && ev.State == StateAvailable {
				sawAvailable = true
			}
		case <-deadline:
			t.Fatal("no Available event observed")
		}
	}
}

func TestInvalidIdentifierRejected(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	bad := Identifier(42)
	err := m.DownloadIfNeeded(context.Background(), bad, DefaultDownloadConditions())
	assert.ErrorIs(t, err, errors.ErrUnknownModel)

	assert.ErrorIs(t, m.Delete(context.Background(), bad), errors.ErrUnknownModel)
	assert.ErrorIs(t, m.Ensure(bad), errors.ErrUnknownModel)
}

func TestManagerNotStarted(t *testing.T) {
	m, err := NewManager(newFakeTransport())
	require.NoError(t, err)

	_, err = m.RequestDownload(English, DefaultDownloadConditions())
	assert.ErrorIs(t, err, errors.ErrNotStarted)
}

func TestNilTransportRejected(t *testing.T) {
	_, err := NewManager(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)
}

func TestManyConcurrentRequestsSingleFetchEach(t *testing.T) {
	tr := newFakeTransport()
	m := startManager(t, tr)

	var wg sync.WaitGroup
	var failures int64
	for _, id := range AllIdentifiers() {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(id Identifier) {
				defer wg.Done()
				if err := m.DownloadIfNeeded(context.Background(), id, DefaultDownloadConditions()); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}(id)
		}
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt64(&failures))
	for _, id := range AllIdentifiers() {
		assert.Equal(t, StateAvailable, m.StateOf(id))
		assert.LessOrEqual(t, tr.fetchCount(id), 3)
	}
	assert.Len(t, m.Downloaded(), 15)
}
