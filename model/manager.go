package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/textann/errors"
	"github.com/c360/textann/metric"
	"github.com/c360/textann/pkg/cache"
	"github.com/c360/textann/pkg/retry"
)

const (
	downloadedSnapshotKey = "downloaded"
	// snapshotTTL bounds snapshot staleness; transitions also invalidate
	// the entry eagerly.
	snapshotTTL = 30 * time.Second
)

// download tracks one in-flight transfer and the callers waiting on it.
type download struct {
	waiters []chan error
}

// Manager owns the lifecycle state of every language model. It coalesces
// concurrent download requests per identifier into a single transfer,
// retries transient transport failures, and notifies observers of state
// transitions from a single dispatcher goroutine.
type Manager struct {
	transport Transport
	retryCfg  retry.Config
	logger    *slog.Logger

	mu       sync.Mutex
	states   map[Identifier]State
	blobs    map[Identifier]Blob
	inflight map[Identifier]*download
	started  bool
	stopped  bool

	snapshot *cache.TTL[[]Identifier]

	events    chan Event
	observers map[int]chan Event
	nextObs   int
	obsMu     sync.Mutex
	done      chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc

	metrics *metric.Metrics

	nc      *nats.Conn
	subject string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetry overrides the transfer retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(m *Manager) { m.retryCfg = cfg }
}

// WithMetrics wires lifecycle metrics into the platform registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(m *Manager) { m.metrics = registry.CoreMetrics() }
}

// WithNATS publishes lifecycle events to subject.<language_tag> on the
// given connection, in addition to in-process observer delivery.
func WithNATS(nc *nats.Conn, subject string) Option {
	return func(m *Manager) {
		m.nc = nc
		m.subject = subject
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager over the given transport.
func NewManager(transport Transport, opts ...Option) (*Manager, error) {
	if transport == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter,
			"Manager", "NewManager", "nil transport")
	}

	snapshot, err := cache.NewTTL[[]Identifier](context.Background(), snapshotTTL, snapshotTTL)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		transport: transport,
		retryCfg:  retry.DefaultConfig(),
		logger:    slog.Default(),
		states:    make(map[Identifier]State),
		blobs:     make(map[Identifier]Blob),
		inflight:  make(map[Identifier]*download),
		snapshot:  snapshot,
		events:    make(chan Event, 64),
		observers: make(map[int]chan Event),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start launches the event dispatcher. Transfers begun before Stop run
// under the context derived here, not under any one caller's context.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Manager", "Start", "already started")
	}
	m.runCtx, m.runCancel = context.WithCancel(ctx)
	m.started = true
	go m.dispatch()
	return nil
}

// Stop cancels in-flight transfers and waits for the dispatcher to drain.
func (m *Manager) Stop(timeout time.Duration) error {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.runCancel()
	close(m.events)
	m.mu.Unlock()

	m.snapshot.Close()

	select {
	case <-m.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("dispatcher still draining"),
			"Manager", "Stop", "timeout waiting for event dispatcher")
	}
}

// dispatch is the single completion context for lifecycle events: every
// observer channel and the NATS subject are fed from this goroutine only.
func (m *Manager) dispatch() {
	defer close(m.done)
	for ev := range m.events {
		m.obsMu.Lock()
		for _, ch := range m.observers {
			select {
			case ch <- ev:
			default:
				// Observer is not keeping up. Dropping beats blocking
				// the dispatcher for everyone else.
			}
		}
		m.obsMu.Unlock()

		if m.nc != nil {
			payload, err := json.Marshal(ev)
			if err == nil {
				subject := fmt.Sprintf("%s.%s", m.subject, ev.Identifier.LanguageTag())
				if err := m.nc.Publish(subject, payload); err != nil {
					m.logger.Warn("lifecycle event publish failed",
						"subject", subject, "error", err)
				}
			}
		}
	}
}

// Subscribe registers an observer for lifecycle events. The returned cancel
// function unregisters it and closes the channel. Duplicate Available
// events are possible and must be tolerated.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = ch
	m.obsMu.Unlock()

	cancel := func() {
		m.obsMu.Lock()
		if _, ok := m.observers[id]; ok {
			delete(m.observers, id)
			close(ch)
		}
		m.obsMu.Unlock()
	}
	return ch, cancel
}

// setStateLocked records a transition and returns the event to emit after
// the mutex is released. Callers must hold m.mu.
func (m *Manager) setStateLocked(id Identifier, s State) Event {
	m.states[id] = s
	m.snapshot.Delete(downloadedSnapshotKey)
	if m.metrics != nil {
		m.metrics.RecordModelStatus(id.LanguageTag(), int(s))
	}
	return Event{Identifier: id, State: s, Time: time.Now().UTC()}
}

// emit hands a lifecycle event to the dispatcher. The send happens under
// m.mu so it cannot race the channel close in Stop; events raised by a
// transfer that outlives Stop are dropped.
func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("lifecycle event queue full, event dropped",
			"identifier", ev.Identifier, "state", ev.State.String())
	}
}

// StateOf returns the current lifecycle state for id. Unknown and invalid
// identifiers report StateNotDownloaded.
func (m *Manager) StateOf(id Identifier) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id]
}

// IsAvailable reports whether the model for id is ready for extraction.
func (m *Manager) IsAvailable(id Identifier) bool {
	return m.StateOf(id) == StateAvailable
}

// Ensure gates extraction on availability, returning ErrModelNotReady when
// the model for id is in any state other than Available.
func (m *Manager) Ensure(id Identifier) error {
	if !id.Valid() {
		return errors.WrapInvalid(errors.ErrUnknownModel, "Manager", "Ensure",
			fmt.Sprintf("invalid identifier %d", int(id)))
	}
	if !m.IsAvailable(id) {
		return errors.WrapTransient(errors.ErrModelNotReady, "Manager", "Ensure",
			fmt.Sprintf("model %s not available", id.LanguageTag()))
	}
	return nil
}

// Blob returns the downloaded artifact for id, if the model is Available.
func (m *Manager) Blob(id Identifier) (Blob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[id] != StateAvailable {
		return Blob{}, false
	}
	b, ok := m.blobs[id]
	return b, ok
}

// Downloaded returns a point-in-time snapshot of every identifier currently
// Available. The snapshot is cached with a TTL staleness bound and
// invalidated eagerly on every transition.
func (m *Manager) Downloaded() []Identifier {
	if ids, ok := m.snapshot.Get(downloadedSnapshotKey); ok {
		out := make([]Identifier, len(ids))
		copy(out, ids)
		return out
	}

	// Filling the cache under the state mutex keeps it consistent with
	// the invalidation done by setStateLocked.
	m.mu.Lock()
	ids := make([]Identifier, 0, len(m.states))
	for _, id := range AllIdentifiers() {
		if m.states[id] == StateAvailable {
			ids = append(ids, id)
		}
	}
	m.snapshot.Set(downloadedSnapshotKey, ids)
	m.mu.Unlock()
	out := make([]Identifier, len(ids))
	copy(out, ids)
	return out
}

// DownloadIfNeeded requests the model for id, coalescing with any in-flight
// transfer for the same identifier, and blocks until the transfer completes
// or ctx is done. Context cancellation stops observing only: the transfer
// keeps running for other waiters and the eventual Available notification
// still fires.
func (m *Manager) DownloadIfNeeded(ctx context.Context, id Identifier, conditions DownloadConditions) error {
	ch, err := m.RequestDownload(id, conditions)
	if err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return errors.WrapTransient(errors.ErrDownloadCancelled, "Manager", "DownloadIfNeeded",
			fmt.Sprintf("caller stopped observing download of %s", id.LanguageTag()))
	}
}

// RequestDownload is the asynchronous form of DownloadIfNeeded. The returned
// channel receives exactly one completion result. A model already Available
// completes immediately and re-emits an Available event.
func (m *Manager) RequestDownload(id Identifier, conditions DownloadConditions) (<-chan error, error) {
	if !id.Valid() {
		return nil, errors.WrapInvalid(errors.ErrUnknownModel, "Manager", "RequestDownload",
			fmt.Sprintf("invalid identifier %d", int(id)))
	}

	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return nil, errors.WrapInvalid(errors.ErrNotStarted, "Manager", "RequestDownload",
			"manager not running")
	}

	ch := make(chan error, 1)

	switch m.states[id] {
	case StateAvailable:
		ev := Event{Identifier: id, State: StateAvailable, Time: time.Now().UTC()}
		m.mu.Unlock()
		ch <- nil
		m.emit(ev)
		return ch, nil

	case StateDownloading:
		d := m.inflight[id]
		d.waiters = append(d.waiters, ch)
		m.mu.Unlock()
		return ch, nil

	default:
		d := &download{waiters: []chan error{ch}}
		m.inflight[id] = d
		ev := m.setStateLocked(id, StateDownloading)
		m.mu.Unlock()

		m.emit(ev)
		go m.fetch(id, conditions, d)
		return ch, nil
	}
}

// fetch runs one transfer under the manager's own context and completes
// every attached waiter exactly once.
func (m *Manager) fetch(id Identifier, conditions DownloadConditions, d *download) {
	start := time.Now()
	blob, err := retry.DoWithResult(m.runCtx, m.retryCfg, func() (Blob, error) {
		b, ferr := m.transport.Fetch(m.runCtx, id, conditions)
		if ferr != nil && errors.IsInvalid(ferr) {
			return Blob{}, retry.NonRetryable(ferr)
		}
		return b, ferr
	})

	var ev Event
	m.mu.Lock()
	delete(m.inflight, id)
	if err != nil {
		ev = m.setStateLocked(id, StateNotDownloaded)
	} else {
		m.blobs[id] = blob
		ev = m.setStateLocked(id, StateAvailable)
	}
	waiters := d.waiters
	m.mu.Unlock()

	lang := id.LanguageTag()
	if err != nil {
		err = errors.WrapTransient(errors.ErrTransport, "Manager", "fetch",
			fmt.Sprintf("download of %s failed: %v", lang, err))
		m.logger.Warn("model download failed", "model", lang, "error", err,
			"elapsed", time.Since(start))
		if m.metrics != nil {
			m.metrics.RecordModelDownload(lang, "failure")
			m.metrics.RecordError("model", "transient")
		}
	} else {
		m.logger.Info("model downloaded", "model", lang, "bytes", blob.Size(),
			"elapsed", time.Since(start))
		if m.metrics != nil {
			m.metrics.RecordModelDownload(lang, "success")
		}
	}

	m.emit(ev)
	for _, w := range waiters {
		w <- err
	}
}

// Delete removes the model artifact for id. Deleting a model that is
// currently Downloading is rejected; deleting an absent model is a no-op
// that still transitions the state to Deleted.
func (m *Manager) Delete(ctx context.Context, id Identifier) error {
	if !id.Valid() {
		return errors.WrapInvalid(errors.ErrUnknownModel, "Manager", "Delete",
			fmt.Sprintf("invalid identifier %d", int(id)))
	}

	m.mu.Lock()
	if m.states[id] == StateDownloading {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDownloading, "Manager", "Delete",
			fmt.Sprintf("model %s is downloading", id.LanguageTag()))
	}
	m.mu.Unlock()

	// The artifact is removed before any state changes. A failed transport
	// delete leaves the model exactly as it was, observers included.
	if err := m.transport.Delete(ctx, id); err != nil {
		return errors.WrapTransient(err, "Manager", "Delete",
			fmt.Sprintf("transport delete of %s failed", id.LanguageTag()))
	}

	m.mu.Lock()
	if m.states[id] == StateDownloading {
		// A download raced in during the transport delete. Its completion
		// owns the next transition.
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDownloading, "Manager", "Delete",
			fmt.Sprintf("model %s is downloading", id.LanguageTag()))
	}
	delete(m.blobs, id)
	ev := m.setStateLocked(id, StateDeleted)
	m.mu.Unlock()

	m.logger.Info("model deleted", "model", id.LanguageTag())
	m.emit(ev)
	return nil
}
