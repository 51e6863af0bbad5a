package worker

import "errors"

// Pool lifecycle and submission errors.
var (
	ErrPoolNotStarted     = errors.New("worker pool not started")
	ErrPoolAlreadyStarted = errors.New("worker pool already started")
	ErrPoolStopped        = errors.New("worker pool stopped")

	// ErrQueueFull is returned by Submit when the queue is at capacity.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor is the panic value for pools built without a processor.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout means workers were still draining when Stop gave up.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
