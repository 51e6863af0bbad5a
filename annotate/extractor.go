package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/textann/datetime"
	"github.com/c360/textann/entity"
	"github.com/c360/textann/errors"
	"github.com/c360/textann/metric"
	"github.com/c360/textann/model"
	"github.com/c360/textann/pkg/worker"
	"github.com/c360/textann/scanner"
	"github.com/c360/textann/validate"
)

// Gate answers whether the model for a language is ready. *model.Manager
// satisfies it.
type Gate interface {
	Ensure(model.Identifier) error
}

// Result carries the outcome of an asynchronous annotation call.
type Result struct {
	Annotations []entity.Annotation
	Err         error
}

type completion struct {
	ch  chan Result
	res Result
}

// valJob validates one candidate and records the outcome at its slot.
type valJob struct {
	cand   scanner.Candidate
	params entity.Params
	out    []resolved
	idx    int
	wg     *sync.WaitGroup
}

type resolved struct {
	scored Scored
	ok     bool
}

// Extractor drives the extraction pipeline for one language model:
// availability gate, candidate scan, parallel validation, date/time
// disambiguation, and assembly. Safe for concurrent use; each call is
// independent.
type Extractor struct {
	lang      model.Identifier
	scan      scanner.Scanner
	gate      Gate
	assembler *Assembler
	logger    *slog.Logger
	metrics   *metric.Metrics

	workers   int
	queueSize int
	registry  *metric.MetricsRegistry
	pool      *worker.Pool[valJob]

	lifecycleMu sync.Mutex
	started     bool
	asyncWG     sync.WaitGroup

	completions chan completion
	done        chan struct{}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets the validation pool size.
func WithWorkers(workers, queueSize int) Option {
	return func(e *Extractor) {
		e.workers = workers
		e.queueSize = queueSize
	}
}

// WithMetricsRegistry wires pipeline metrics into the platform registry.
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(e *Extractor) {
		e.registry = registry
		e.metrics = registry.CoreMetrics()
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithAssembler replaces the default assembler, e.g. to change the
// equal-confidence type priority.
func WithAssembler(a *Assembler) Option {
	return func(e *Extractor) { e.assembler = a }
}

// NewExtractor creates an Extractor for one language.
func NewExtractor(lang model.Identifier, scan scanner.Scanner, gate Gate, opts ...Option) (*Extractor, error) {
	if !lang.Valid() {
		return nil, errors.WrapInvalid(errors.ErrUnknownModel, "Extractor", "NewExtractor",
			fmt.Sprintf("invalid identifier %d", int(lang)))
	}
	if scan == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter, "Extractor", "NewExtractor",
			"nil scanner")
	}
	if gate == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter, "Extractor", "NewExtractor",
			"nil availability gate")
	}

	e := &Extractor{
		lang:        lang,
		scan:        scan,
		gate:        gate,
		assembler:   NewAssembler(),
		logger:      slog.Default(),
		workers:     4,
		queueSize:   256,
		completions: make(chan completion, 16),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	poolOpts := []worker.Option[valJob]{}
	if e.registry != nil {
		// Per-language prefix so several extractors can share one registry.
		poolOpts = append(poolOpts,
			worker.WithMetricsRegistry[valJob](e.registry, "validation_"+lang.LanguageTag()))
	}
	e.pool = worker.NewPool(e.workers, e.queueSize, processJob, poolOpts...)
	return e, nil
}

// Start launches the validation pool and the completion dispatcher.
func (e *Extractor) Start(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Extractor", "Start", "already started")
	}
	if err := e.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Extractor", "Start", "validation pool start failed")
	}
	go e.dispatch()
	e.started = true
	return nil
}

// Stop drains the validation pool and the completion dispatcher.
func (e *Extractor) Stop(timeout time.Duration) error {
	e.lifecycleMu.Lock()
	if !e.started {
		e.lifecycleMu.Unlock()
		return nil
	}
	e.started = false
	e.lifecycleMu.Unlock()

	// In-flight asynchronous calls may still hand their result to the
	// dispatcher; wait for them before closing the completion channel.
	e.asyncWG.Wait()
	if err := e.pool.Stop(timeout); err != nil {
		return errors.Wrap(err, "Extractor", "Stop", "validation pool stop failed")
	}
	close(e.completions)
	select {
	case <-e.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("dispatcher still draining"),
			"Extractor", "Stop", "timeout waiting for completion dispatcher")
	}
}

// dispatch is the single completion context for asynchronous calls: every
// Result is delivered from this goroutine.
func (e *Extractor) dispatch() {
	defer close(e.done)
	for c := range e.completions {
		c.ch <- c.res
	}
}

// Language returns the extractor's model identifier.
func (e *Extractor) Language() model.Identifier { return e.lang }

// Annotate extracts entity annotations from text. Fails with ErrEmptyText
// for empty input and ErrModelNotReady when the language model is not
// Available. Scanner failures propagate; validator and disambiguator
// rejections never do.
func (e *Extractor) Annotate(ctx context.Context, text string, params entity.Params) ([]entity.Annotation, error) {
	start := time.Now()

	if text == "" {
		return nil, errors.WrapInvalid(errors.ErrEmptyText, "Extractor", "Annotate", "empty input text")
	}
	if err := e.gate.Ensure(e.lang); err != nil {
		return nil, err
	}

	filter := params.Filter()
	candidates, err := e.scan.Scan(ctx, text, e.lang, filter)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError("extractor", errors.Classify(err).String())
		}
		return nil, errors.Wrap(err, "Extractor", "Annotate", "candidate scan failed")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]resolved, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		if e.metrics != nil {
			e.metrics.RecordCandidate(cand.Type.String())
		}
		wg.Add(1)
		job := valJob{cand: cand, params: params, out: results, idx: i, wg: &wg}
		if err := e.pool.SubmitWait(ctx, job); err != nil {
			// Pool unavailable or context done: validate inline so the
			// wait group still completes.
			_ = processJob(ctx, job)
		}
	}
	wg.Wait()

	scored := make([]Scored, 0, len(results))
	for _, r := range results {
		if !r.ok {
			if e.metrics != nil {
				e.metrics.RecordRejection(r.scored.Entity.Type().String(), "validation")
			}
			continue
		}
		scored = append(scored, r.scored)
	}

	annotations := e.assembler.Assemble(scored)

	if e.metrics != nil {
		for _, ann := range annotations {
			for _, ent := range ann.Entities {
				e.metrics.RecordAnnotation(ent.Type().String())
			}
		}
		e.metrics.RecordExtractionDuration("annotate", time.Since(start))
	}
	e.logger.Debug("annotation complete",
		"language", e.lang.LanguageTag(),
		"candidates", len(candidates),
		"annotations", len(annotations),
		"elapsed", time.Since(start))

	return annotations, nil
}

// AnnotateAsync runs Annotate in the background and delivers the single
// Result on the returned channel from the extractor's completion
// dispatcher.
func (e *Extractor) AnnotateAsync(ctx context.Context, text string, params entity.Params) <-chan Result {
	ch := make(chan Result, 1)
	e.asyncWG.Add(1)
	go func() {
		defer e.asyncWG.Done()
		annotations, err := e.Annotate(ctx, text, params)
		res := Result{Annotations: annotations, Err: err}

		e.lifecycleMu.Lock()
		running := e.started
		e.lifecycleMu.Unlock()
		if running {
			e.completions <- completion{ch: ch, res: res}
		} else {
			ch <- res
		}
	}()
	return ch
}

// processJob resolves one candidate into a validated entity. A rejection is
// recorded in the result slot, never returned as an error.
func processJob(_ context.Context, job valJob) error {
	defer job.wg.Done()

	ent, ok := resolveCandidate(job.cand, job.params)
	job.out[job.idx] = resolved{
		scored: Scored{
			Start:      job.cand.Start,
			Length:     job.cand.Length,
			Confidence: job.cand.Confidence,
			Entity:     ent,
		},
		ok: ok,
	}
	return nil
}

// resolveCandidate dispatches a candidate to the disambiguator or the
// validators according to its type.
func resolveCandidate(cand scanner.Candidate, params entity.Params) (entity.Entity, bool) {
	if cand.Type == entity.DateTime {
		payload, ok := datetime.Resolve(cand.Raw, params)
		if !ok {
			return entity.New(entity.DateTime), false
		}
		return entity.NewDateTime(payload), true
	}
	ent, ok := validate.Validate(cand.Raw, cand.Type)
	if !ok {
		// Keep the candidate's type on the rejected slot so rejection
		// metrics attribute it correctly.
		return entity.New(cand.Type), false
	}
	return ent, true
}
