package annotate

import (
	"context"
	"sync"
	"time"

	"github.com/c360/textann/errors"
	"github.com/c360/textann/model"
	"github.com/c360/textann/scanner"
)

// Provider creates and caches one started Extractor per language so callers
// can resolve pipelines on demand. All extractors share the same scanner,
// availability gate and options.
type Provider struct {
	scan scanner.Scanner
	gate Gate
	opts []Option

	mu         sync.Mutex
	extractors map[model.Identifier]*Extractor
	runCtx     context.Context
	cancel     context.CancelFunc
	stopped    bool
}

// NewProvider creates a provider. The options are applied to every
// extractor it constructs.
func NewProvider(scan scanner.Scanner, gate Gate, opts ...Option) (*Provider, error) {
	if scan == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter, "Provider", "NewProvider",
			"nil scanner")
	}
	if gate == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter, "Provider", "NewProvider",
			"nil availability gate")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Provider{
		scan:       scan,
		gate:       gate,
		opts:       opts,
		extractors: make(map[model.Identifier]*Extractor),
		runCtx:     runCtx,
		cancel:     cancel,
	}, nil
}

// AnnotatorFor returns the started extractor for a language, constructing
// it on first use.
func (p *Provider) AnnotatorFor(id model.Identifier) (*Extractor, error) {
	if !id.Valid() {
		return nil, errors.WrapInvalid(errors.ErrUnknownModel, "Provider", "AnnotatorFor",
			"invalid language identifier")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, errors.WrapInvalid(errors.ErrShuttingDown, "Provider", "AnnotatorFor",
			"provider stopped")
	}
	if e, ok := p.extractors[id]; ok {
		return e, nil
	}

	e, err := NewExtractor(id, p.scan, p.gate, p.opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Start(p.runCtx); err != nil {
		return nil, err
	}
	p.extractors[id] = e
	return e, nil
}

// Stop shuts down every extractor the provider created. The first stop
// error is returned; remaining extractors are still stopped.
func (p *Provider) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	extractors := make([]*Extractor, 0, len(p.extractors))
	for _, e := range p.extractors {
		extractors = append(extractors, e)
	}
	p.mu.Unlock()

	var firstErr error
	for _, e := range extractors {
		if err := e.Stop(timeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.cancel()
	return firstErr
}
