// Package scanner defines the candidate-generation boundary of the
// extraction pipeline. A Scanner proposes raw span candidates for a text;
// candidates are unvalidated and may overlap. The production backend is an
// opaque per-language inference model behind the Scanner interface; the
// package also provides RuleScanner, a deterministic regex-backed reference
// backend used in tests and as a fallback.
package scanner

import (
	"context"

	"github.com/c360/textann/entity"
	"github.com/c360/textann/model"
)

// Candidate is an unvalidated span proposed by a scanning backend.
// Offsets are byte offsets satisfying text[Start:Start+Length] == Raw.
type Candidate struct {
	Start      int
	Length     int
	Type       entity.Type
	Raw        string
	Confidence float64
}

// End returns the exclusive end offset of the candidate span.
func (c Candidate) End() int {
	return c.Start + c.Length
}

// Scanner yields raw span candidates for a text in a given language.
// An empty result is valid (the text has no recognizable entities) and is
// distinct from a model-not-ready failure, which is reported as an error
// wrapping errors.ErrModelUnavailable.
//
// Scan may be long-running; implementations must honor context cancellation.
type Scanner interface {
	Scan(ctx context.Context, text string, lang model.Identifier, filter entity.TypeSet) ([]Candidate, error)
}
