package reply

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/c360/textann/errors"
	"github.com/c360/textann/metric"
	"github.com/c360/textann/model"
)

// MaxSuggestions caps the number of suggestions per request.
const MaxSuggestions = 3

// defaultMinConfidence is the floor below which scored candidates are
// discarded.
const defaultMinConfidence = 0.30

// ScoredReply is one candidate reply with the scorer's confidence.
type ScoredReply struct {
	Text       string
	Confidence float64
}

// Model is the opaque reply scorer boundary. Implementations receive the
// conversation ordered oldest first and return candidate replies for the
// local user.
type Model interface {
	Score(ctx context.Context, conversation []Message) ([]ScoredReply, error)
}

// Availability reports whether the scoring model for a language is loaded.
// *model.Manager satisfies it.
type Availability interface {
	IsAvailable(model.Identifier) bool
}

// Ranker produces ranked reply suggestions: dominant-language detection
// over the closed model set, availability gate, confidence threshold,
// exact-string dedupe, and a cap of MaxSuggestions.
type Ranker struct {
	scorer        Model
	availability  Availability
	minConfidence float64
	logger        *slog.Logger
	metrics       *metric.Metrics
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithMinConfidence overrides the confidence threshold.
func WithMinConfidence(min float64) RankerOption {
	return func(r *Ranker) { r.minConfidence = min }
}

// WithMetrics wires suggestion metrics into the platform registry.
func WithMetrics(registry *metric.MetricsRegistry) RankerOption {
	return func(r *Ranker) { r.metrics = registry.CoreMetrics() }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) RankerOption {
	return func(r *Ranker) { r.logger = logger }
}

// NewRanker creates a Ranker over the given scorer and availability source.
func NewRanker(scorer Model, availability Availability, opts ...RankerOption) (*Ranker, error) {
	if scorer == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter, "Ranker", "NewRanker", "nil scorer")
	}
	if availability == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParameter, "Ranker", "NewRanker", "nil availability source")
	}
	r := &Ranker{
		scorer:        scorer,
		availability:  availability,
		minConfidence: defaultMinConfidence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SuggestReplies ranks reply suggestions for the conversation. An empty
// conversation and a below-threshold scorer both resolve to NoReply; a
// dominant language without a loaded model resolves to
// UnsupportedLanguage. Neither is an error.
func (r *Ranker) SuggestReplies(ctx context.Context, messages []Message) (SuggestionResult, error) {
	start := time.Now()
	res, err := r.suggest(ctx, messages)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("reply", errors.Classify(err).String())
		}
		return SuggestionResult{}, err
	}
	if r.metrics != nil {
		r.metrics.RecordReply(res.Status.String())
	}
	r.logger.Debug("reply suggestion complete",
		"status", res.Status.String(),
		"suggestions", len(res.Suggestions),
		"elapsed", time.Since(start))
	return res, nil
}

func (r *Ranker) suggest(ctx context.Context, messages []Message) (SuggestionResult, error) {
	if len(messages) == 0 {
		return SuggestionResult{Status: StatusNoReply}, nil
	}

	lang := DominantLanguage(messages)
	if !r.availability.IsAvailable(lang) {
		return SuggestionResult{Status: StatusUnsupportedLanguage}, nil
	}

	candidates, err := r.scorer.Score(ctx, messages)
	if err != nil {
		return SuggestionResult{}, errors.Wrap(err, "Ranker", "SuggestReplies", "scoring failed")
	}

	slices.SortStableFunc(candidates, func(a, b ScoredReply) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	seen := make(map[string]bool, len(candidates))
	suggestions := make([]string, 0, MaxSuggestions)
	for _, c := range candidates {
		if c.Confidence < r.minConfidence || c.Text == "" || seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		suggestions = append(suggestions, c.Text)
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	if len(suggestions) == 0 {
		return SuggestionResult{Status: StatusNoReply}, nil
	}
	return SuggestionResult{Status: StatusSuccess, Suggestions: suggestions}, nil
}

// DominantLanguage detects the conversation's dominant language by script
// over the closed model set. Latin-script text maps to English; the closed
// set cannot distinguish Latin-script languages without a loaded model.
func DominantLanguage(messages []Message) model.Identifier {
	counts := make(map[model.Identifier]int)
	for _, m := range messages {
		for _, r := range m.Text {
			switch {
			case r >= 0x0600 && r <= 0x06FF:
				counts[model.Arabic]++
			case r >= 0x4E00 && r <= 0x9FFF:
				counts[model.Chinese]++
			case r >= 0x3040 && r <= 0x30FF:
				counts[model.Japanese]++
			case r >= 0xAC00 && r <= 0xD7AF:
				counts[model.Korean]++
			case r >= 0x0E00 && r <= 0x0E7F:
				counts[model.Thai]++
			case r >= 0x0400 && r <= 0x04FF:
				counts[model.Russian]++
			case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
				counts[model.English]++
			}
		}
	}

	best := model.English
	bestCount := 0
	for _, id := range model.AllIdentifiers() {
		if counts[id] > bestCount {
			best = id
			bestCount = counts[id]
		}
	}
	return best
}
