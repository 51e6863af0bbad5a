package reply

import (
	"context"
	"strings"
)

// HeuristicModel is the built-in reply scorer: a small rule table keyed on
// the last remote turn. It keeps the reply pipeline functional without an
// inference backend and doubles as the reference Model implementation.
type HeuristicModel struct{}

// NewHeuristicModel creates a HeuristicModel.
func NewHeuristicModel() *HeuristicModel { return &HeuristicModel{} }

type heuristicRule struct {
	match   func(string) bool
	replies []ScoredReply
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var heuristicRules = []heuristicRule{
	{
		match: func(s string) bool { return containsAny(s, "thank", "thx") },
		replies: []ScoredReply{
			{Text: "You're welcome!", Confidence: 0.92},
			{Text: "No problem!", Confidence: 0.85},
			{Text: "Anytime!", Confidence: 0.70},
		},
	},
	{
		match: func(s string) bool { return containsAny(s, "hello", "hi ", "hey") || s == "hi" },
		replies: []ScoredReply{
			{Text: "Hi!", Confidence: 0.90},
			{Text: "Hello!", Confidence: 0.84},
			{Text: "Hey, how are you?", Confidence: 0.72},
		},
	},
	{
		match: func(s string) bool { return containsAny(s, "see you", "bye", "good night") },
		replies: []ScoredReply{
			{Text: "See you!", Confidence: 0.88},
			{Text: "Bye!", Confidence: 0.80},
			{Text: "Take care!", Confidence: 0.69},
		},
	},
	{
		match: func(s string) bool { return strings.Contains(s, "?") },
		replies: []ScoredReply{
			{Text: "Yes", Confidence: 0.62},
			{Text: "No", Confidence: 0.55},
			{Text: "Let me check", Confidence: 0.48},
		},
	},
	{
		match: func(s string) bool { return containsAny(s, "sorry", "apolog") },
		replies: []ScoredReply{
			{Text: "No worries!", Confidence: 0.82},
			{Text: "It's fine!", Confidence: 0.74},
		},
	},
}

// Score matches the last remote turn against the rule table. A
// conversation whose last turn is by the local user, or matches no rule,
// yields low-confidence generic acknowledgements.
func (h *HeuristicModel) Score(_ context.Context, conversation []Message) ([]ScoredReply, error) {
	var last *Message
	for i := len(conversation) - 1; i >= 0; i-- {
		if !conversation[i].IsLocalUser {
			last = &conversation[i]
			break
		}
	}
	if last == nil {
		return nil, nil
	}

	text := strings.ToLower(strings.TrimSpace(last.Text))
	if text == "" {
		return nil, nil
	}

	for _, rule := range heuristicRules {
		if rule.match(text) {
			out := make([]ScoredReply, len(rule.replies))
			copy(out, rule.replies)
			return out, nil
		}
	}

	return []ScoredReply{
		{Text: "OK", Confidence: 0.20},
		{Text: "Got it", Confidence: 0.18},
	}, nil
}
