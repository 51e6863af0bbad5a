package reply

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textann/errors"
	"github.com/c360/textann/model"
)

type availFunc func(model.Identifier) bool

func (f availFunc) IsAvailable(id model.Identifier) bool { return f(id) }

var allAvailable = availFunc(func(model.Identifier) bool { return true })
var noneAvailable = availFunc(func(model.Identifier) bool { return false })

type scoreFunc func(ctx context.Context, conversation []Message) ([]ScoredReply, error)

func (f scoreFunc) Score(ctx context.Context, conversation []Message) ([]ScoredReply, error) {
	return f(ctx, conversation)
}

func remote(text string) Message {
	return Message{Text: text, Timestamp: time.Now(), IsLocalUser: false}
}

func local(text string) Message {
	return Message{Text: text, Timestamp: time.Now(), IsLocalUser: true}
}

func TestSuggestRepliesEmptyConversation(t *testing.T) {
	r, err := NewRanker(NewHeuristicModel(), allAvailable)
	require.NoError(t, err)

	res, err := r.SuggestReplies(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNoReply, res.Status)
	assert.Empty(t, res.Suggestions)
}

func TestSuggestRepliesUnsupportedLanguage(t *testing.T) {
	r, err := NewRanker(NewHeuristicModel(), noneAvailable)
	require.NoError(t, err)

	res, err := r.SuggestReplies(context.Background(), []Message{remote("thanks a lot!")})
	require.NoError(t, err)
	assert.Equal(t, StatusUnsupportedLanguage, res.Status)
	assert.Empty(t, res.Suggestions)
}

func TestSuggestRepliesSuccess(t *testing.T) {
	r, err := NewRanker(NewHeuristicModel(), allAvailable)
	require.NoError(t, err)

	res, err := r.SuggestReplies(context.Background(), []Message{
		local("I fixed the bug"),
		remote("thank you so much!"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	require.NotEmpty(t, res.Suggestions)
	assert.LessOrEqual(t, len(res.Suggestions), MaxSuggestions)
	assert.Equal(t, "You're welcome!", res.Suggestions[0])
}

func TestSuggestRepliesBelowThresholdIsNoReply(t *testing.T) {
	r, err := NewRanker(NewHeuristicModel(), allAvailable)
	require.NoError(t, err)

	// No rule matches, so only the low-confidence generic fallbacks are
	// produced, all below the default threshold.
	res, err := r.SuggestReplies(context.Background(), []Message{remote("zxqv qqf")})
	require.NoError(t, err)
	assert.Equal(t, StatusNoReply, res.Status)
	assert.Empty(t, res.Suggestions)
}

func TestSuggestRepliesOrderingDedupeAndCap(t *testing.T) {
	scorer := scoreFunc(func(context.Context, []Message) ([]ScoredReply, error) {
		return []ScoredReply{
			{Text: "Sure", Confidence: 0.50},
			{Text: "Sounds good", Confidence: 0.90},
			{Text: "Sure", Confidence: 0.88},
			{Text: "On my way", Confidence: 0.70},
			{Text: "Maybe later", Confidence: 0.65},
			{Text: "", Confidence: 0.99},
		}, nil
	})
	r, err := NewRanker(scorer, allAvailable)
	require.NoError(t, err)

	res, err := r.SuggestReplies(context.Background(), []Message{remote("coming over?")})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"Sounds good", "Sure", "On my way"}, res.Suggestions)
}

func TestSuggestRepliesScorerErrorPropagates(t *testing.T) {
	scorer := scoreFunc(func(context.Context, []Message) ([]ScoredReply, error) {
		return nil, errors.WrapTransient(fmt.Errorf("inference backend down"), "Model", "Score", "score failed")
	})
	r, err := NewRanker(scorer, allAvailable)
	require.NoError(t, err)

	_, err = r.SuggestReplies(context.Background(), []Message{remote("hello")})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestSuggestRepliesMinConfidenceOverride(t *testing.T) {
	r, err := NewRanker(NewHeuristicModel(), allAvailable, WithMinConfidence(0.1))
	require.NoError(t, err)

	res, err := r.SuggestReplies(context.Background(), []Message{remote("zxqv qqf")})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"OK", "Got it"}, res.Suggestions)
}

func TestDominantLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.Identifier
	}{
		{"latin defaults to english", "see you tomorrow", model.English},
		{"cyrillic", "до завтра", model.Russian},
		{"han", "明天见", model.Chinese},
		{"kana outweighs han", "ありがとうございます", model.Japanese},
		{"hangul", "내일 보자", model.Korean},
		{"arabic", "أراك غدا", model.Arabic},
		{"thai", "แล้วเจอกัน", model.Thai},
		{"empty defaults to english", "", model.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DominantLanguage([]Message{remote(tt.text)})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDominantLanguageMajorityAcrossTurns(t *testing.T) {
	msgs := []Message{
		remote("ок"),
		remote("привет, как дела сегодня?"),
		local("ok"),
	}
	assert.Equal(t, model.Russian, DominantLanguage(msgs))
}

func TestHeuristicModelIgnoresTrailingLocalTurns(t *testing.T) {
	h := NewHeuristicModel()
	replies, err := h.Score(context.Background(), []Message{
		remote("thanks!"),
		local("np"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	assert.Equal(t, "You're welcome!", replies[0].Text)
}

func TestHeuristicModelNoRemoteTurns(t *testing.T) {
	h := NewHeuristicModel()
	replies, err := h.Score(context.Background(), []Message{local("hello?")})
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestNewRankerValidation(t *testing.T) {
	_, err := NewRanker(nil, allAvailable)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)

	_, err = NewRanker(NewHeuristicModel(), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)
}
