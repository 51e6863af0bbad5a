// Package reply ranks short reply suggestions for a chat conversation. It
// shares the model-availability substrate with the extraction pipeline but
// runs an independent scoring path.
package reply

import (
	"fmt"
	"time"
)

// Message is one chat turn.
type Message struct {
	// Text is the message body.
	Text string `json:"text"`
	// Timestamp is when the message was sent.
	Timestamp time.Time `json:"timestamp"`
	// IsLocalUser marks turns written by the user replies are suggested
	// for, as opposed to the remote participant.
	IsLocalUser bool `json:"is_local_user"`
}

// Status classifies the outcome of a suggestion request.
type Status int

const (
	// StatusSuccess means at least one suggestion was produced.
	StatusSuccess Status = iota
	// StatusUnsupportedLanguage means the conversation's dominant
	// language has no loaded scoring model.
	StatusUnsupportedLanguage
	// StatusNoReply means the scorer produced nothing above the
	// confidence threshold.
	StatusNoReply
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnsupportedLanguage:
		return "unsupported_language"
	case StatusNoReply:
		return "no_reply"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalJSON encodes the status as its name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// SuggestionResult is the outcome of one suggestion request. Success
// implies a non-empty suggestion list; the other statuses imply an empty
// one.
type SuggestionResult struct {
	Status      Status   `json:"status"`
	Suggestions []string `json:"suggestions,omitempty"`
}
