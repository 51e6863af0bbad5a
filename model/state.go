package model

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of one language model. It is owned by the
// Manager; other components only read it through Manager accessors.
type State int

const (
	// StateNotDownloaded indicates no artifact is present locally.
	StateNotDownloaded State = iota
	// StateDownloading indicates a transfer is in flight.
	StateDownloading
	// StateAvailable indicates the model is ready for extraction.
	StateAvailable
	// StateDeleted indicates the artifact was explicitly removed.
	StateDeleted
)

// String returns a string representation of the lifecycle state.
func (s State) String() string {
	switch s {
	case StateNotDownloaded:
		return "not_downloaded"
	case StateDownloading:
		return "downloading"
	case StateAvailable:
		return "available"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its name (e.g. "available").
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Event records one lifecycle transition. Events are delivered to observers
// from a single dispatcher goroutine, so observers need no synchronization
// of their own to read them.
type Event struct {
	Identifier Identifier `json:"identifier"`
	State      State      `json:"state"`
	Time       time.Time  `json:"time"`
}
