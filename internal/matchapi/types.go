// Package matchapi queries the remote match stats service and reconciles
// its most recent match against a local session start time.
package matchapi

import (
	"encoding/json"

	"github.com/yannisouraghi/nexra-vision/internal/clips"
)

// Participant is one player's line in a match snapshot.
type Participant struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Champion  string `json:"champion"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Assists   int    `json:"assists"`
	Score     int    `json:"score"`
}

// MatchRecord is an immutable snapshot of one remote match. Fetched once
// per session; never mutated.
type MatchRecord struct {
	MatchID         string        `json:"matchId"`
	AccountID       string        `json:"accountId"`
	Region          string        `json:"region"`
	Win             bool          `json:"win"`
	DurationSeconds float64       `json:"duration"`
	Timestamp       int64         `json:"timestamp"` // Match end time, Unix milliseconds.
	Kills           int           `json:"kills"`
	Deaths          int           `json:"deaths"`
	Assists         int           `json:"assists"`
	Score           int           `json:"score"`
	Teammates       []Participant `json:"teammates,omitempty"`
	Enemies         []Participant `json:"enemies,omitempty"`
}

// Event is one raw timeline event, forwarded opaquely to the analysis
// record.
type Event struct {
	Type        string  `json:"type"`
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description,omitempty"`
}

/// Timeline is the per-match event data: the clip specs to extract and the
// raw events for the analysis payload.
type Timeline struct {
	Clips  []clips.Spec `json:"clips"`
	Events []Event      `json:"events"`
}

// envelope is the uniform remote response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
