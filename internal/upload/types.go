// Package upload drives the ordered multi-step transfer of a finished
// recording to the remote analysis service.
package upload

import (
	"encoding/json"
	"fmt"

	"github.com/yannisouraghi/nexra-vision/internal/frames"
	"github.com/yannisouraghi/nexra-vision/internal/matchapi"
)

// UploadError marks a fatal step in the upload sequence: container
// creation or the full-video transfer. Everything after those degrades
// gracefully instead.
type UploadError struct {
	Step string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload step %s: %v", e.Step, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// CreateRecordingRequest is the container-creation body.
type CreateRecordingRequest struct {
	MatchID   string `json:"matchId"`
	Account   string `json:"account"`
	Region    string `json:"region"`
	FileSize  int64  `json:"fileSize"`
	ClipCount int    `json:"clipCount"`
}

// FramePayload is one sampled frame inside a clip upload.
type FramePayload struct {
	Timestamp float64 `json:"timestamp"`
	Data      string  `json:"data"` // base64 JPEG
}

// ClipUploadRequest is the per-clip metadata + frame set body.
type ClipUploadRequest struct {
	Index       int            `json:"index"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	StartTime   float64        `json:"startTime"`
	EndTime     float64        `json:"endTime"`
	Severity    string         `json:"severity"`
	Frames      []FramePayload `json:"frames"`
}

// AnalysisRequest is the analysis-record body.
type AnalysisRequest struct {
	MatchID        string                `json:"matchId"`
	Account        string                `json:"account"`
	Region         string                `json:"region"`
	MatchData      *matchapi.MatchRecord `json:"matchData,omitempty"`
	HasVideoClips  bool                  `json:"hasVideoClips"`
	ClipCount      int                   `json:"clipCount"`
	TimelineEvents []matchapi.Event      `json:"timelineEvents,omitempty"`
}

// framePayloads converts sampled frames to the wire shape.
func framePayloads(samples []frames.Sample) []FramePayload {
	out := make([]FramePayload, 0, len(samples))
	for _, s := range samples {
		out = append(out, FramePayload{Timestamp: s.TimestampSeconds, Data: s.Base64Data})
	}
	return out
}

// envelope is the uniform remote response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
