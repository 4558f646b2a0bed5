package capture

import (
	"context"
	"fmt"
)

// Recorder is the capture primitive: a black box that records the selected
// source and yields the raw video byte stream on Stop. Implementations own
// any buffering or temp files; callers only ever see the final bytes.
type Recorder interface {
	// Start begins capturing src. A second Start before Stop is an error.
	Start(ctx context.Context, src Source) error

	// Stop ends the capture and returns the recorded video container
	// bytes. Returns an error if nothing was being recorded or the
	// stream broke.
	Stop(ctx context.Context) ([]byte, error)
}

// CaptureError wraps a source-selection or stream failure. The session
// aborts and returns to idle when one occurs.
type CaptureError struct {
	Op  string // "select", "start", "stop"
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
