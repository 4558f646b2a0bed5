package upload

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/clips"
	"github.com/yannisouraghi/nexra-vision/internal/frames"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/matchapi"
)

// FrameSampler yields base64 frame samples for a clip. Satisfied by
// *frames.Extractor; tests substitute fakes.
type FrameSampler interface {
	Sample(ctx context.Context, clipPath, outDir string, count int) ([]frames.Sample, error)
}

// Coordinator drives the ordered upload sequence. Container creation and
// the full-video transfer are fatal; clip uploads and the analysis steps
// degrade gracefully. Clip uploads run through a bounded worker pool
// rather than unbounded fan-out so a clip-heavy game cannot spike memory
// or sockets.
type Coordinator struct {
	client  *Client
	sampler FrameSampler
	log     *logging.Logger

	account string
	region  string

	workers      int
	frameCount   int
	cleanupDelay time.Duration

	// schedule defers workspace teardown; swapped in tests.
	schedule func(d time.Duration, f func())
}

// NewCoordinator returns a Coordinator for the linked account.
func NewCoordinator(client *Client, sampler FrameSampler, log *logging.Logger, account, region string, workers, frameCount int, cleanupDelay time.Duration) *Coordinator {
	return &Coordinator{
		client:       client,
		sampler:      sampler,
		log:          log,
		account:      account,
		region:       region,
		workers:      workers,
		frameCount:   frameCount,
		cleanupDelay: cleanupDelay,
		schedule:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Result summarizes a completed upload sequence.
type Result struct {
	RecordingID   string
	AnalysisID    string // Empty when analysis creation failed (logged, not fatal).
	UploadedClips int
}

// Upload runs the full sequence for one finished session. workDir is the
// scratch workspace holding the extracted clips; its deferred teardown is
// scheduled on success and failure alike.
func (c *Coordinator) Upload(ctx context.Context, sessionID string, video []byte, match *matchapi.MatchRecord, timeline *matchapi.Timeline, extracted []clips.Extracted, workDir string) (*Result, error) {
	defer c.scheduleCleanup(workDir)

	matchID := "local-" + sessionID
	if match != nil {
		matchID = match.MatchID
	}

	// Step 1: container creation. Fatal on failure.
	recordingID, err := c.client.CreateRecording(ctx, CreateRecordingRequest{
		MatchID:   matchID,
		Account:   c.account,
		Region:    c.region,
		FileSize:  int64(len(video)),
		ClipCount: len(extracted),
	})
	if err != nil {
		return nil, &UploadError{Step: "create-recording", Err: err}
	}
	c.log.Upload("Recording container %s created for match %s", recordingID, matchID)

	// Step 2: full raw video. Fatal on failure; the local file survives.
	if err := c.client.UploadVideo(ctx, recordingID, video); err != nil {
		return nil, &UploadError{Step: "upload-video", Err: err}
	}
	c.log.Upload("Full video uploaded (%d bytes)", len(video))

	// Step 3: per-clip frames + metadata through the bounded pool. A
	// single clip's failure never cancels its siblings.
	uploaded := c.uploadClips(ctx, recordingID, extracted, workDir)

	// Steps 4-5: analysis record + start. Logged only; the record can be
	// retried manually later.
	analysisID := c.createAndStartAnalysis(ctx, matchID, match, timeline, uploaded)

	return &Result{RecordingID: recordingID, AnalysisID: analysisID, UploadedClips: uploaded}, nil
}

// uploadClips pushes every extracted clip concurrently through the worker
// pool and returns how many made it.
func (c *Coordinator) uploadClips(ctx context.Context, recordingID string, extracted []clips.Extracted, workDir string) int {
	if len(extracted) == 0 {
		return 0
	}

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	uploaded := 0

	for _, clip := range extracted {
		wg.Add(1)
		go func(clip clips.Extracted) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := c.uploadOneClip(ctx, recordingID, clip, workDir); err != nil {
				c.log.Warn("Clip %d upload failed: %v", clip.Index, err)
				return
			}
			mu.Lock()
			uploaded++
			mu.Unlock()
		}(clip)
	}
	wg.Wait()

	c.log.Upload("Uploaded %d/%d clips", uploaded, len(extracted))
	return uploaded
}

func (c *Coordinator) uploadOneClip(ctx context.Context, recordingID string, clip clips.Extracted, workDir string) error {
	samples, err := c.sampler.Sample(ctx, clip.LocalPath, workDir, c.frameCount)
	if err != nil {
		return err
	}

	_, err = c.client.UploadClip(ctx, recordingID, ClipUploadRequest{
		Index:       clip.Index,
		Type:        string(clip.Type),
		Description: clip.Description,
		StartTime:   clip.StartTime,
		EndTime:     clip.StartTime + clip.Duration,
		Severity:    string(clip.Severity),
		Frames:      framePayloads(samples),
	})
	return err
}

// createAndStartAnalysis performs steps 4 and 5. Returns the analysis id,
// or "" when creation failed.
func (c *Coordinator) createAndStartAnalysis(ctx context.Context, matchID string, match *matchapi.MatchRecord, timeline *matchapi.Timeline, clipCount int) string {
	req := AnalysisRequest{
		MatchID:       matchID,
		Account:       c.account,
		Region:        c.region,
		MatchData:     match,
		HasVideoClips: clipCount > 0,
		ClipCount:     clipCount,
	}
	if timeline != nil {
		req.TimelineEvents = timeline.Events
	}

	analysisID, err := c.client.CreateAnalysis(ctx, req)
	if err != nil {
		c.log.Warn("Analysis record creation failed: %v", err)
		return ""
	}

	if err := c.client.StartAnalysis(ctx, analysisID); err != nil {
		// The record exists remotely; starting can be retried manually.
		c.log.Warn("Analysis %s created but start failed: %v", analysisID, err)
	} else {
		c.log.Success("Analysis %s started", analysisID)
	}
	return analysisID
}

// scheduleCleanup defers tearing down the scratch workspace so in-flight
// reads are not raced.
func (c *Coordinator) scheduleCleanup(workDir string) {
	if workDir == "" {
		return
	}
	c.schedule(c.cleanupDelay, func() {
		if err := os.RemoveAll(workDir); err != nil {
			c.log.Warn("Workspace cleanup failed: %v", err)
		}
	})
}
