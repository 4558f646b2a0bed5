package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/yannisouraghi/nexra-vision/internal/matchapi"
)

var errAnalysisCreate = errors.New("analysis record creation failed")

// Reanalyze re-runs analysis for an already recorded match. When the
// remote recording exists only the analysis is touched; otherwise the
// local video is uploaded from scratch, without clips.
func (c *Coordinator) Reanalyze(ctx context.Context, matchID, videoPath string, match *matchapi.MatchRecord, timeline *matchapi.Timeline) error {
	exists, err := c.client.CheckRecording(ctx, matchID)
	if err != nil {
		return &UploadError{Step: "check-recording", Err: err}
	}

	if !exists {
		c.log.Info("No remote recording for match %s, uploading local video", matchID)
		video, err := os.ReadFile(videoPath)
		if err != nil {
			return &UploadError{Step: "read-video", Err: err}
		}
		sessionID := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
		_, err = c.Upload(ctx, sessionID, video, match, timeline, nil, "")
		return err
	}

	analysisID, err := c.client.GetAnalysisByMatch(ctx, matchID)
	if err != nil {
		return &UploadError{Step: "get-analysis", Err: err}
	}

	if analysisID == "" {
		c.log.Info("Recording exists but no analysis record, creating one")
		if id := c.createAndStartAnalysis(ctx, matchID, match, timeline, 0); id == "" {
			return &UploadError{Step: "create-analysis", Err: errAnalysisCreate}
		}
		return nil
	}

	if err := c.client.Reanalyze(ctx, analysisID); err != nil {
		return &UploadError{Step: "reanalyze", Err: err}
	}
	c.log.Success("Reanalysis of %s queued", analysisID)
	return nil
}
