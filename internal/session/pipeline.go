package session

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yannisouraghi/nexra-vision/internal/clips"
	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/matchapi"
	"github.com/yannisouraghi/nexra-vision/internal/metrics"
	"github.com/yannisouraghi/nexra-vision/internal/retention"
	"github.com/yannisouraghi/nexra-vision/internal/store"
	"github.com/yannisouraghi/nexra-vision/internal/upload"
)

// MatchFetcher resolves the just-played match, or nil when it cannot be
// reconciled. Satisfied by *matchapi.Fetcher.
type MatchFetcher interface {
	Fetch(ctx context.Context, accountID, region string, sessionStart time.Time) *matchapi.MatchRecord
}

// TimelineFetcher loads per-match event data. Satisfied by *matchapi.Client.
type TimelineFetcher interface {
	Timeline(ctx context.Context, matchID, accountID, region string) (*matchapi.Timeline, error)
}

// ClipExtractor cuts highlight clips out of the full recording. Satisfied
// by *clips.Pipeline.
type ClipExtractor interface {
	Extract(ctx context.Context, fullVideo string, specs []clips.Spec, outDir string) []clips.Extracted
}

// Uploader pushes a finished recording to the analysis service. Satisfied
// by *upload.Coordinator.
type Uploader interface {
	Upload(ctx context.Context, sessionID string, video []byte, match *matchapi.MatchRecord, timeline *matchapi.Timeline, extracted []clips.Extracted, workDir string) (*upload.Result, error)
}

// Pipeline is the post-capture sequence: match reconciliation, the remake
// gate, clip extraction, upload, and retention. It runs in the background
// after finalize so the state machine is free to catch the next game.
type Pipeline struct {
	cfg       *config.Config
	log       *logging.Logger
	met       *metrics.Metrics
	db        *sql.DB
	fetcher   MatchFetcher
	timelines TimelineFetcher
	extractor ClipExtractor
	uploader  Uploader
	retention *retention.Manager
	notify    Notifier
}

// NewPipeline wires the post-capture sequence. fetcher, timelines and
// uploader may be nil when the daemon runs unlinked.
func NewPipeline(cfg *config.Config, log *logging.Logger, met *metrics.Metrics, db *sql.DB, fetcher MatchFetcher, timelines TimelineFetcher, extractor ClipExtractor, uploader Uploader, ret *retention.Manager, notify Notifier) *Pipeline {
	if notify == nil {
		notify = logNotifier{log: log}
	}
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		met:       met,
		db:        db,
		fetcher:   fetcher,
		timelines: timelines,
		extractor: extractor,
		uploader:  uploader,
		retention: ret,
		notify:    notify,
	}
}

// Run processes one finished recording. Retention is enforced on every
// exit path, including remakes and upload failures.
func (p *Pipeline) Run(ctx context.Context, rec *store.Recording, sessionStart time.Time) {
	defer p.retention.Enforce()

	linked := p.cfg.AccountID != ""

	var match *matchapi.MatchRecord
	if linked && p.fetcher != nil {
		match = p.fetcher.Fetch(ctx, p.cfg.AccountID, p.cfg.Region, sessionStart)
	}

	// The remote match duration is authoritative; the recorded wall time
	// stands in when reconciliation failed.
	gameDuration := time.Duration(rec.DurationSeconds * float64(time.Second))
	if match != nil {
		gameDuration = time.Duration(match.DurationSeconds * float64(time.Second))
	}

	if retention.IsRemake(gameDuration, p.cfg.MinGameDuration) {
		p.log.Info("Game lasted %s, treating as remake and discarding", gameDuration.Round(time.Second))
		p.retention.DiscardRemake(rec.Path)
		p.met.IncRemakesDiscarded()
		p.notify.Notify("Recording discarded", "remake detected")
		return
	}

	var timeline *matchapi.Timeline
	if match != nil {
		if err := store.SetMatch(p.db, rec.ID, match.MatchID); err != nil {
			p.log.Warn("Linking match %s to recording failed: %v", match.MatchID, err)
		}
		if p.timelines != nil {
			var err error
			timeline, err = p.timelines.Timeline(ctx, match.MatchID, p.cfg.AccountID, p.cfg.Region)
			if err != nil {
				p.log.Warn("Timeline fetch for %s failed, uploading without clips: %v", match.MatchID, err)
			}
		}
	}

	var extracted []clips.Extracted
	workDir := ""
	if timeline != nil && len(timeline.Clips) > 0 && p.extractor != nil {
		workDir = filepath.Join(p.cfg.ScratchDir, uuid.NewString())
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			p.log.Warn("Scratch workspace creation failed, skipping clips: %v", err)
			workDir = ""
		} else {
			extracted = p.extractor.Extract(ctx, rec.Path, timeline.Clips, workDir)
			p.met.AddClipsExtracted(len(extracted))
			p.met.AddClipsFailed(len(timeline.Clips) - len(extracted))
		}
	}

	if !linked || p.uploader == nil {
		p.log.Info("No linked account, keeping recording local: %s", rec.Path)
		return
	}

	video, err := os.ReadFile(rec.Path)
	if err != nil {
		p.log.Error("Reading recording back failed: %v", err)
		p.met.IncUploadFailures()
		return
	}

	res, err := p.uploader.Upload(ctx, rec.ID, video, match, timeline, extracted, workDir)
	if err != nil {
		p.log.Error("Upload failed, recording kept locally: %v", err)
		p.met.IncUploadFailures()
		return
	}

	p.met.IncUploads()
	if res.AnalysisID != "" {
		if err := store.SetUploaded(p.db, rec.ID, res.AnalysisID, time.Now()); err != nil {
			p.log.Warn("Marking recording uploaded failed: %v", err)
		}
	}
	p.log.Success("Recording %s uploaded (%d clips, analysis %s)", rec.ID, res.UploadedClips, res.AnalysisID)
	p.notify.Notify("Game uploaded", "analysis queued")
}
