package session

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/capture"
	"github.com/yannisouraghi/nexra-vision/internal/clips"
	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/matchapi"
	"github.com/yannisouraghi/nexra-vision/internal/metrics"
	"github.com/yannisouraghi/nexra-vision/internal/retention"
	"github.com/yannisouraghi/nexra-vision/internal/store"
	"github.com/yannisouraghi/nexra-vision/internal/upload"
)

type fakeFetcher struct {
	match *matchapi.MatchRecord
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, accountID, region string, sessionStart time.Time) *matchapi.MatchRecord {
	f.calls++
	return f.match
}

type fakeTimelines struct {
	timeline *matchapi.Timeline
	err      error
}

func (f *fakeTimelines) Timeline(ctx context.Context, matchID, accountID, region string) (*matchapi.Timeline, error) {
	return f.timeline, f.err
}

type fakeExtractor struct {
	extracted []clips.Extracted
	gotSpecs  []clips.Spec
	gotDir    string
}

func (f *fakeExtractor) Extract(ctx context.Context, fullVideo string, specs []clips.Spec, outDir string) []clips.Extracted {
	f.gotSpecs = specs
	f.gotDir = outDir
	return f.extracted
}

type fakeUploader struct {
	result       *upload.Result
	err          error
	calls        int
	gotExtracted []clips.Extracted
}

func (f *fakeUploader) Upload(ctx context.Context, sessionID string, video []byte, match *matchapi.MatchRecord, timeline *matchapi.Timeline, extracted []clips.Extracted, workDir string) (*upload.Result, error) {
	f.calls++
	f.gotExtracted = extracted
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type pipelineFixture struct {
	p         *Pipeline
	cfg       *config.Config
	db        *sql.DB
	rec       *store.Recording
	fetcher   *fakeFetcher
	timelines *fakeTimelines
	extractor *fakeExtractor
	uploader  *fakeUploader
}

// newPipelineFixture builds a Pipeline over a real index db with one
// recording already on disk, recordedSeconds long.
func newPipelineFixture(t *testing.T, recordedSeconds float64, mutate func(*config.Config)) *pipelineFixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.RecordingsDir = t.TempDir()
	cfg.ScratchDir = t.TempDir()
	cfg.AccountID = "acc-1"
	if mutate != nil {
		mutate(&cfg)
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	db, err := store.Init(cfg.RecordingsDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	path := filepath.Join(cfg.RecordingsDir, "01ARZ3NDEKTSV4RRFFQ69G5FAV.webm")
	if err := os.WriteFile(path, []byte("webm-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &store.Recording{
		ID:              "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		AccountID:       cfg.AccountID,
		Region:          cfg.Region,
		Path:            path,
		DurationSeconds: recordedSeconds,
		SizeBytes:       10,
		CreatedAt:       time.Now().Add(-30 * time.Minute),
	}
	if err := store.Insert(db, rec); err != nil {
		t.Fatal(err)
	}

	fx := &pipelineFixture{
		cfg:       &cfg,
		db:        db,
		rec:       rec,
		fetcher:   &fakeFetcher{},
		timelines: &fakeTimelines{},
		extractor: &fakeExtractor{},
		uploader:  &fakeUploader{result: &upload.Result{RecordingID: "rec-1", AnalysisID: "an-1"}},
	}
	ret := retention.NewManager(cfg.RecordingsDir, cfg.MaxLocalRecordings, db, log)
	fx.p = NewPipeline(&cfg, log, metrics.New(), db, fx.fetcher, fx.timelines, fx.extractor, fx.uploader, ret, nil)
	return fx
}

func TestPipeline_RemakeDiscarded(t *testing.T) {
	fx := newPipelineFixture(t, 899, nil)
	fx.fetcher.match = nil // unreconciled, recorded duration decides

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if _, err := os.Stat(fx.rec.Path); !os.IsNotExist(err) {
		t.Errorf("remake recording still on disk: %v", err)
	}
	if fx.uploader.calls != 0 {
		t.Errorf("uploader called for a remake")
	}
	if _, err := store.GetByID(fx.db, fx.rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("index row kept for a remake: %v", err)
	}
}

func TestPipeline_ExactMinDurationKept(t *testing.T) {
	fx := newPipelineFixture(t, 900, nil)

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if _, err := os.Stat(fx.rec.Path); err != nil {
		t.Errorf("15-minute recording discarded: %v", err)
	}
	if fx.uploader.calls != 1 {
		t.Errorf("uploader calls = %d, want 1", fx.uploader.calls)
	}
}

func TestPipeline_MatchDurationOverridesRecorded(t *testing.T) {
	// The wall-clock recording ran long, but the authoritative match
	// duration says remake.
	fx := newPipelineFixture(t, 1200, nil)
	fx.fetcher.match = &matchapi.MatchRecord{MatchID: "NA1_100", DurationSeconds: 450}

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if _, err := os.Stat(fx.rec.Path); !os.IsNotExist(err) {
		t.Errorf("remake kept despite match duration: %v", err)
	}
}

func TestPipeline_UnlinkedKeepsLocal(t *testing.T) {
	fx := newPipelineFixture(t, 1800, func(c *config.Config) { c.AccountID = "" })

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if fx.fetcher.calls != 0 {
		t.Errorf("match fetch attempted while unlinked")
	}
	if fx.uploader.calls != 0 {
		t.Errorf("upload attempted while unlinked")
	}
	if _, err := os.Stat(fx.rec.Path); err != nil {
		t.Errorf("recording missing: %v", err)
	}
}

func TestPipeline_FullFlow(t *testing.T) {
	fx := newPipelineFixture(t, 1790, nil)
	fx.fetcher.match = &matchapi.MatchRecord{MatchID: "NA1_100", DurationSeconds: 1820, Win: true}
	fx.timelines.timeline = &matchapi.Timeline{
		Clips: []clips.Spec{
			{Type: clips.TypeKill, Severity: clips.SeverityHigh, StartTime: 312},
			{Type: clips.TypeDeath, Severity: clips.SeverityCritical, StartTime: 845},
		},
	}
	fx.extractor.extracted = []clips.Extracted{
		{Spec: fx.timelines.timeline.Clips[1], Index: 0, LocalPath: "clip_000_death.mp4"},
		{Spec: fx.timelines.timeline.Clips[0], Index: 1, LocalPath: "clip_001_kill.mp4"},
	}
	fx.uploader.result = &upload.Result{RecordingID: "rec-1", AnalysisID: "an-9", UploadedClips: 2}

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if len(fx.extractor.gotSpecs) != 2 {
		t.Fatalf("extractor specs = %d, want 2", len(fx.extractor.gotSpecs))
	}
	if fx.extractor.gotDir == "" || filepath.Dir(fx.extractor.gotDir) != fx.cfg.ScratchDir {
		t.Errorf("clip workspace %q not under scratch dir", fx.extractor.gotDir)
	}
	if fx.uploader.calls != 1 || len(fx.uploader.gotExtracted) != 2 {
		t.Fatalf("uploader calls = %d extracted = %d", fx.uploader.calls, len(fx.uploader.gotExtracted))
	}

	row, err := store.GetByID(fx.db, fx.rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.MatchID != "NA1_100" {
		t.Errorf("row matchID = %q, want NA1_100", row.MatchID)
	}
	if row.AnalysisID != "an-9" || row.UploadedAt.IsZero() {
		t.Errorf("row analysis = %q uploadedAt = %v, want an-9 and non-zero", row.AnalysisID, row.UploadedAt)
	}
}

func TestPipeline_TimelineFailureUploadsWithoutClips(t *testing.T) {
	fx := newPipelineFixture(t, 1800, nil)
	fx.fetcher.match = &matchapi.MatchRecord{MatchID: "NA1_100", DurationSeconds: 1800}
	fx.timelines.err = errors.New("502")

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if fx.extractor.gotSpecs != nil {
		t.Errorf("clips extracted with no timeline")
	}
	if fx.uploader.calls != 1 {
		t.Errorf("uploader calls = %d, want 1", fx.uploader.calls)
	}
	if len(fx.uploader.gotExtracted) != 0 {
		t.Errorf("uploaded clips = %d, want 0", len(fx.uploader.gotExtracted))
	}
}

func TestPipeline_UploadFailureKeepsLocal(t *testing.T) {
	fx := newPipelineFixture(t, 1800, nil)
	fx.uploader.err = &upload.UploadError{Step: "upload-video", Err: errors.New("503")}

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	if _, err := os.Stat(fx.rec.Path); err != nil {
		t.Errorf("recording missing after failed upload: %v", err)
	}
	row, err := store.GetByID(fx.db, fx.rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !row.UploadedAt.IsZero() {
		t.Errorf("row marked uploaded after failure")
	}
}

func TestPipeline_RetentionEnforcedAfterRun(t *testing.T) {
	fx := newPipelineFixture(t, 1800, nil)

	// Seed older recordings past the cap.
	base := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 4; i++ {
		p := filepath.Join(fx.cfg.RecordingsDir, string(rune('a'+i))+".webm")
		if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, base, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	fx.p.Run(context.Background(), fx.rec, fx.rec.CreatedAt)

	files, err := filepath.Glob(filepath.Join(fx.cfg.RecordingsDir, "*.webm"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != fx.cfg.MaxLocalRecordings {
		t.Errorf("recordings kept = %d, want %d", len(files), fx.cfg.MaxLocalRecordings)
	}
	if _, err := os.Stat(fx.rec.Path); err != nil {
		t.Errorf("newest recording pruned: %v", err)
	}
}

type chanNotifier struct{ ch chan string }

func (n *chanNotifier) Notify(title, message string) {
	select {
	case n.ch <- title:
	default:
	}
}

// Full lifecycle: detection, grace, capture, finalize, reconciliation,
// clip extraction, upload, index bookkeeping.
func TestSession_EndToEnd(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.RecordingsDir = t.TempDir()
	cfg.ScratchDir = t.TempDir()
	cfg.AccountID = "acc-1"

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	db, err := store.Init(cfg.RecordingsDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	clock := newFakeClock()
	sessionStart := clock.Now().Add(cfg.GraceDelay)
	match := &matchapi.MatchRecord{
		MatchID:         "NA1_555",
		DurationSeconds: 1205,
		Timestamp:       sessionStart.Add(1195 * time.Second).UnixMilli(),
		Win:             true,
	}
	timeline := &matchapi.Timeline{
		Clips: []clips.Spec{
			{Type: clips.TypeDeath, Severity: clips.SeverityHigh, StartTime: 300},
			{Type: clips.TypeKill, Severity: clips.SeverityLow, StartTime: 700},
		},
	}
	extractor := &fakeExtractor{extracted: []clips.Extracted{
		{Spec: timeline.Clips[0], Index: 0, LocalPath: "clip_000_death.mp4"},
		{Spec: timeline.Clips[1], Index: 1, LocalPath: "clip_001_kill.mp4"},
	}}
	uploader := &fakeUploader{result: &upload.Result{RecordingID: "rec-1", AnalysisID: "an-3", UploadedClips: 2}}
	notifier := &chanNotifier{ch: make(chan string, 8)}

	ret := retention.NewManager(cfg.RecordingsDir, cfg.MaxLocalRecordings, db, log)
	pipe := NewPipeline(&cfg, log, metrics.New(), db,
		&fakeFetcher{match: match}, &fakeTimelines{timeline: timeline},
		extractor, uploader, ret, notifier)

	mgr := NewManager(Options{
		Config:   &cfg,
		Log:      log,
		Metrics:  metrics.New(),
		DB:       db,
		Recorder: &fakeRecorder{video: []byte("webm-bytes")},
		Sources:  &fakeSources{srcs: []capture.Source{{ID: "screen:0", Fullscreen: true}}},
		Pipeline: pipe,
		Notifier: notifier,
		Clock:    clock,
	})

	mgr.HandleStarted(clock.Now())
	clock.Advance(cfg.GraceDelay)
	if got := mgr.State(); got != StateCapturing {
		t.Fatalf("state = %s, want capturing", got)
	}

	clock.Advance(20 * time.Minute)
	mgr.HandleEnded(clock.Now())

	deadline := time.After(5 * time.Second)
	for {
		select {
		case title := <-notifier.ch:
			if title == "Game uploaded" {
				goto done
			}
		case <-deadline:
			t.Fatal("pipeline never reported an upload")
		}
	}
done:
	if len(uploader.gotExtracted) != 2 {
		t.Errorf("uploaded clips = %d, want 2", len(uploader.gotExtracted))
	}
	rows, err := store.List(db)
	if err != nil || len(rows) != 1 {
		t.Fatalf("index rows = %d (err %v), want 1", len(rows), err)
	}
	if rows[0].MatchID != "NA1_555" || rows[0].AnalysisID != "an-3" {
		t.Errorf("row match=%q analysis=%q, want NA1_555/an-3", rows[0].MatchID, rows[0].AnalysisID)
	}
}
