// Package session owns the recording lifecycle: the state machine driven
// by process start/end events, the consent window, and the handoff of a
// finished recording to the post-capture pipeline.
package session

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yannisouraghi/nexra-vision/internal/capture"
	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/metrics"
	"github.com/yannisouraghi/nexra-vision/internal/store"
)

// State is the session lifecycle position. At most one session exists at a
// time; a process start while non-idle is ignored.
type State int

const (
	StateIdle State = iota
	StateDetected
	StateAwaitingConsent
	StateCapturing
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetected:
		return "detected"
	case StateAwaitingConsent:
		return "awaiting-consent"
	case StateCapturing:
		return "capturing"
	case StateFinalizing:
		return "finalizing"
	}
	return "unknown"
}

// Timer is the stoppable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the state machine so the grace and consent
// windows are testable without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// ConsentRequester shows the record-this-game prompt. The answer arrives
// asynchronously through AcceptConsent or DeclineConsent; no answer within
// the timeout counts as a decline.
type ConsentRequester interface {
	Request(game string, timeout time.Duration)
}

// Notifier surfaces user-facing session events (recording started, upload
// finished, remake discarded). The default implementation just logs.
type Notifier interface {
	Notify(title, message string)
}

type logNotifier struct{ log *logging.Logger }

func (n logNotifier) Notify(title, message string) { n.log.Info("%s: %s", title, message) }

// Game is the in-flight session.
type Game struct {
	ID         string // ULID, also the recording file stem.
	DetectedAt time.Time
	StartTime  time.Time // Capture start, set when recording begins.
}

// Options wires a Manager. Clock, Consent and Notifier may be nil; nil
// Clock means wall time, nil Consent means prompts silently time out, nil
// Notifier means log-only notifications.
type Options struct {
	Config   *config.Config
	Log      *logging.Logger
	Metrics  *metrics.Metrics
	DB       *sql.DB
	Recorder capture.Recorder
	Sources  capture.SourceLister
	Consent  ConsentRequester
	Notifier Notifier
	Pipeline *Pipeline
	Clock    Clock
}

// Manager is the session state machine. All transitions run under one
// mutex; timer callbacks carry a generation number so a timer that lost
// the race against a state change becomes a no-op instead of firing into
// the wrong state.
type Manager struct {
	mu    sync.Mutex
	state State
	gen   uint64

	cfg      *config.Config
	log      *logging.Logger
	met      *metrics.Metrics
	db       *sql.DB
	recorder capture.Recorder
	sources  capture.SourceLister
	consent  ConsentRequester
	notify   Notifier
	pipeline *Pipeline
	clock    Clock

	current *Game
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		state:    StateIdle,
		cfg:      opts.Config,
		log:      opts.Log,
		met:      opts.Metrics,
		db:       opts.DB,
		recorder: opts.Recorder,
		sources:  opts.Sources,
		consent:  opts.Consent,
		notify:   opts.Notifier,
		pipeline: opts.Pipeline,
		clock:    opts.Clock,
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.notify == nil {
		m.notify = logNotifier{log: opts.Log}
	}
	return m
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// setState transitions and bumps the generation, invalidating every timer
// armed before this moment.
func (m *Manager) setState(s State) {
	m.state = s
	m.gen++
	m.met.SetSessionState(int(s))
	m.log.Debug("session state -> %s", s)
}

// HandleStarted reacts to the game process appearing. Starts while a
// session is already in flight are dropped.
func (m *Manager) HandleStarted(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		m.log.Debug("process start ignored in state %s", m.state)
		return
	}

	m.current = &Game{
		ID:         ulid.Make().String(),
		DetectedAt: at,
	}
	m.setState(StateDetected)
	m.log.Info("%s detected, waiting %s before capture", m.cfg.TargetProcess, m.cfg.GraceDelay)

	gen := m.gen
	m.clock.AfterFunc(m.cfg.GraceDelay, func() { m.afterGrace(gen) })
}

// afterGrace fires once loading screens have had time to settle.
func (m *Manager) afterGrace(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.state != StateDetected {
		return
	}

	if m.cfg.AutoRecord {
		m.beginCaptureLocked()
		return
	}

	m.setState(StateAwaitingConsent)
	if m.consent != nil {
		m.consent.Request(m.cfg.GameName, m.cfg.ConsentTimeout)
	}
	gen = m.gen
	m.clock.AfterFunc(m.cfg.ConsentTimeout, func() { m.consentTimeout(gen) })
}

func (m *Manager) consentTimeout(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.state != StateAwaitingConsent {
		return
	}
	m.log.Info("Consent prompt timed out, not recording this game")
	m.resetLocked()
}

// AcceptConsent starts capture if the prompt is still open.
func (m *Manager) AcceptConsent() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingConsent {
		return
	}
	m.beginCaptureLocked()
}

// DeclineConsent closes the prompt without recording.
func (m *Manager) DeclineConsent() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingConsent {
		return
	}
	m.log.Info("Recording declined")
	m.resetLocked()
}

// beginCaptureLocked selects a source and starts the recorder. Any capture
// failure aborts the session back to idle.
func (m *Manager) beginCaptureLocked() {
	sources, err := m.sources.Sources(context.Background())
	if err != nil {
		m.log.Error("Capture source listing failed: %v", err)
		m.resetLocked()
		return
	}
	src, err := capture.Select(sources, m.cfg.GameName)
	if err != nil {
		m.log.Error("No capture source for %s: %v", m.cfg.GameName, err)
		m.resetLocked()
		return
	}

	if err := m.recorder.Start(context.Background(), src); err != nil {
		m.log.Error("Recorder start failed: %v", err)
		m.resetLocked()
		return
	}

	m.current.StartTime = m.clock.Now()
	m.setState(StateCapturing)
	m.met.IncSessionsStarted()
	m.log.Success("Recording started (session %s, source %q)", m.current.ID, src.Title)
	m.notify.Notify("Recording started", m.cfg.GameName)
}

// HandleEnded reacts to the game process disappearing.
func (m *Manager) HandleEnded(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateIdle, StateFinalizing:
		return
	case StateDetected, StateAwaitingConsent:
		m.log.Info("%s exited before recording began", m.cfg.TargetProcess)
		m.resetLocked()
	case StateCapturing:
		m.finalizeLocked(at)
	}
}

// StopManual ends an in-flight capture on user request, running the same
// finalize path as a process exit.
func (m *Manager) StopManual() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCapturing {
		return
	}
	m.log.Info("Recording stopped manually")
	m.finalizeLocked(m.clock.Now())
}

// finalizeLocked stops the recorder, persists the video and index row, and
// hands off to the post-capture pipeline in the background.
func (m *Manager) finalizeLocked(endedAt time.Time) {
	game := m.current
	m.setState(StateFinalizing)

	video, err := m.recorder.Stop(context.Background())
	if err != nil {
		m.log.Error("Recorder stop failed, session discarded: %v", err)
		m.resetLocked()
		return
	}

	recorded := endedAt.Sub(game.StartTime)
	path := filepath.Join(m.cfg.RecordingsDir, game.ID+".webm")
	if err := os.WriteFile(path, video, 0o644); err != nil {
		m.log.Error("Writing recording failed: %v", err)
		m.resetLocked()
		return
	}

	rec := &store.Recording{
		ID:              game.ID,
		AccountID:       m.cfg.AccountID,
		Region:          m.cfg.Region,
		Path:            path,
		DurationSeconds: recorded.Seconds(),
		SizeBytes:       int64(len(video)),
		CreatedAt:       game.StartTime,
	}
	if err := store.Insert(m.db, rec); err != nil {
		m.log.Error("Indexing recording failed: %v", err)
	}

	m.met.IncRecordingsCompleted()
	m.log.Success("Recording saved: %s (%s)", path, recorded.Round(time.Second))

	if m.pipeline != nil {
		go m.pipeline.Run(context.Background(), rec, game.StartTime)
	}
	m.resetLocked()
}

func (m *Manager) resetLocked() {
	m.current = nil
	m.setState(StateIdle)
}
