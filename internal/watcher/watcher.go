// Package watcher polls the OS process list on a fixed interval and reports
// edge-triggered start/end events for a target process name.
package watcher

import (
	"context"
	"strings"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/logging"
)

// ProcessLister enumerates the display names of running processes.
// Platform implementations shell out to the native lister; tests supply
// deterministic fakes.
type ProcessLister interface {
	List(ctx context.Context) ([]string, error)
}

// Watcher detects rising and falling edges of the target process presence.
// OnStarted fires exactly once per absent→present transition and OnEnded
// once per present→absent transition. A failed process query resolves to
// "not present" so transient polling errors can never start a recording.
type Watcher struct {
	lister   ProcessLister
	target   string
	interval time.Duration
	log      *logging.Logger

	wasRunning bool

	OnStarted func(at time.Time)
	OnEnded   func(at time.Time)
}

// New returns a Watcher for target with the given poll interval.
func New(lister ProcessLister, target string, interval time.Duration, log *logging.Logger) *Watcher {
	return &Watcher{
		lister:   lister,
		target:   target,
		interval: interval,
		log:      log,
	}
}

// Run polls until ctx is cancelled. One poll is performed immediately so a
// game already running at startup is detected without waiting a full tick.
func (w *Watcher) Run(ctx context.Context) {
	w.PollOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.PollOnce(ctx)
		}
	}
}

// PollOnce performs a single presence check and fires the edge callbacks.
// Exported so tests can drive detection without timers.
func (w *Watcher) PollOnce(ctx context.Context) {
	present := w.present(ctx)
	now := time.Now()

	switch {
	case present && !w.wasRunning:
		w.wasRunning = true
		w.log.Info("Process detected: %s", w.target)
		if w.OnStarted != nil {
			w.OnStarted(now)
		}
	case !present && w.wasRunning:
		w.wasRunning = false
		w.log.Info("Process ended: %s", w.target)
		if w.OnEnded != nil {
			w.OnEnded(now)
		}
	}
}

func (w *Watcher) present(ctx context.Context) bool {
	procs, err := w.lister.List(ctx)
	if err != nil {
		// Fail closed: a broken query must read as absent, never as a
		// spurious game start.
		w.log.Debug("Process query failed: %v", err)
		return false
	}
	return Matches(procs, w.target)
}

// Matches reports whether any process name contains target,
// case-insensitively.
func Matches(procs []string, target string) bool {
	t := strings.ToLower(target)
	for _, p := range procs {
		if strings.Contains(strings.ToLower(p), t) {
			return true
		}
	}
	return false
}
