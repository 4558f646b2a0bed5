// Package retention enforces the local recording budget: the remake gate
// before upload and the most-recent-N sweep after every pipeline run.
package retention

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/display"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/store"
)

// recordingExt matches the container extension used by the session
// finalizer.
const recordingExt = ".webm"

// Entry describes one persisted local recording.
type Entry struct {
	Path         string
	ModifiedTime time.Time
	SizeBytes    int64
}

// IsRemake reports whether a session was too short to be a real game.
// Remakes are deleted locally and never uploaded.
func IsRemake(gameDuration, minDuration time.Duration) bool {
	return gameDuration < minDuration
}

// Manager lists and prunes the persisted recordings directory. All deletes
// are best-effort: failures are logged and never fatal to the session.
type Manager struct {
	dir string
	max int
	db  *sql.DB
	log *logging.Logger
}

// NewManager returns a Manager keeping at most max recordings under dir.
func NewManager(dir string, max int, db *sql.DB, log *logging.Logger) *Manager {
	return &Manager{dir: dir, max: max, db: db, log: log}
}

// Entries lists persisted recordings sorted by modification time
// descending (newest first).
func (m *Manager) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() || filepath.Ext(de.Name()) != recordingExt {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Path:         filepath.Join(m.dir, de.Name()),
			ModifiedTime: info.ModTime(),
			SizeBytes:    info.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModifiedTime.After(entries[j].ModifiedTime)
	})
	return entries, nil
}

// Enforce deletes every recording beyond the configured maximum, oldest
// first. Safe to call after every pipeline outcome; it is idempotent.
func (m *Manager) Enforce() {
	entries, err := m.Entries()
	if err != nil {
		m.log.Warn("Retention scan failed: %v", err)
		return
	}
	if len(entries) <= m.max {
		return
	}

	for _, e := range entries[m.max:] {
		m.remove(e.Path)
		m.log.Info("Retention: pruned %s (%s)", filepath.Base(e.Path), display.FormatBytes(e.SizeBytes))
	}
}

// DiscardRemake deletes a just-written remake recording and its index row.
func (m *Manager) DiscardRemake(path string) {
	m.remove(path)
	m.log.Info("Remake discarded: %s", filepath.Base(path))
}

// remove deletes the file and its index row, logging failures.
func (m *Manager) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn("Cannot delete %s: %v", path, err)
	}
	if m.db != nil {
		if err := store.DeleteByPath(m.db, path); err != nil {
			m.log.Warn("Cannot delete index row for %s: %v", path, err)
		}
	}
}
