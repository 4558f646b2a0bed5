// Package store maintains the local recording index: one sqlite row per
// persisted recording, linking the on-disk file to its remote match and
// analysis ids. The reanalysis path and the retention sweep read it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init opens (creating if needed) the index database at baseDir/index.db.
// The baseDir parameter allows tests to use t.TempDir().
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "index.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open recording index: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS recordings (
		  id               TEXT PRIMARY KEY,
		  match_id         TEXT,
		  account_id       TEXT,
		  region           TEXT,
		  path             TEXT NOT NULL,
		  duration_seconds REAL NOT NULL DEFAULT 0,
		  size_bytes       INTEGER NOT NULL DEFAULT 0,
		  analysis_id      TEXT,
		  uploaded_at      INTEGER,
		  created_at       INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_recordings_match ON recordings(match_id);
		CREATE INDEX IF NOT EXISTS idx_recordings_path ON recordings(path);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("apply schema v1: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func setUserVersion(db *sql.DB, v int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
