package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when no recording row matches.
var ErrNotFound = errors.New("recording not found")

// Recording is one row of the local index.
type Recording struct {
	ID              string
	MatchID         string
	AccountID       string
	Region          string
	Path            string
	DurationSeconds float64
	SizeBytes       int64
	AnalysisID      string
	UploadedAt      time.Time // Zero when never uploaded.
	CreatedAt       time.Time
}

// Insert writes a new recording row.
func Insert(db *sql.DB, r *Recording) error {
	_, err := db.Exec(`
		INSERT INTO recordings (id, match_id, account_id, region, path,
			duration_seconds, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, nullable(r.MatchID), nullable(r.AccountID), nullable(r.Region),
		r.Path, r.DurationSeconds, r.SizeBytes, r.CreatedAt.Unix())
	return err
}

// SetMatch links a recording to its reconciled match.
func SetMatch(db *sql.DB, id, matchID string) error {
	return execOne(db, `UPDATE recordings SET match_id = ? WHERE id = ?`, matchID, id)
}

// SetUploaded records a completed upload and its analysis id.
func SetUploaded(db *sql.DB, id, analysisID string, at time.Time) error {
	return execOne(db, `UPDATE recordings SET analysis_id = ?, uploaded_at = ? WHERE id = ?`,
		nullable(analysisID), at.Unix(), id)
}

// GetByID fetches one recording by id.
func GetByID(db *sql.DB, id string) (*Recording, error) {
	return scanOne(db.QueryRow(selectCols+` WHERE id = ?`, id))
}

// GetByPath fetches one recording by its on-disk path.
func GetByPath(db *sql.DB, path string) (*Recording, error) {
	return scanOne(db.QueryRow(selectCols+` WHERE path = ?`, path))
}

// Delete removes the row for a purged recording file. Deleting an absent
// row is not an error; retention sweeps race file deletion.
func Delete(db *sql.DB, id string) error {
	_, err := db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	return err
}

// DeleteByPath removes the row matching an on-disk path.
func DeleteByPath(db *sql.DB, path string) error {
	_, err := db.Exec(`DELETE FROM recordings WHERE path = ?`, path)
	return err
}

// List returns all recordings, newest first.
func List(db *sql.DB) ([]Recording, error) {
	rows, err := db.Query(selectCols + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

const selectCols = `
	SELECT id, match_id, account_id, region, path,
	       duration_seconds, size_bytes, analysis_id, uploaded_at, created_at
	FROM recordings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*Recording, error) {
	r, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func scanRecording(s rowScanner) (*Recording, error) {
	var r Recording
	var matchID, accountID, region, analysisID sql.NullString
	var uploadedAt sql.NullInt64
	var createdAt int64

	err := s.Scan(&r.ID, &matchID, &accountID, &region, &r.Path,
		&r.DurationSeconds, &r.SizeBytes, &analysisID, &uploadedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	r.MatchID = matchID.String
	r.AccountID = accountID.String
	r.Region = region.String
	r.AnalysisID = analysisID.String
	if uploadedAt.Valid {
		r.UploadedAt = time.Unix(uploadedAt.Int64, 0)
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}

func execOne(db *sql.DB, query string, args ...any) error {
	res, err := db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
