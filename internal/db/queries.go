package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ScanRun queries

const scanRunColumns = `id, status, progress, check_count, score, started_at, completed_at,
	error_message, resolution, sample_id`

// CreateScanRun records a new running scan. An empty id gets a fresh UUID.
func (db *DB) CreateScanRun(id string, checkCount int) (*ScanRun, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := db.Exec(`
		INSERT INTO scan_runs (id, status, progress, check_count, started_at)
		VALUES (?, ?, 0, ?, ?)`,
		id, ScanRunStatusRunning, checkCount, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	return db.GetScanRun(id)
}

// GetScanRun retrieves a scan run by ID
func (db *DB) GetScanRun(id string) (*ScanRun, error) {
	row := db.QueryRow(`SELECT `+scanRunColumns+` FROM scan_runs WHERE id = ?`, id)
	return scanScanRun(row)
}

// ListScanRuns returns scan runs with pagination, newest first
func (db *DB) ListScanRuns(limit, offset int) ([]*ScanRun, error) {
	rows, err := db.Query(`SELECT `+scanRunColumns+`
		FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ScanRun
	for rows.Next() {
		r, err := scanScanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UpdateScanRunProgress updates scan progress and status
func (db *DB) UpdateScanRunProgress(id string, progress int, status ScanRunStatus) error {
	_, err := db.Exec(`
		UPDATE scan_runs SET progress = ?, status = ?
		WHERE id = ? AND status NOT IN ('completed', 'cancelled')`,
		progress, status, id,
	)
	return err
}

// CompleteScanRun marks a scan run as finished. Score is set only for
// completed runs; errorMsg only for cancelled ones.
func (db *DB) CompleteScanRun(id string, status ScanRunStatus, score *int, errorMsg *string) error {
	_, err := db.Exec(`
		UPDATE scan_runs SET status = ?, score = ?, completed_at = ?, error_message = ?
		WHERE id = ?`,
		status, score, time.Now().UTC(), errorMsg, id,
	)
	return err
}

// SetScanRunResolution records how a completed run was resolved
func (db *DB) SetScanRunResolution(id, resolution, sampleID string) error {
	res, err := db.Exec(`
		UPDATE scan_runs SET resolution = ?, sample_id = ?
		WHERE id = ? AND status = 'completed'`,
		resolution, sampleID, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteFinishedRunsBefore removes finished runs that completed before cutoff
// and returns their IDs
func (db *DB) DeleteFinishedRunsBefore(cutoff time.Time) ([]string, error) {
	rows, err := db.Query(`
		DELETE FROM scan_runs
		WHERE status IN ('completed', 'cancelled') AND completed_at < ?
		RETURNING id`, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScanRun(row rowScanner) (*ScanRun, error) {
	var r ScanRun
	var score sql.NullInt64
	var completedAt sql.NullTime
	var errorMsg, resolution, sampleID sql.NullString

	err := row.Scan(&r.ID, &r.Status, &r.Progress, &r.CheckCount, &score, &r.StartedAt,
		&completedAt, &errorMsg, &resolution, &sampleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if score.Valid {
		s := int(score.Int64)
		r.Score = &s
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if errorMsg.Valid {
		r.ErrorMessage = &errorMsg.String
	}
	if resolution.Valid {
		r.Resolution = &resolution.String
	}
	if sampleID.Valid {
		r.SampleID = &sampleID.String
	}

	return &r, nil
}

// Sample queries

const sampleColumns = `id, name, score, scan_count, last_scan_run_id, created_at, updated_at`

// CreateSample saves a new sample with its first score
func (db *DB) CreateSample(name string, score int, runID string) (*Sample, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO samples (id, name, score, scan_count, last_scan_run_id, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)`,
		id, name, score, nullString(runID), now, now,
	)
	if err != nil {
		return nil, err
	}

	return db.GetSample(id)
}

// GetSample retrieves a sample by ID
func (db *DB) GetSample(id string) (*Sample, error) {
	row := db.QueryRow(`SELECT `+sampleColumns+` FROM samples WHERE id = ?`, id)
	return scanSample(row)
}

// ListSamples returns all samples, most recently updated first
func (db *DB) ListSamples() ([]*Sample, error) {
	rows, err := db.Query(`SELECT ` + sampleColumns + ` FROM samples ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// UpdateSampleScore applies a new score to an existing sample
func (db *DB) UpdateSampleScore(id string, score int, runID string) (*Sample, error) {
	res, err := db.Exec(`
		UPDATE samples SET score = ?, scan_count = scan_count + 1,
			last_scan_run_id = ?, updated_at = ?
		WHERE id = ?`,
		score, nullString(runID), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}

	return db.GetSample(id)
}

func scanSample(row rowScanner) (*Sample, error) {
	var s Sample
	var lastRun sql.NullString

	err := row.Scan(&s.ID, &s.Name, &s.Score, &s.ScanCount, &lastRun, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastRun.Valid {
		s.LastScanRunID = &lastRun.String
	}
	return &s, nil
}

// Stats queries

// GetDashboardStats returns aggregate statistics. Scans today counts runs
// started at or after since.
func (db *DB) GetDashboardStats(since time.Time) (*DashboardStats, error) {
	var stats DashboardStats

	row := db.QueryRow(`
		SELECT
			COUNT(CASE WHEN started_at >= ? THEN 1 END),
			COUNT(CASE WHEN status IN ('running', 'completing') THEN 1 END),
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(CASE WHEN status = 'cancelled' THEN 1 END),
			COALESCE(AVG(CASE WHEN status = 'completed' THEN score END), 0)
		FROM scan_runs`, since.UTC())
	if err := row.Scan(&stats.ScansToday, &stats.ActiveScans, &stats.CompletedScans,
		&stats.CancelledScans, &stats.AverageScore); err != nil {
		return nil, err
	}

	row = db.QueryRow("SELECT COUNT(*) FROM samples")
	if err := row.Scan(&stats.Samples); err != nil {
		return nil, err
	}

	return &stats, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
