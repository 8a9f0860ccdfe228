package db

import (
	"time"
)

// ScanRunStatus represents the status of a scan run in the registry
type ScanRunStatus string

const (
	ScanRunStatusRunning    ScanRunStatus = "running"
	ScanRunStatusCompleting ScanRunStatus = "completing"
	ScanRunStatusCompleted  ScanRunStatus = "completed"
	ScanRunStatusCancelled  ScanRunStatus = "cancelled"
)

// IsFinished reports whether the run can no longer change
func (s ScanRunStatus) IsFinished() bool {
	return s == ScanRunStatusCompleted || s == ScanRunStatusCancelled
}

// Resolution values recorded for a resolved run
const (
	ResolutionNewSample      = "new"
	ResolutionExistingSample = "existing"
)

// ScanRun represents a single inspection scan
type ScanRun struct {
	ID           string
	Status       ScanRunStatus
	Progress     int
	CheckCount   int
	Score        *int
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	Resolution   *string
	SampleID     *string
}

// Sample is a named inspection sample holding the latest score applied to it
type Sample struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Score         int       `json:"score"`
	ScanCount     int       `json:"scan_count"`
	LastScanRunID *string   `json:"last_scan_run_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DashboardStats aggregates the session registry for the home dashboard
type DashboardStats struct {
	ScansToday     int     `json:"scans_today"`
	ActiveScans    int     `json:"active_scans"`
	CompletedScans int     `json:"completed_scans"`
	CancelledScans int     `json:"cancelled_scans"`
	AverageScore   float64 `json:"average_score"`
	Samples        int     `json:"samples"`
}
