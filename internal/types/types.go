package types

import "github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"

// ScanEvent represents a scan update for SSE subscribers
type ScanEvent struct {
	RunID    string           `json:"run_id"`
	Status   scan.Status      `json:"status"`
	Progress int              `json:"progress"`
	Checks   []scan.CheckItem `json:"checks,omitempty"`
	Score    *int             `json:"score,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Final reports whether no further events follow this one
func (e *ScanEvent) Final() bool {
	return e.Status.IsTerminal()
}
