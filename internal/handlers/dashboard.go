package handlers

import (
	"net/http"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/db"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/services"
)

// DashboardData is the home dashboard payload
type DashboardData struct {
	Stats       *db.DashboardStats   `json:"stats"`
	RecentScans []*services.ScanInfo `json:"recent_scans"`
}

// Dashboard handles GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inspector.Dashboard()
	if err != nil {
		writeError(w, err)
		return
	}

	recent, err := h.inspector.ListScans(5, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardData{
		Stats:       stats,
		RecentScans: recent,
	})
}
