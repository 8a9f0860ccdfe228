package handlers

import (
	"net/http"
	"strconv"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/services"
)

const historyPageSize = 20

// HistoryData is the paginated scan list payload
type HistoryData struct {
	Scans    []*ScanHistoryView `json:"scans"`
	Page     int                `json:"page"`
	HasMore  bool               `json:"has_more"`
	NextPage int                `json:"next_page,omitempty"`
}

// ScanHistoryView extends ScanInfo with a readable duration
type ScanHistoryView struct {
	*services.ScanInfo
	Duration string `json:"duration"`
}

// History handles GET /api/scans
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	limit := historyPageSize
	offset := (page - 1) * limit

	scans, err := h.inspector.ListScans(limit+1, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	hasMore := len(scans) > limit
	if hasMore {
		scans = scans[:limit]
	}

	data := HistoryData{
		Scans:   make([]*ScanHistoryView, 0, len(scans)),
		Page:    page,
		HasMore: hasMore,
	}
	if hasMore {
		data.NextPage = page + 1
	}

	for _, info := range scans {
		view := &ScanHistoryView{ScanInfo: info}
		switch {
		case info.CompletedAt != nil:
			view.Duration = formatDuration(info.CompletedAt.Sub(info.StartedAt))
		case info.Status == scan.StatusRunning || info.Status == scan.StatusCompleting:
			view.Duration = "Running..."
		default:
			view.Duration = "-"
		}
		data.Scans = append(data.Scans, view)
	}

	writeJSON(w, http.StatusOK, data)
}
