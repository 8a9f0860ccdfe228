package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/db"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/services"
)

// Checks handles GET /api/checks
func (h *Handler) Checks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"checks": h.inspector.Checks()})
}

// StartScan handles POST /api/scans
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	info, err := h.inspector.StartScan(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/scans/"+info.ID)
	writeJSON(w, http.StatusAccepted, info)
}

// GetScan handles GET /api/scans/{id}
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	info, err := h.inspector.GetScan(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// CancelScan handles POST /api/scans/{id}/cancel
func (h *Handler) CancelScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.inspector.CancelScan(id); err != nil {
		if errors.Is(err, scan.ErrTerminalState) {
			logger.Warnf("http: cancel of finished scan %s ignored", id)
		}
		writeError(w, err)
		return
	}

	info, err := h.inspector.GetScan(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ResolveScan handles POST /api/scans/{id}/resolve
func (h *Handler) ResolveScan(w http.ResponseWriter, r *http.Request) {
	var req services.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sample, err := h.inspector.Resolve(mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// Samples handles GET /api/samples
func (h *Handler) Samples(w http.ResponseWriter, r *http.Request) {
	samples, err := h.inspector.ListSamples()
	if err != nil {
		writeError(w, err)
		return
	}
	if samples == nil {
		samples = []*db.Sample{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": samples})
}
