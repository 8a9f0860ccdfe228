package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/types"
)

// ScanEventsSSE streams progress for a scan until it finishes
func (h *Handler) ScanEventsSSE(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the current state so no event is missed
	updates := h.inspector.Subscribe(runID)
	defer h.inspector.Unsubscribe(runID, updates)

	current, err := h.inspector.Event(runID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	h.sendScanEvent(w, flusher, "progress", current)
	if current.Final() {
		h.sendScanEvent(w, flusher, "complete", current)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case update, ok := <-updates:
			if !ok {
				// Closed without a final event; report the state as it is now
				if latest, err := h.inspector.Event(runID); err == nil {
					h.sendScanEvent(w, flusher, "complete", latest)
				}
				return
			}
			if update.Final() {
				h.sendScanEvent(w, flusher, "complete", update)
				return
			}
			h.sendScanEvent(w, flusher, "progress", update)
		}
	}
}

func (h *Handler) sendScanEvent(w http.ResponseWriter, flusher http.Flusher, event string, data *types.ScanEvent) {
	jsonData, _ := json.Marshal(data)
	h.sendEvent(w, flusher, event, string(jsonData))
}

func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
