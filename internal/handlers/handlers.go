package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/services"
)

// Handler holds all HTTP handlers
type Handler struct {
	inspector *services.Inspector
	metrics   http.Handler
}

// New creates a new Handler. metrics serves /metrics and may be nil.
func New(inspector *services.Inspector, metrics http.Handler) *Handler {
	return &Handler{
		inspector: inspector,
		metrics:   metrics,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(logRequests)

	// Dashboard
	r.HandleFunc("/api/dashboard", h.Dashboard).Methods(http.MethodGet)

	// Scans
	r.HandleFunc("/api/checks", h.Checks).Methods(http.MethodGet)
	r.HandleFunc("/api/scans", h.History).Methods(http.MethodGet)
	r.HandleFunc("/api/scans", h.StartScan).Methods(http.MethodPost)
	r.HandleFunc("/api/scans/{id}", h.GetScan).Methods(http.MethodGet)
	r.HandleFunc("/api/scans/{id}/cancel", h.CancelScan).Methods(http.MethodPost)
	r.HandleFunc("/api/scans/{id}/resolve", h.ResolveScan).Methods(http.MethodPost)

	// Samples
	r.HandleFunc("/api/samples", h.Samples).Methods(http.MethodGet)

	// SSE
	r.HandleFunc("/sse/scan/{id}", h.ScanEventsSSE).Methods(http.MethodGet)

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}
}

// logRequests logs each request at debug level
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("http: %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

// errorResponse is the body of every non-2xx API response
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("http: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("http: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// errorStatus maps service errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrScanNotFound), errors.Is(err, services.ErrSampleNotFound):
		return http.StatusNotFound
	case errors.Is(err, scan.ErrAlreadyRunning),
		errors.Is(err, scan.ErrTerminalState),
		errors.Is(err, scan.ErrNotCompleted),
		errors.Is(err, scan.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, scan.ErrInvalidChoice),
		errors.Is(err, scan.ErrInvalidCheckList),
		errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return strconv.Itoa(m) + "m " + strconv.Itoa(s) + "s"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
}
