package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Lifecycle(t *testing.T) {
	c := New()

	c.RunStarted()
	c.RunStarted()
	c.RunStarted()
	c.RunCompleted(91)
	c.RunCancelled()
	c.Resolved("new")

	if got := testutil.ToFloat64(c.runsStarted); got != 3 {
		t.Errorf("runs started = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.activeRuns); got != 1 {
		t.Errorf("active runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.runsFinished.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.runsFinished.WithLabelValues("cancelled")); got != 1 {
		t.Errorf("cancelled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.resolutions.WithLabelValues("new")); got != 1 {
		t.Errorf("resolutions = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.RunStarted()
	c.RunCompleted(88)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"swashakti_scan_runs_started_total 1",
		`swashakti_scan_runs_finished_total{status="completed"} 1`,
		"swashakti_scan_quality_score_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
