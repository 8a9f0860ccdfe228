// Package metrics exposes Prometheus metrics for inspection scans
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the scan metrics and the registry they are exposed from
type Collector struct {
	registry *prometheus.Registry

	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	activeRuns   prometheus.Gauge
	scores       prometheus.Histogram
	resolutions  *prometheus.CounterVec
}

// New creates a collector with its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swashakti",
			Name:      "scan_runs_started_total",
			Help:      "Number of scan runs started",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swashakti",
			Name:      "scan_runs_finished_total",
			Help:      "Number of scan runs that reached a terminal state",
		}, []string{"status"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swashakti",
			Name:      "scan_runs_active",
			Help:      "Number of scan runs not yet in a terminal state",
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swashakti",
			Name:      "scan_quality_score",
			Help:      "Quality scores of completed scan runs",
			Buckets:   prometheus.LinearBuckets(80, 2, 10),
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swashakti",
			Name:      "scan_resolutions_total",
			Help:      "Completed scans resolved as a new or an existing sample",
		}, []string{"choice"}),
	}

	c.registry.MustRegister(c.runsStarted, c.runsFinished, c.activeRuns, c.scores, c.resolutions)
	return c
}

// RunStarted records a run entering Running
func (c *Collector) RunStarted() {
	c.runsStarted.Inc()
	c.activeRuns.Inc()
}

// RunCompleted records a natural completion with its score
func (c *Collector) RunCompleted(score int) {
	c.runsFinished.WithLabelValues("completed").Inc()
	c.activeRuns.Dec()
	c.scores.Observe(float64(score))
}

// RunCancelled records a cancelled run
func (c *Collector) RunCancelled() {
	c.runsFinished.WithLabelValues("cancelled").Inc()
	c.activeRuns.Dec()
}

// Resolved records a post-completion choice
func (c *Collector) Resolved(choice string) {
	c.resolutions.WithLabelValues(choice).Inc()
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
