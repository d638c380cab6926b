// Package metrics provides Prometheus metrics for the consultation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// stageDuration records how long each pipeline stage takes.
	// Labels:
	//   - stage: pipeline stage name (e.g. "recognizing", "summarizing")
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"stage"},
	)

	// runsTotal counts finished pipeline runs by terminal status.
	// Labels:
	//   - status: "done", "failed" or "cancelled"
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of finished pipeline runs",
		},
		[]string{"status"},
	)

	// backendCallsTotal counts external model/backend calls.
	// Labels:
	//   - backend: implementation name (e.g. "lmstudio", "whisper-http")
	//   - status: "success", "retried" or "failed"
	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_backend_calls_total",
			Help: "Total number of external backend calls",
		},
		[]string{"backend", "status"},
	)
)

func init() {
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(backendCallsTotal)
}

// ObserveStageDuration records the duration of one pipeline stage
func ObserveStageDuration(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records a finished run with its terminal status
func RecordRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

// RecordBackendCall records one external backend call
func RecordBackendCall(backend, status string) {
	backendCallsTotal.WithLabelValues(backend, status).Inc()
}
