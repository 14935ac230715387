// Package metrics provides Prometheus metrics for the prose build service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prose_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prose_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	compilationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prose_compilations_total",
			Help: "Pipeline runs by outcome (success or failure kind)",
		},
		[]string{"outcome"},
	)

	compilationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prose_compilation_duration_seconds",
			Help:    "End-to-end pipeline run duration",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	stagingCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prose_staging_cleanup_failures_total",
			Help: "Staging directories that could not be removed",
		},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prose_compile_jobs_total",
			Help: "Async compile jobs by final status",
		},
		[]string{"status"},
	)

	jobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prose_compile_job_queue_depth",
			Help: "Jobs waiting for a worker",
		},
	)

	importedDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prose_imported_documents_total",
			Help: "Uploaded files processed by the importer",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordCompilation records a finished pipeline run.
func RecordCompilation(outcome string, d time.Duration) {
	compilationsTotal.WithLabelValues(outcome).Inc()
	compilationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordCleanupFailure counts a staging directory left behind.
func RecordCleanupFailure() {
	stagingCleanupFailures.Inc()
}

// RecordJob counts a job reaching a terminal status.
func RecordJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

// SetJobQueueDepth updates the queue depth gauge.
func SetJobQueueDepth(n int) {
	jobQueueDepth.Set(float64(n))
}

// RecordImport counts one imported file.
func RecordImport(result string) {
	importedDocuments.WithLabelValues(result).Inc()
}
