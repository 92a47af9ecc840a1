// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs, labeled by outcome.",
		},
		[]string{"status"},
	)

	ingestStageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_stage_duration_seconds",
			Help:    "Histogram of pipeline stage latencies, labeled by stage and outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage", "status"},
	)

	ingestItemsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_items_fetched_total",
			Help: "Total number of detail records fetched from the upstream API.",
		},
	)

	ingestRowsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_rows_inserted_total",
			Help: "Total number of rows appended to the warehouse.",
		},
	)

	ingestUpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_upstream_requests_total",
			Help: "Total number of upstream API requests, labeled by site and outcome.",
		},
		[]string{"site", "status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun increments the run counter for the given outcome.
func ObserveRun(status string) {
	ingestRunsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage, status string, duration time.Duration) {
	ingestStageDurationSeconds.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// AddItemsFetched adds n to the fetched item counter.
func AddItemsFetched(n int) {
	if n > 0 {
		ingestItemsFetchedTotal.Add(float64(n))
	}
}

// AddRowsInserted adds n to the inserted row counter.
func AddRowsInserted(n int) {
	if n > 0 {
		ingestRowsInsertedTotal.Add(float64(n))
	}
}

// ObserveUpstreamRequest counts a single upstream API call.
func ObserveUpstreamRequest(rawURL, status string) {
	ingestUpstreamRequestsTotal.WithLabelValues(SanitizeSite(rawURL), status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
