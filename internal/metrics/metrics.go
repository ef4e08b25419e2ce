// Package metrics exposes Prometheus instrumentation for the guide pipeline.
// Collectors are registered on the default registry; Serve starts an optional
// /metrics listener for runs long enough to be worth scraping.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequests counts completed SD-JSON calls by logical endpoint and
	// embedded response code ("0" = success).
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sd_api_requests_total",
		Help: "Schedules Direct API calls by endpoint and embedded response code.",
	}, []string{"endpoint", "code"})

	// APIRetries counts connection-level retries performed by the call layer.
	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sd_api_retries_total",
		Help: "Connection-level retries by endpoint.",
	}, []string{"endpoint"})

	// ProgramsFetched counts unique program IDs fetched across runs.
	ProgramsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guide_programs_fetched_total",
		Help: "Unique program metadata records fetched.",
	})

	// RunDuration observes wall-clock duration of complete pipeline runs.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guide_run_duration_seconds",
		Help:    "Duration of full guide pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	// LastSuccess is the unix time of the last run that produced output.
	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guide_last_success_timestamp_seconds",
		Help: "Unix time of the last successful guide run.",
	})
)

// Serve starts an HTTP listener exposing /metrics on addr and returns a
// shutdown func. Errors after startup are ignored; the guide run, not the
// metrics listener, is the unit of work that matters.
func Serve(addr string) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv.Shutdown
}
