// Package metrics exposes Prometheus collectors for the verifier service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	verifierEmailsTotal         *prometheus.CounterVec
	verifierJobsTotal           *prometheus.CounterVec
	verifierActiveJobs          prometheus.Gauge
	verificationDurationSeconds prometheus.Histogram
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		verifierEmailsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verifier_emails_total",
				Help: "Total number of addresses verified, labeled by outcome status.",
			},
			[]string{"status"},
		)

		verifierJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verifier_jobs_total",
				Help: "Total number of validation sessions, labeled by terminal status.",
			},
			[]string{"status"},
		)

		verifierActiveJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "verifier_active_jobs",
				Help: "Number of validation sessions currently processing.",
			},
		)

		verificationDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "verifier_verification_duration_seconds",
				Help:    "Histogram of single-address verification latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveVerification records one address verification.
func ObserveVerification(status string, duration time.Duration) {
	verifierEmailsTotal.WithLabelValues(status).Inc()
	verificationDurationSeconds.Observe(duration.Seconds())
}

// ObserveJob increments the session counter for the given terminal status.
func ObserveJob(status string) {
	verifierJobsTotal.WithLabelValues(status).Inc()
}

// IncActiveJobs increments the active sessions gauge.
func IncActiveJobs() {
	verifierActiveJobs.Inc()
}

// DecActiveJobs decrements the active sessions gauge.
func DecActiveJobs() {
	verifierActiveJobs.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
