// Package metrics exposes the Prometheus instrumentation of the API server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibliobalance_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bibliobalance_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bibliobalance_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Library Metrics
	BooksCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bibliobalance_books_completed_total",
			Help: "Total number of books marked as completed",
		},
	)

	ChallengesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bibliobalance_challenges_completed_total",
			Help: "Total number of reading challenges that reached their target",
		},
	)

	StatsRefreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bibliobalance_stats_refresh_errors_total",
			Help: "Total number of failed reading stats recomputations",
		},
	)

	// Catalog Metrics
	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bibliobalance_catalog_request_duration_seconds",
			Help:    "Duration of Open Library requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibliobalance_catalog_request_errors_total",
			Help: "Total number of failed Open Library requests",
		},
		[]string{"operation"},
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bibliobalance_catalog_breaker_state",
			Help: "Circuit breaker state of the catalog client (0=closed, 1=half-open, 2=open)",
		},
	)

	// Email Metrics
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibliobalance_emails_sent_total",
			Help: "Total number of notification emails by kind and result",
		},
		[]string{"kind", "result"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCatalogRequest records one Open Library call.
func RecordCatalogRequest(operation string, duration time.Duration, err error) {
	CatalogRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		CatalogRequestErrors.WithLabelValues(operation).Inc()
	}
}

// RecordEmail records the outcome of a notification email.
func RecordEmail(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailsSent.WithLabelValues(kind, result).Inc()
}
