// Package metrics declares the Prometheus collectors exported on the metrics port.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkgate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkgate_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Application Metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_resolutions_total",
			Help: "Short code resolutions by outcome (found, not_found, filtered, error)",
		},
		[]string{"outcome"},
	)

	CounterIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_counter_increments_total",
			Help: "Atomic counter increments by target and status",
		},
		[]string{"target", "status"},
	)

	ChallengeSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkgate_challenge_sessions_active",
			Help: "Live challenge sessions held by this instance",
		},
	)

	UnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_unlocks_total",
			Help: "Completed challenges by variant",
		},
		[]string{"variant"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_events_published_total",
			Help: "Analytics events handed to the sink by status",
		},
		[]string{"status"},
	)

	LinksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_links_created_total",
			Help: "Short links created by status",
		},
		[]string{"status"},
	)
)

// RecordHTTP records one finished request.
func RecordHTTP(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Status renders an error as the status label used by the counters above.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
