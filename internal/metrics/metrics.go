// Package metrics exposes Prometheus instrumentation for the progress service:
// HTTP traffic, learning-event processing, gamification outcomes, cache
// efficiency, and scheduled job runs. All collectors are registered on the
// default registry and served by the /metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─────────────────────────────────────────────────────────────────────────
	// HTTP metrics
	// ─────────────────────────────────────────────────────────────────────────

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "progress_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	HTTPRateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_http_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the per-IP rate limiter",
		},
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Learning event metrics
	// ─────────────────────────────────────────────────────────────────────────

	LearningEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_learning_events_total",
			Help: "Total number of learning events processed",
		},
		[]string{"kind", "outcome"}, // outcome: "ok" or "error"
	)

	BulkItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_bulk_items_total",
			Help: "Total number of bulk update items processed",
		},
		[]string{"outcome"},
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Gamification metrics
	// ─────────────────────────────────────────────────────────────────────────

	PointsAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_points_awarded_total",
			Help: "Total points credited to students",
		},
	)

	BadgesAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_badges_awarded_total",
			Help: "Total badges awarded",
		},
	)

	LevelUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_level_ups_total",
			Help: "Total level boundaries crossed",
		},
	)

	StreaksExtended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_streaks_extended_total",
			Help: "Total streak extensions (one per student per active day)",
		},
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Cache metrics
	// ─────────────────────────────────────────────────────────────────────────

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache"}, // "leaderboard", "dashboard", "content"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache"},
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduled job metrics
	// ─────────────────────────────────────────────────────────────────────────

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_job_runs_total",
			Help: "Total scheduled job runs",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "progress_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"job"},
	)

	// ─────────────────────────────────────────────────────────────────────────
	// External service metrics
	// ─────────────────────────────────────────────────────────────────────────

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_notifications_sent_total",
			Help: "Total notifications handed to the gateway",
		},
		[]string{"topic", "outcome"},
	)

	ContentAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_content_api_requests_total",
			Help: "Total requests to the content service",
		},
		[]string{"outcome"},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveJobRun records one scheduled job run.
func ObserveJobRun(job string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	JobRuns.WithLabelValues(job, outcome).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss for the named cache.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}
