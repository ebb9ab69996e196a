// Package metrics exposes Prometheus instrumentation for the HTTP surface and
// the reservation path.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reservation outcome labels.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgquota_http_requests_total",
			Help: "Total number of HTTP requests by route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgquota_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgquota_reservations_total",
			Help: "Quota reservation attempts by quota type and outcome.",
		},
		[]string{"quota_type", "outcome"},
	)
	releasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgquota_releases_total",
			Help: "Quota releases by quota type.",
		},
		[]string{"quota_type"},
	)
)

// RecordReservation counts a reservation attempt outcome.
func RecordReservation(quotaType, outcome string) {
	reservationsTotal.WithLabelValues(quotaType, outcome).Inc()
}

// RecordRelease counts a usage release.
func RecordRelease(quotaType string) {
	releasesTotal.WithLabelValues(quotaType).Inc()
}

// GinMiddleware records per-route request counts and latencies. Unmatched
// routes are collapsed into a single label to keep cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
