package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	starkeepRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starkeep_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	starkeepRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starkeep_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	starkeepChallengesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starkeep_challenges_issued_total",
		Help: "Total ownership challenges issued.",
	})

	starkeepSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starkeep_submissions_total",
		Help: "Total star submissions by outcome.",
	}, []string{"outcome"})

	starkeepBlocksAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starkeep_blocks_appended_total",
		Help: "Total blocks appended to the chain.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		starkeepRequestsTotal.WithLabelValues(method, path, status).Inc()
		starkeepRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordChallengeIssued records an issued ownership challenge.
func RecordChallengeIssued() {
	starkeepChallengesIssuedTotal.Inc()
}

// RecordSubmission records a star submission outcome
// (accepted, expired, invalid_signature, replayed, malformed, error).
func RecordSubmission(outcome string) {
	starkeepSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordBlockAppended records a block appended to the chain.
func RecordBlockAppended() {
	starkeepBlocksAppendedTotal.Inc()
}
