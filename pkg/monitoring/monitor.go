package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts HTTP requests by method, path and status
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration observes HTTP request latency
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_engine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AttemptTransitions counts attempt state transitions by target status
	AttemptTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_engine_attempt_transitions_total",
			Help: "Total number of attempt status transitions",
		},
		[]string{"status"},
	)

	// SweepExpired counts attempts expired by the background sweeper
	SweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_engine_sweep_expired_total",
			Help: "Total number of attempts expired by the sweeper",
		},
	)
)

// Init registers the collectors. Call once from main.
func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AttemptTransitions)
	prometheus.MustRegister(SweepExpired)
}

// MetricsMiddleware records request count and latency per route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// PrometheusHandler exposes the /metrics endpoint.
func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
