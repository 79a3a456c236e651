package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		// NoopMetrics or an unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // route pattern keeps token values out of labels
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath returns the route pattern (e.g., "/request/:token") or "unknown"
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func successLabel(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}

// RecordIssued records a token/QR issuance attempt
func (m *Metrics) RecordIssued(success bool, duration time.Duration) {
	m.IssuedTotal.WithLabelValues(successLabel(success)).Inc()
	if success {
		m.IssueDuration.Observe(duration.Seconds())
	}
}

// RecordSubmission records the outcome of a visitor email submission
func (m *Metrics) RecordSubmission(result string) {
	m.SubmissionTotal.WithLabelValues(result).Inc()
}

// RecordDecision records an owner approve/deny attempt
func (m *Metrics) RecordDecision(action, result string) {
	m.DecisionsTotal.WithLabelValues(action, result).Inc()
}

// RecordRedirect records a redirect to an approved file link
func (m *Metrics) RecordRedirect(result string) {
	m.RedirectsTotal.WithLabelValues(result).Inc()
}

// RecordNotification records an outbound email attempt
func (m *Metrics) RecordNotification(kind string, success bool) {
	m.NotificationsTotal.WithLabelValues(kind, successLabel(success)).Inc()
}

// SetRequestsByStatus sets the per-status request gauge (for periodic updates)
func (m *Metrics) SetRequestsByStatus(counts map[string]int64) {
	for status, count := range counts {
		m.RequestsByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// RecordDatabaseQueryError records a database query error
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
