package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Issuance
	RecordIssued(success bool, duration time.Duration)

	// Request lifecycle
	RecordSubmission(result string)
	RecordDecision(action, result string)
	RecordRedirect(result string)

	// Outbound mail, kind is "owner" or "requester"
	RecordNotification(kind string, success bool)

	// Gauge Setters (for periodic updates)
	SetRequestsByStatus(counts map[string]int64)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}
