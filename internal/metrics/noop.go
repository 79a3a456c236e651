package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordIssued(success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordSubmission(result string)                    {}
func (n *NoopMetrics) RecordDecision(action, result string)              {}
func (n *NoopMetrics) RecordRedirect(result string)                      {}
func (n *NoopMetrics) RecordNotification(kind string, success bool)      {}
func (n *NoopMetrics) SetRequestsByStatus(counts map[string]int64)       {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)         {}
