package metrics

import (
	"sync"

	"github.com/go-authgate/qrgate/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics interface used across the application
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Issuance Metrics
	IssuedTotal     *prometheus.CounterVec
	IssueDuration   prometheus.Histogram
	SubmissionTotal *prometheus.CounterVec
	DecisionsTotal  *prometheus.CounterVec
	RedirectsTotal  *prometheus.CounterVec

	// Notification Metrics
	NotificationsTotal *prometheus.CounterVec

	// Lifecycle Gauges
	RequestsByStatus *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		IssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrgate_issued_total",
				Help: "Total number of tokens and QR codes issued",
			},
			[]string{"result"}, // success, error
		),
		IssueDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "qrgate_issue_duration_seconds",
				Help:    "Time taken to mint a token, encode its QR code and store it",
				Buckets: prometheus.DefBuckets,
			},
		),
		SubmissionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrgate_submissions_total",
				Help: "Total number of visitor email submissions",
			},
			[]string{"result"}, // pending, redirect, invalid, mismatch, denied, expired, conflict, error
		),
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrgate_decisions_total",
				Help: "Total number of owner approve/deny decisions",
			},
			[]string{"action", "result"}, // result: success, invalid_link, conflict, error
		),
		RedirectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrgate_redirects_total",
				Help: "Total number of redirects to approved file links",
			},
			[]string{"result"}, // success, expired
		),
		NotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrgate_notifications_total",
				Help: "Total number of outbound email notifications",
			},
			[]string{"kind", "result"}, // kind: owner, requester
		),
		RequestsByStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "qrgate_requests",
				Help: "Current number of access requests per status",
			},
			[]string{"status"},
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"}, // create_request, transition, count_by_status
		),
	}

	return m
}
