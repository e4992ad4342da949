package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_tracker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "license_tracker_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// ScanRuns counts expiration scans by outcome: ok, failed, busy.
	ScanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_tracker_expiration_scans_total",
			Help: "Number of expiration scans by outcome",
		},
		[]string{"outcome"},
	)

	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "license_tracker_expiration_scan_duration_seconds",
			Help:    "Duration of expiration scans",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// Notifications counts per-license results: generated, sent, generation_failed, delivery_failed.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_tracker_notifications_total",
			Help: "Per-license notification results",
		},
		[]string{"result"},
	)

	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_tracker_emails_total",
			Help: "SMTP delivery attempts by status",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCount, RequestDuration, ScanRuns, ScanDuration, Notifications, EmailsSent)
}
