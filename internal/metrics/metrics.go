package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scanner metrics
	ScanRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskremind_scan_runs_total",
			Help: "Total number of deadline scans",
		},
	)

	TasksScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskremind_tasks_scanned_total",
			Help: "Total number of tasks inspected by the scanner",
		},
	)

	RemindersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskremind_reminders_fired_total",
			Help: "Reminder stages fired, by stage",
		},
		[]string{"stage"},
	)

	RemindersSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskremind_reminders_skipped_total",
			Help: "Reminder stages skipped by the dedup guard, by tier",
		},
		[]string{"tier"},
	)

	MarkerStoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskremind_marker_store_errors_total",
			Help: "Fast dedup store failures (guard falls back to the durable marker)",
		},
	)

	// Delivery metrics
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskremind_notifications_created_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)

	PublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskremind_publish_failures_total",
			Help: "Realtime pushes that failed",
		},
	)

	// Digest metrics
	DigestsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskremind_digests_sent_total",
			Help: "Digest emails sent",
		},
	)

	DigestsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskremind_digests_failed_total",
			Help: "Digest emails that failed to send",
		},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskremind_websocket_clients",
			Help: "Connected websocket clients",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ScanRuns,
		TasksScanned,
		RemindersFired,
		RemindersSkipped,
		MarkerStoreErrors,
		NotificationsCreated,
		PublishFailures,
		DigestsSent,
		DigestsFailed,
		WebsocketClients,
	)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
