package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innkeep_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts authorization decisions (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innkeep_permission_checks_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "resource", "result"},
	)

	BookingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innkeep_booking_events_total",
			Help: "Booking lifecycle events published",
		},
		[]string{"type", "sink", "result"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "innkeep_realtime_connections",
			Help: "Open websocket connections on the booking board",
		},
	)

	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innkeep_maintenance_runs_total",
			Help: "Maintenance job executions",
		},
		[]string{"job", "result"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innkeep_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
