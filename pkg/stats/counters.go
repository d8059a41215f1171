package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_fixes_accepted_total",
		Help: "Fixes accepted by the ingestion coordinator",
	})
	FixesStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_fixes_stale_total",
		Help: "Fixes discarded because an equal or newer fix was already stored",
	})
	FixesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_fixes_rejected_total",
		Help: "Fixes rejected at validation",
	})
	FixesDroppedQueueFull = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_fixes_dropped_queue_full_total",
		Help: "Queued fixes dropped under the keep-newest policy",
	})

	GeofenceEdgesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_geofence_edges_total",
		Help: "Geofence entry/exit alerts emitted",
	})
	ProximityAlertsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_proximity_alerts_total",
		Help: "Accident proximity alerts emitted",
	})
	TelemetryAlarmsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_telemetry_alarms_total",
		Help: "Telemetry alarms emitted",
	})

	AlertLogWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_alert_log_write_failures_total",
		Help: "Alert log writes that were queued for retry",
	})
	SubscribersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetline_subscribers_evicted_total",
		Help: "Bus subscribers closed due to outbound buffer overflow",
	})
)
