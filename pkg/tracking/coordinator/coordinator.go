package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/stats"
	"github.com/fleetline/fleetline/pkg/tracking/bus"
	"github.com/fleetline/fleetline/pkg/tracking/proximity"
	"github.com/fleetline/fleetline/pkg/tracking/telemetry"
	"github.com/fleetline/fleetline/pkg/tracking/zoneregistry"
)

const (
	StatusAccepted     = "accepted"
	StatusStaleIgnored = "stale_ignored"
	StatusRejected     = "rejected"
)

type Outcome struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// PositionStore is the slice of the position store the coordinator writes to
type PositionStore interface {
	PutLatest(ctx context.Context, fix *fleetdf.Fix) (bool, error)
	AppendHistory(ctx context.Context, fix *fleetdf.Fix) error
}

// AlertLog records emitted alerts durably
type AlertLog interface {
	Write(ctx context.Context, alert *fleetdf.Alert) error
	Resolve(ctx context.Context, vehicleID string, accidentZoneID string, at time.Time) error
	EnqueueRetry(alert *fleetdf.Alert)
}

// Publisher fans events out to subscribers
type Publisher interface {
	Publish(ctx context.Context, topic string, event any)
}

// Coordinator owns the single end-to-end path for an incoming fix. Effects
// for one vehicle are strictly serialized through its worker; different
// vehicles proceed in parallel.
type Coordinator struct {
	Config Config

	Positions PositionStore
	Registry  *zoneregistry.Registry
	Proximity *proximity.Engine
	Alerts    AlertLog
	Bus       Publisher
	Telemetry *telemetry.Evaluator

	// VehicleExists validates the (tenant, vehicle) pair. The default checks
	// the vehicles collection through a short-lived cache.
	VehicleExists func(ctx context.Context, tenantID string, vehicleID string) (bool, error)

	// Optional hook run for every durably logged alert, used to feed the push
	// notification queue
	OnAlertLogged func(alert *fleetdf.Alert)

	workersMutex sync.Mutex
	workers      map[string]*vehicleWorker
}

func NewCoordinator(positions PositionStore, registry *zoneregistry.Registry, alerts AlertLog, publisher Publisher, evaluator *telemetry.Evaluator) *Coordinator {
	coordinator := &Coordinator{
		Config: GetConfig(),

		Positions: positions,
		Registry:  registry,
		Proximity: proximity.NewEngine(),
		Alerts:    alerts,
		Bus:       publisher,
		Telemetry: evaluator,

		workers: map[string]*vehicleWorker{},
	}
	coordinator.VehicleExists = coordinator.vehicleExistsCached

	return coordinator
}

// Ingest validates the fix, runs it through the vehicle's serialization
// context and returns the outcome to the producer
func (c *Coordinator) Ingest(ctx context.Context, fix *fleetdf.Fix) Outcome {
	if outcome := c.validate(ctx, fix); outcome != nil {
		stats.FixesRejected.Inc()
		c.auditRejection(fix, outcome.Reason)

		return *outcome
	}

	job := &ingestJob{fix: fix, result: make(chan Outcome, 1)}
	c.worker(fix).submit(job)

	select {
	case outcome := <-job.result:
		return outcome
	case <-ctx.Done():
		// Claiming a still-queued job withdraws it before any effect runs.
		// Once the worker holds the claim the fix will be applied, so its
		// outcome is the only honest answer.
		if job.claim() {
			return Outcome{Status: StatusRejected, Reason: "timeout"}
		}

		return <-job.result
	}
}

// IngestAsync is the queue-consumer path; the outcome is counted but not
// reported anywhere
func (c *Coordinator) IngestAsync(fix *fleetdf.Fix) {
	if outcome := c.validate(context.Background(), fix); outcome != nil {
		stats.FixesRejected.Inc()
		c.auditRejection(fix, outcome.Reason)

		return
	}

	c.worker(fix).submit(&ingestJob{fix: fix})
}

// IngestTelemetry evaluates the payload and publishes any resulting alarms to
// the tenant room. Telemetry alarms are never written to the alert log.
func (c *Coordinator) IngestTelemetry(ctx context.Context, payload *fleetdf.Telemetry) []fleetdf.TelemetryAlarm {
	alarms := c.Telemetry.Evaluate(payload)

	for _, alarm := range alarms {
		stats.TelemetryAlarmsEmitted.Inc()

		c.publish(ctx, []string{bus.TenantTopic(payload.TenantID)}, fleetdf.VehicleTelemetryAlarmEvent{
			Type:      fleetdf.EventTypeVehicleTelemetryAlarm,
			TenantID:  payload.TenantID,
			VehicleID: payload.VehicleID,

			Kind:   alarm.Kind,
			Level:  alarm.Level,
			Detail: alarm.Detail,

			RecordedAt: payload.RecordedAt,
		})
	}

	return alarms
}

func (c *Coordinator) validate(ctx context.Context, fix *fleetdf.Fix) *Outcome {
	if fix.TenantID == "" || fix.VehicleID == "" {
		return &Outcome{Status: StatusRejected, Reason: "missing_fields"}
	}

	if !fix.Location.Valid() {
		return &Outcome{Status: StatusRejected, Reason: "invalid_coordinates"}
	}

	if fix.RecordedAt.IsZero() {
		return &Outcome{Status: StatusRejected, Reason: "invalid_timestamp"}
	}

	now := time.Now()
	if fix.RecordedAt.After(now.Add(c.Config.MaxFutureSkew)) {
		return &Outcome{Status: StatusRejected, Reason: "timestamp_in_future"}
	}
	if fix.RecordedAt.Before(now.Add(-c.Config.MaxFixAge)) {
		return &Outcome{Status: StatusRejected, Reason: "timestamp_too_old"}
	}

	exists, err := c.VehicleExists(ctx, fix.TenantID, fix.VehicleID)
	if err != nil {
		return &Outcome{Status: StatusRejected, Reason: "vehicle_lookup_failed"}
	}
	if !exists {
		return &Outcome{Status: StatusRejected, Reason: "unknown_vehicle"}
	}

	return nil
}

func (c *Coordinator) worker(fix *fleetdf.Fix) *vehicleWorker {
	key := fix.TenantID + "/" + fix.VehicleID

	c.workersMutex.Lock()
	defer c.workersMutex.Unlock()

	worker := c.workers[key]
	if worker == nil {
		worker = newVehicleWorker(c)
		c.workers[key] = worker

		go worker.run()
	}

	return worker
}

func (c *Coordinator) publish(ctx context.Context, topics []string, event any) {
	publishCtx, cancel := context.WithTimeout(ctx, c.Config.PublishTimeout)
	defer cancel()

	for _, topic := range topics {
		c.Bus.Publish(publishCtx, topic, event)
	}
}
