package coordinator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/stats"
	"github.com/fleetline/fleetline/pkg/tracking/bus"
	"github.com/fleetline/fleetline/pkg/tracking/geofence"
	"github.com/fleetline/fleetline/pkg/tracking/proximity"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

type ingestJob struct {
	fix     *fleetdf.Fix
	result  chan Outcome
	claimed atomic.Bool
}

// claim takes ownership of the job. Exactly one of the worker, the overflow
// drop, or a timed-out producer settles each job.
func (j *ingestJob) claim() bool {
	return j.claimed.CompareAndSwap(false, true)
}

func (j *ingestJob) reply(outcome Outcome) {
	if j.result != nil {
		j.result <- outcome
	}
}

// vehicleWorker serializes all effects for one vehicle. Membership and
// proximity state are owned here, so the evaluation engines need no locks.
type vehicleWorker struct {
	coordinator *Coordinator
	queue       chan *ingestJob

	memberships    geofence.MembershipState
	proximityState proximity.State
}

func newVehicleWorker(coordinator *Coordinator) *vehicleWorker {
	return &vehicleWorker{
		coordinator: coordinator,
		queue:       make(chan *ingestJob, coordinator.Config.QueueDepth),

		memberships:    geofence.MembershipState{},
		proximityState: proximity.State{},
	}
}

// submit enqueues under the keep-newest policy: when the queue is full the
// oldest waiting fix for this vehicle is dropped to make room
func (w *vehicleWorker) submit(job *ingestJob) {
	for {
		select {
		case w.queue <- job:
			return
		default:
		}

		select {
		case dropped := <-w.queue:
			if dropped.claim() {
				stats.FixesDroppedQueueFull.Inc()
				log.Warn().Str("vehicle", dropped.fix.VehicleID).Msg("Dropping queued fix, vehicle queue full")

				dropped.reply(Outcome{Status: StatusRejected, Reason: "queue_overflow"})
			}
		default:
		}
	}
}

func (w *vehicleWorker) run() {
	for job := range w.queue {
		if !job.claim() {
			continue
		}

		job.reply(w.process(job.fix))
	}
}

// process is the atomic block for one fix: store, evaluate, publish, log.
// Subscribers observe position first, then geofence edges, then proximity
// alerts, all carrying the same fix timestamp.
func (w *vehicleWorker) process(fix *fleetdf.Fix) Outcome {
	c := w.coordinator

	storeCtx, cancelStore := context.WithTimeout(context.Background(), c.Config.StoreWriteTimeout)
	stored, err := c.Positions.PutLatest(storeCtx, fix)
	cancelStore()

	if err != nil {
		log.Error().Err(err).Str("vehicle", fix.VehicleID).Msg("Failed to store hot position")
		return Outcome{Status: StatusRejected, Reason: "store_unavailable"}
	}

	if !stored {
		stats.FixesStale.Inc()
		return Outcome{Status: StatusStaleIgnored}
	}

	historyCtx, cancelHistory := context.WithTimeout(context.Background(), c.Config.StoreWriteTimeout)
	if err := c.Positions.AppendHistory(historyCtx, fix); err != nil {
		// Best effort; the hot view and evaluation still proceed
		log.Warn().Err(err).Str("vehicle", fix.VehicleID).Msg("Failed to append track history")
	}
	cancelHistory()

	snapshot := c.Registry.Snapshot()

	var geofenceResult geofence.Result
	var proximityResult proximity.Result

	var evaluations conc.WaitGroup
	evaluations.Go(func() {
		geofenceResult = geofence.Evaluate(
			snapshot.GeofenceCandidates(fix.TenantID, fix.Location),
			w.memberships, fix, c.Config.AccuracyCeilingM)
	})
	evaluations.Go(func() {
		if c.Config.MaxSnapshotAge > 0 && snapshot.Age() > c.Config.MaxSnapshotAge {
			log.Warn().Str("vehicle", fix.VehicleID).Dur("age", snapshot.Age()).
				Msg("Registry snapshot stale, skipping proximity evaluation")
			return
		}

		proximityResult = c.Proximity.Evaluate(
			snapshot.AccidentZoneCandidates(fix.Location), w.proximityState, fix)
	})
	evaluations.Wait()

	serverTime := time.Now()
	fixTopics := w.fixTopics(fix)

	c.publish(context.Background(), fixTopics, fleetdf.LocationUpdateEvent{
		Type:       fleetdf.EventTypeLocationUpdate,
		TenantID:   fix.TenantID,
		VehicleID:  fix.VehicleID,
		ShipmentID: fix.ShipmentID,

		Latitude:   fix.Location.Latitude,
		Longitude:  fix.Location.Longitude,
		SpeedKmh:   fix.SpeedKmh,
		HeadingDeg: fix.HeadingDeg,

		RecordedAt: fix.RecordedAt,
		ServerTime: serverTime,
	})

	for _, edge := range geofenceResult.Edges {
		w.emitGeofenceAlert(fix, edge, fixTopics, serverTime)
	}

	for _, activation := range proximityResult.Activations {
		w.emitProximityAlert(fix, activation, fixTopics, serverTime)
	}

	for _, resolution := range proximityResult.Resolutions {
		logCtx, cancelLog := context.WithTimeout(context.Background(), c.Config.LogWriteTimeout)
		if err := c.Alerts.Resolve(logCtx, fix.VehicleID, resolution.ZoneID, fix.RecordedAt); err != nil {
			log.Warn().Err(err).Str("accidentZone", resolution.ZoneID).Msg("Failed to resolve proximity alert")
		}
		cancelLog()
	}

	stats.FixesAccepted.Inc()

	return Outcome{Status: StatusAccepted}
}

func (w *vehicleWorker) fixTopics(fix *fleetdf.Fix) []string {
	topics := []string{bus.VehicleTopic(fix.VehicleID)}
	if fix.ShipmentID != "" {
		topics = append(topics, bus.ShipmentTopic(fix.ShipmentID))
	}

	return append(topics, bus.TenantTopic(fix.TenantID))
}

func (w *vehicleWorker) emitGeofenceAlert(fix *fleetdf.Fix, edge geofence.Edge, topics []string, serverTime time.Time) {
	c := w.coordinator

	stats.GeofenceEdgesEmitted.Inc()

	c.publish(context.Background(), topics, fleetdf.GeofenceAlertEvent{
		Type:       fleetdf.EventTypeGeofenceAlert,
		TenantID:   fix.TenantID,
		VehicleID:  fix.VehicleID,
		ShipmentID: fix.ShipmentID,

		ZoneID:   edge.ZoneID,
		ZoneName: edge.ZoneName,
		Kind:     string(edge.Kind),

		RecordedAt: fix.RecordedAt,
		ServerTime: serverTime,
	})

	kind := fleetdf.AlertKindGeofenceEntry
	if edge.Kind == geofence.EdgeExit {
		kind = fleetdf.AlertKindGeofenceExit
	}

	w.logAlert(&fleetdf.Alert{
		PrimaryIdentifier: uuid.New().String(),
		Kind:              kind,

		TenantID:   fix.TenantID,
		VehicleID:  fix.VehicleID,
		ShipmentID: fix.ShipmentID,
		DriverID:   fix.DriverID,

		ZoneID:   edge.ZoneID,
		ZoneName: edge.ZoneName,

		VehicleLocation: fix.Location,

		Status:             fleetdf.AlertStatusActive,
		TransitionDateTime: fix.RecordedAt,
		EmittedDateTime:    serverTime,
	})
}

func (w *vehicleWorker) emitProximityAlert(fix *fleetdf.Fix, activation proximity.Activation, topics []string, serverTime time.Time) {
	c := w.coordinator

	stats.ProximityAlertsEmitted.Inc()

	zone := activation.Zone
	alertTopics := append(topics, bus.AccidentZoneTopic(zone.PrimaryIdentifier))

	c.publish(context.Background(), alertTopics, fleetdf.AccidentProximityAlertEvent{
		Type:       fleetdf.EventTypeAccidentProximityAlert,
		TenantID:   fix.TenantID,
		VehicleID:  fix.VehicleID,
		ShipmentID: fix.ShipmentID,

		AccidentZoneID: zone.PrimaryIdentifier,
		Severity:       zone.Severity,
		AccidentCount:  zone.AccidentCount,
		DistanceM:      activation.DistanceM,

		ZoneCentre:      zone.Centre,
		VehicleLocation: fix.Location,

		RecordedAt: fix.RecordedAt,
		ServerTime: serverTime,
	})

	zoneCentre := zone.Centre
	w.logAlert(&fleetdf.Alert{
		PrimaryIdentifier: uuid.New().String(),
		Kind:              fleetdf.AlertKindAccidentProximity,

		TenantID:   fix.TenantID,
		VehicleID:  fix.VehicleID,
		ShipmentID: fix.ShipmentID,
		DriverID:   fix.DriverID,

		AccidentZoneID: zone.PrimaryIdentifier,
		Severity:       zone.Severity,
		AccidentCount:  zone.AccidentCount,
		DistanceM:      activation.DistanceM,
		ZoneCentre:     &zoneCentre,

		VehicleLocation: fix.Location,

		Status:             fleetdf.AlertStatusActive,
		TransitionDateTime: fix.RecordedAt,
		EmittedDateTime:    serverTime,
	})
}

func (w *vehicleWorker) logAlert(alert *fleetdf.Alert) {
	c := w.coordinator

	logCtx, cancel := context.WithTimeout(context.Background(), c.Config.LogWriteTimeout)
	defer cancel()

	if err := c.Alerts.Write(logCtx, alert); err != nil {
		stats.AlertLogWriteFailures.Inc()
		log.Warn().Err(err).Str("alert", alert.PrimaryIdentifier).Msg("Alert log write failed, queueing retry")

		c.Alerts.EnqueueRetry(alert)
	}

	if c.OnAlertLogged != nil {
		c.OnAlertLogged(alert)
	}
}
