package alertlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const RetryQueueName = "alertlog-retry"

// Log is the durable record of emitted geofence and accident-proximity
// alerts. Retention is a 90 day TTL index on emitteddatetime.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

// Write upserts on the idempotency key {vehicle, zone, transition time} so a
// retried write after a timeout can never duplicate an alert
func (l *Log) Write(ctx context.Context, alert *fleetdf.Alert) error {
	alertsCollection := database.GetCollection("alerts")

	searchQuery := bson.M{
		"vehicleid":          alert.VehicleID,
		"zoneid":             alert.ZoneID,
		"accidentzoneid":     alert.AccidentZoneID,
		"transitiondatetime": alert.TransitionDateTime,
	}

	opts := options.Update().SetUpsert(true)
	_, err := alertsCollection.UpdateOne(ctx, searchQuery, bson.M{"$setOnInsert": alert}, opts)

	return err
}

// Resolve marks the active accident-proximity alert for the pair as resolved
func (l *Log) Resolve(ctx context.Context, vehicleID string, accidentZoneID string, at time.Time) error {
	alertsCollection := database.GetCollection("alerts")

	_, err := alertsCollection.UpdateOne(ctx, bson.M{
		"vehicleid":      vehicleID,
		"accidentzoneid": accidentZoneID,
		"status":         fleetdf.AlertStatusActive,
	}, bson.M{"$set": bson.M{
		"status":     fleetdf.AlertStatusResolved,
		"resolvedat": at,
	}})

	return err
}

func (l *Log) Acknowledge(ctx context.Context, alertID string, userID string) error {
	alertsCollection := database.GetCollection("alerts")

	now := time.Now()
	result, err := alertsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": alertID,
		"status":            fleetdf.AlertStatusActive,
	}, bson.M{"$set": bson.M{
		"status":         fleetdf.AlertStatusAcknowledged,
		"acknowledgedat": now,
		"acknowledgedby": userID,
	}})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return ErrAlertNotFound
	}

	return nil
}

type Query struct {
	TenantID  string
	VehicleID string
	DriverID  string
	Severity  fleetdf.AccidentSeverity
	Status    fleetdf.AlertStatus

	From time.Time
	To   time.Time

	Page     int64
	PageSize int64
}

// Find returns alerts matching the query ordered by emission time descending
func (l *Log) Find(ctx context.Context, query Query) ([]fleetdf.Alert, error) {
	alertsCollection := database.GetCollection("alerts")

	filter := bson.M{"tenantid": query.TenantID}
	if query.VehicleID != "" {
		filter["vehicleid"] = query.VehicleID
	}
	if query.DriverID != "" {
		filter["driverid"] = query.DriverID
	}
	if query.Severity != "" {
		filter["severity"] = query.Severity
	}
	if query.Status != "" {
		filter["status"] = query.Status
	}

	emittedFilter := bson.M{}
	if !query.From.IsZero() {
		emittedFilter["$gte"] = query.From
	}
	if !query.To.IsZero() {
		emittedFilter["$lte"] = query.To
	}
	if len(emittedFilter) > 0 {
		filter["emitteddatetime"] = emittedFilter
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "emitteddatetime", Value: -1}}).
		SetSkip(query.Page * pageSize).
		SetLimit(pageSize)

	cursor, err := alertsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	alerts := []fleetdf.Alert{}
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}

	return alerts, nil
}

// EnqueueRetry pushes a failed log write onto the retry queue. The upsert in
// Write keeps the retry idempotent.
func (l *Log) EnqueueRetry(alert *fleetdf.Alert) {
	retryQueue, err := redis_client.QueueConnection.OpenQueue(RetryQueueName)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open alert log retry queue")
		return
	}

	alertJSON, _ := json.Marshal(alert)
	if err := retryQueue.PublishBytes(alertJSON); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue alert log retry")
	}
}
