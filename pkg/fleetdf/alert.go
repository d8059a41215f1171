package fleetdf

import "time"

const (
	AlertKindGeofenceEntry     = "geofence_entry"
	AlertKindGeofenceExit      = "geofence_exit"
	AlertKindAccidentProximity = "accident_proximity"
)

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// Alert is the durable record of an emitted geofence or accident-proximity
// alert. Telemetry alarms are never persisted here.
type Alert struct {
	PrimaryIdentifier string `groups:"basic" json:"alertId" bson:"primaryidentifier"`

	Kind string `groups:"basic" json:"kind" bson:"kind"`

	TenantID   string `groups:"basic" json:"tenantId" bson:"tenantid"`
	VehicleID  string `groups:"basic" json:"vehicleId" bson:"vehicleid"`
	ShipmentID string `groups:"basic" json:"shipmentId,omitempty" bson:"shipmentid,omitempty"`
	DriverID   string `groups:"basic" json:"driverId,omitempty" bson:"driverid,omitempty"`

	// Geofence alerts
	ZoneID   string `groups:"basic" json:"zoneId,omitempty" bson:"zoneid,omitempty"`
	ZoneName string `groups:"basic" json:"zoneName,omitempty" bson:"zonename,omitempty"`

	// Accident proximity alerts
	AccidentZoneID string           `groups:"basic" json:"accidentZoneId,omitempty" bson:"accidentzoneid,omitempty"`
	Severity       AccidentSeverity `groups:"basic" json:"severity,omitempty" bson:"severity,omitempty"`
	AccidentCount  int              `groups:"detailed" json:"accidentCount,omitempty" bson:"accidentcount,omitempty"`
	DistanceM      float64          `groups:"detailed" json:"distanceM,omitempty" bson:"distancem,omitempty"`
	ZoneCentre     *Coordinates     `groups:"detailed" json:"zoneCenter,omitempty" bson:"zonecentre,omitempty"`

	VehicleLocation Coordinates `groups:"detailed" json:"vehicleLocation" bson:"vehiclelocation"`

	// Free-form per-kind annotations. Unknown keys pass through unchanged.
	Metadata map[string]string `groups:"detailed" json:"metadata,omitempty" bson:"metadata,omitempty"`

	Status         AlertStatus `groups:"basic" json:"status" bson:"status"`
	AcknowledgedAt *time.Time  `groups:"basic" json:"acknowledgedAt,omitempty" bson:"acknowledgedat,omitempty"`
	AcknowledgedBy string      `groups:"basic" json:"acknowledgedBy,omitempty" bson:"acknowledgedby,omitempty"`
	ResolvedAt     *time.Time  `groups:"basic" json:"resolvedAt,omitempty" bson:"resolvedat,omitempty"`

	// TransitionDateTime is the fix timestamp that caused the alert and forms
	// part of the idempotency key for log writes
	TransitionDateTime time.Time `groups:"basic" json:"ts" bson:"transitiondatetime"`
	EmittedDateTime    time.Time `groups:"basic" json:"serverTs" bson:"emitteddatetime"`
}
