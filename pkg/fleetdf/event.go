package fleetdf

import "time"

const (
	EventTypeLocationUpdate         = "location_update"
	EventTypeGeofenceAlert          = "geofence_alert"
	EventTypeAccidentProximityAlert = "accident_proximity_alert"
	EventTypeVehicleTelemetryAlarm  = "vehicle_telemetry_alarm"
)

type LocationUpdateEvent struct {
	Type       string `json:"type"`
	TenantID   string `json:"tenantId"`
	VehicleID  string `json:"vehicleId"`
	ShipmentID string `json:"shipmentId,omitempty"`

	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	SpeedKmh   *float64 `json:"speed,omitempty"`
	HeadingDeg *float64 `json:"heading,omitempty"`

	RecordedAt time.Time `json:"ts"`
	ServerTime time.Time `json:"serverTs"`
}

type GeofenceAlertEvent struct {
	Type       string `json:"type"`
	TenantID   string `json:"tenantId"`
	VehicleID  string `json:"vehicleId"`
	ShipmentID string `json:"shipmentId,omitempty"`

	ZoneID   string `json:"zoneId"`
	ZoneName string `json:"zoneName"`
	Kind     string `json:"kind"` // entry or exit

	RecordedAt time.Time `json:"ts"`
	ServerTime time.Time `json:"serverTs"`
}

type AccidentProximityAlertEvent struct {
	Type       string `json:"type"`
	TenantID   string `json:"tenantId"`
	VehicleID  string `json:"vehicleId"`
	ShipmentID string `json:"shipmentId,omitempty"`

	AccidentZoneID string           `json:"accidentZoneId"`
	Severity       AccidentSeverity `json:"severity"`
	AccidentCount  int              `json:"accidentCount"`
	DistanceM      float64          `json:"distanceM"`

	ZoneCentre      Coordinates `json:"zoneCenter"`
	VehicleLocation Coordinates `json:"vehicleLocation"`

	RecordedAt time.Time `json:"ts"`
	ServerTime time.Time `json:"serverTs"`
}

type VehicleTelemetryAlarmEvent struct {
	Type      string `json:"type"`
	TenantID  string `json:"tenantId"`
	VehicleID string `json:"vehicleId"`

	Kind   string `json:"kind"`
	Level  string `json:"level"`
	Detail string `json:"detail"`

	RecordedAt time.Time `json:"ts"`
}
