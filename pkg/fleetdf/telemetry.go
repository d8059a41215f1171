package fleetdf

import "time"

// Telemetry is a vehicle-side diagnostics payload. All readings are optional -
// devices report whatever sensors they have.
type Telemetry struct {
	TenantID  string `json:"tenantId" bson:"tenantid"`
	VehicleID string `json:"vehicleId" bson:"vehicleid"`

	EngineRpm          *float64 `json:"engineRpm,omitempty" bson:"enginerpm,omitempty"`
	EngineTemperatureC *float64 `json:"engineTemperatureC,omitempty" bson:"enginetemperaturec,omitempty"`
	FuelPct            *float64 `json:"fuelPct,omitempty" bson:"fuelpct,omitempty"`
	BatteryV           *float64 `json:"batteryV,omitempty" bson:"batteryv,omitempty"`
	TirePressure       *float64 `json:"tirePressure,omitempty" bson:"tirepressure,omitempty"`
	OilPressure        *float64 `json:"oilPressure,omitempty" bson:"oilpressure,omitempty"`
	Odometer           *float64 `json:"odometer,omitempty" bson:"odometer,omitempty"`

	DiagnosticCodes []string `json:"diagnosticCodes,omitempty" bson:"diagnosticcodes,omitempty"`

	RecordedAt time.Time `json:"ts" bson:"recordedat"`
}

type TelemetryAlarm struct {
	Kind   string `json:"kind"`
	Level  string `json:"level"`
	Detail string `json:"detail"`
}

const (
	AlarmLevelInfo    = "info"
	AlarmLevelWarning = "warning"
	AlarmLevelDanger  = "danger"
)
