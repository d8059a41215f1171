package fleetdf

import (
	"encoding/json"
	"time"
)

// Fix is a single GPS observation reported by a vehicle
type Fix struct {
	TenantID   string `groups:"basic" json:"tenantId" bson:"tenantid"`
	VehicleID  string `groups:"basic" json:"vehicleId" bson:"vehicleid"`
	ShipmentID string `groups:"basic" json:"shipmentId,omitempty" bson:"shipmentid,omitempty"`
	DriverID   string `groups:"detailed" json:"driverId,omitempty" bson:"driverid,omitempty"`

	Location Coordinates `groups:"basic" json:"location" bson:"location"`

	SpeedKmh   *float64 `groups:"basic" json:"speed,omitempty" bson:"speedkmh,omitempty"`
	HeadingDeg *float64 `groups:"basic" json:"heading,omitempty" bson:"headingdeg,omitempty"`
	AccuracyM  *float64 `groups:"detailed" json:"accuracy,omitempty" bson:"accuracym,omitempty"`
	AltitudeM  *float64 `groups:"detailed" json:"altitude,omitempty" bson:"altitudem,omitempty"`

	RecordedAt time.Time `groups:"basic" json:"ts" bson:"recordedat"`
}

func (f Fix) MarshalBinary() ([]byte, error) {
	return json.Marshal(f)
}
