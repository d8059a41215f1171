package fleetdf

import (
	"errors"
	"time"

	"golang.org/x/exp/slices"
)

const (
	ZoneShapeCircle  = "circle"
	ZoneShapePolygon = "polygon"
)

// Zone is an operator-defined geofence scoped to a tenant
type Zone struct {
	PrimaryIdentifier string `groups:"basic" json:"zoneId" bson:"primaryidentifier"`
	TenantID          string `groups:"basic" json:"tenantId" bson:"tenantid"`
	Name              string `groups:"basic" json:"name" bson:"name"`

	Shape ZoneShape `groups:"basic" json:"shape" bson:"shape"`

	// Empty scope sets mean the zone applies tenant-wide
	Scope    ZoneScope    `groups:"detailed" json:"scope" bson:"scope"`
	Triggers ZoneTriggers `groups:"detailed" json:"triggers" bson:"triggers"`

	// Optional anti-jitter radii, circles only. Entry requires the fix within
	// InnerRadiusM, exit requires it beyond OuterRadiusM.
	Hysteresis *ZoneHysteresis `groups:"detailed" json:"hysteresis,omitempty" bson:"hysteresis,omitempty"`

	Active bool `groups:"basic" json:"active" bson:"active"`

	CreationDateTime     time.Time `groups:"detailed" json:"createdAt" bson:"creationdatetime"`
	ModificationDateTime time.Time `groups:"detailed" json:"modifiedAt" bson:"modificationdatetime"`
}

type ZoneShape struct {
	Type string `groups:"basic" json:"type" bson:"type"`

	Centre  Coordinates `groups:"basic" json:"center,omitempty" bson:"centre,omitempty"`
	RadiusM float64     `groups:"basic" json:"radiusM,omitempty" bson:"radiusm,omitempty"`

	Ring []Coordinates `groups:"basic" json:"ring,omitempty" bson:"ring,omitempty"`
}

type ZoneScope struct {
	VehicleIDs  []string `groups:"detailed" json:"vehicleIds,omitempty" bson:"vehicleids,omitempty"`
	ShipmentIDs []string `groups:"detailed" json:"shipmentIds,omitempty" bson:"shipmentids,omitempty"`
}

type ZoneTriggers struct {
	OnEntry bool `groups:"detailed" json:"onEntry" bson:"onentry"`
	OnExit  bool `groups:"detailed" json:"onExit" bson:"onexit"`
}

type ZoneHysteresis struct {
	InnerRadiusM float64 `groups:"detailed" json:"innerRadiusM" bson:"innerradiusm"`
	OuterRadiusM float64 `groups:"detailed" json:"outerRadiusM" bson:"outerradiusm"`
}

var ErrInvalidZoneShape = errors.New("zone shape is invalid")

func (s *ZoneShape) Validate() error {
	switch s.Type {
	case ZoneShapeCircle:
		if s.RadiusM <= 0 || !s.Centre.Valid() {
			return ErrInvalidZoneShape
		}
	case ZoneShapePolygon:
		if len(s.Ring) < 3 {
			return ErrInvalidZoneShape
		}
		for _, point := range s.Ring {
			if !point.Valid() {
				return ErrInvalidZoneShape
			}
		}
	default:
		return ErrInvalidZoneShape
	}

	return nil
}

// Contains reports whether the coordinate lies within the zone shape.
// A point exactly on a circle boundary counts as inside.
func (s *ZoneShape) Contains(c Coordinates) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}

	if s.Type == ZoneShapeCircle {
		return s.Centre.DistanceTo(c) <= s.RadiusM, nil
	}

	return c.InsidePolygon(s.Ring), nil
}

// BoundingCircle returns a centre and radius in metres guaranteed to cover the shape
func (s *ZoneShape) BoundingCircle() (Coordinates, float64) {
	if s.Type == ZoneShapeCircle {
		return s.Centre, s.RadiusM
	}

	var centroid Coordinates
	for _, point := range s.Ring {
		centroid.Latitude += point.Latitude
		centroid.Longitude += point.Longitude
	}
	centroid.Latitude /= float64(len(s.Ring))
	centroid.Longitude /= float64(len(s.Ring))

	radius := 0.0
	for _, point := range s.Ring {
		if distance := centroid.DistanceTo(point); distance > radius {
			radius = distance
		}
	}

	return centroid, radius
}

// AppliesTo reports whether the zone's scope covers the given fix
func (z *Zone) AppliesTo(fix *Fix) bool {
	if len(z.Scope.VehicleIDs) == 0 && len(z.Scope.ShipmentIDs) == 0 {
		return true
	}

	if slices.Contains(z.Scope.VehicleIDs, fix.VehicleID) {
		return true
	}

	return fix.ShipmentID != "" && slices.Contains(z.Scope.ShipmentIDs, fix.ShipmentID)
}
