package fleetdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneShapeValidate(t *testing.T) {
	circle := ZoneShape{Type: ZoneShapeCircle, Centre: Coordinates{Latitude: 51, Longitude: 0}, RadiusM: 100}
	assert.NoError(t, circle.Validate())

	noRadius := ZoneShape{Type: ZoneShapeCircle, Centre: Coordinates{Latitude: 51, Longitude: 0}}
	assert.ErrorIs(t, noRadius.Validate(), ErrInvalidZoneShape)

	badCentre := ZoneShape{Type: ZoneShapeCircle, Centre: Coordinates{Latitude: 95, Longitude: 0}, RadiusM: 100}
	assert.ErrorIs(t, badCentre.Validate(), ErrInvalidZoneShape)

	polygon := ZoneShape{Type: ZoneShapePolygon, Ring: []Coordinates{
		{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 1}, {Latitude: 1, Longitude: 0},
	}}
	assert.NoError(t, polygon.Validate())

	degenerate := ZoneShape{Type: ZoneShapePolygon, Ring: polygon.Ring[:2]}
	assert.ErrorIs(t, degenerate.Validate(), ErrInvalidZoneShape)

	unknown := ZoneShape{Type: "hexagon"}
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidZoneShape)
}

func TestZoneShapeContainsCircleBoundary(t *testing.T) {
	centre := Coordinates{Latitude: 0, Longitude: 0}
	boundaryPoint := Coordinates{Latitude: 0, Longitude: 0.001}

	shape := ZoneShape{
		Type:    ZoneShapeCircle,
		Centre:  centre,
		RadiusM: centre.DistanceTo(boundaryPoint),
	}

	// a point exactly on the boundary counts as inside
	inside, err := shape.Contains(boundaryPoint)
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := shape.Contains(Coordinates{Latitude: 0, Longitude: 0.0011})
	require.NoError(t, err)
	assert.False(t, outside)
}

func TestZoneShapeContainsPolygon(t *testing.T) {
	shape := ZoneShape{Type: ZoneShapePolygon, Ring: []Coordinates{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}}

	inside, err := shape.Contains(Coordinates{Latitude: 0.5, Longitude: 0.5})
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := shape.Contains(Coordinates{Latitude: 2, Longitude: 0.5})
	require.NoError(t, err)
	assert.False(t, outside)
}

func TestZoneShapeBoundingCircle(t *testing.T) {
	shape := ZoneShape{Type: ZoneShapePolygon, Ring: []Coordinates{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}}

	centre, radius := shape.BoundingCircle()

	assert.InDelta(t, 0.5, centre.Latitude, 0.001)
	assert.InDelta(t, 0.5, centre.Longitude, 0.001)

	for _, point := range shape.Ring {
		assert.LessOrEqual(t, centre.DistanceTo(point), radius+1)
	}
}

func TestZoneAppliesTo(t *testing.T) {
	unscoped := &Zone{}
	assert.True(t, unscoped.AppliesTo(&Fix{VehicleID: "anything"}))

	scoped := &Zone{Scope: ZoneScope{VehicleIDs: []string{"truck-1"}}}
	assert.True(t, scoped.AppliesTo(&Fix{VehicleID: "truck-1"}))
	assert.False(t, scoped.AppliesTo(&Fix{VehicleID: "truck-2"}))

	shipmentScoped := &Zone{Scope: ZoneScope{ShipmentIDs: []string{"ship-9"}}}
	assert.True(t, shipmentScoped.AppliesTo(&Fix{VehicleID: "truck-2", ShipmentID: "ship-9"}))
	assert.False(t, shipmentScoped.AppliesTo(&Fix{VehicleID: "truck-2"}))
}

func TestAccidentSeverityRank(t *testing.T) {
	assert.Greater(t, AccidentSeverityHigh.Rank(), AccidentSeverityMedium.Rank())
	assert.Greater(t, AccidentSeverityMedium.Rank(), AccidentSeverityLow.Rank())
	assert.Zero(t, AccidentSeverity("bogus").Rank())
}
