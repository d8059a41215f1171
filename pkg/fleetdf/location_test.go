package fleetdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceTo(t *testing.T) {
	origin := Coordinates{Latitude: 0, Longitude: 0}

	// one thousandth of a degree of longitude at the equator
	nearby := Coordinates{Latitude: 0, Longitude: 0.001}

	assert.InDelta(t, 111.2, origin.DistanceTo(nearby), 0.5)
	assert.Zero(t, origin.DistanceTo(origin))
	assert.InDelta(t, origin.DistanceTo(nearby), nearby.DistanceTo(origin), 0.001)
}

func TestDistanceToKnownCities(t *testing.T) {
	london := Coordinates{Latitude: 51.5074, Longitude: -0.1278}
	birmingham := Coordinates{Latitude: 52.4862, Longitude: -1.8904}

	// roughly 163km apart
	assert.InDelta(t, 163000, london.DistanceTo(birmingham), 2000)
}

func TestCoordinatesValid(t *testing.T) {
	assert.True(t, Coordinates{Latitude: 0, Longitude: 0}.Valid())
	assert.True(t, Coordinates{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Coordinates{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, Coordinates{Latitude: 0, Longitude: -181}.Valid())
}

func TestInsidePolygon(t *testing.T) {
	square := []Coordinates{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}

	assert.True(t, Coordinates{Latitude: 0.5, Longitude: 0.5}.InsidePolygon(square))
	assert.False(t, Coordinates{Latitude: 1.5, Longitude: 0.5}.InsidePolygon(square))
	assert.False(t, Coordinates{Latitude: 0.5, Longitude: -0.5}.InsidePolygon(square))

	assert.False(t, Coordinates{Latitude: 0.5, Longitude: 0.5}.InsidePolygon(square[:2]))
}
