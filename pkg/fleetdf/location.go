package fleetdf

import "math"

const earthRadiusMetres = 6371000

type Coordinates struct {
	Latitude  float64 `groups:"basic" json:"lat" bson:"latitude"`
	Longitude float64 `groups:"basic" json:"lon" bson:"longitude"`
}

// DistanceTo returns the great-circle distance in metres between two coordinates
func (c Coordinates) DistanceTo(other Coordinates) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - c.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadiusMetres * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// InsidePolygon runs a ray-casting point-in-polygon test over the ring.
// The planar approximation is fine at geofence scales.
func (c Coordinates) InsidePolygon(ring []Coordinates) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		if (ring[i].Latitude > c.Latitude) != (ring[j].Latitude > c.Latitude) {
			intersectLon := ring[i].Longitude + (c.Latitude-ring[i].Latitude)/
				(ring[j].Latitude-ring[i].Latitude)*(ring[j].Longitude-ring[i].Longitude)

			if c.Longitude < intersectLon {
				inside = !inside
			}
		}
		j = i
	}

	return inside
}
