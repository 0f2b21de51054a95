package geo

import (
	"fmt"
	"math"
)

// earthRadiusKm matches the radius used by the stored device data, so
// computed distances agree with the radii persisted in meters.
const earthRadiusKm = 6371.0

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", c.Longitude)
	}
	return nil
}

// Distance returns the great-circle distance between two coordinates in
// meters, using the haversine formula.
func Distance(a, b Coordinate) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c * 1000
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
