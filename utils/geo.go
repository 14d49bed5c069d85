package utils

import (
	"math"
)

const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in meters between two
// WGS84 coordinates.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// WithinRadius reports whether (lat, lon) lies within radiusM meters of the
// target point. The boundary is inclusive: distance == radius passes.
func WithinRadius(targetLat, targetLon, lat, lon float64, radiusM int) bool {
	return HaversineM(targetLat, targetLon, lat, lon) <= float64(radiusM)
}
