// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"rideway/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance in kilometres
// between two points, rounded to one decimal place. The asin argument is
// clamped to [0,1] so identical and antipodal points never produce NaN
// from floating-point overshoot.
func DistanceKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h < 0 {
		h = 0
	}
	if h > 1 {
		h = 1
	}
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))

	return math.Round(d*10) / 10
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
