// Package pricing computes fare quotes for bookings.
package pricing

import "math"

// Vehicle types riders can request.
const (
	VehicleStandard = "standard"
	VehiclePremium  = "premium"
	VehicleSUV      = "suv"
	VehicleLuxury   = "luxury"
)

// Rate constants. These are business policy, set by product.
const (
	BaseFare   = 25.0
	PricePerKm = 2.5
	TaxRate    = 0.10

	// avgSpeedKmh is the assumed city travel speed behind duration
	// estimates on quotes.
	avgSpeedKmh = 30.0
)

// vehicleMultipliers scales the taxed subtotal per vehicle class.
var vehicleMultipliers = map[string]float64{
	VehicleStandard: 1.0,
	VehiclePremium:  1.5,
	VehicleSUV:      1.8,
	VehicleLuxury:   2.5,
}

// Fare is the monetary breakdown embedded in a booking. Amounts are
// dollars rounded to cents.
type Fare struct {
	BaseFare          float64 `json:"base_fare"`
	DistanceKm        float64 `json:"distance_km"`
	DurationMin       float64 `json:"duration_min,omitempty"`
	VehicleMultiplier float64 `json:"vehicle_multiplier"`
	SurgeMultiplier   float64 `json:"surge_multiplier"`
	Subtotal          float64 `json:"subtotal"`
	Taxes             float64 `json:"taxes"`
	Total             float64 `json:"total"`
	Currency          string  `json:"currency"`
}

// ValidVehicleType reports whether v is a known vehicle class.
func ValidVehicleType(v string) bool {
	_, ok := vehicleMultipliers[v]
	return ok
}

// VehicleTypes returns the accepted vehicle classes.
func VehicleTypes() []string {
	return []string{VehicleStandard, VehiclePremium, VehicleSUV, VehicleLuxury}
}

// EstimateDurationMin estimates travel time in whole minutes at the
// assumed city speed. Actual duration is recorded when the ride ends.
func EstimateDurationMin(distanceKm float64) float64 {
	return math.Round(distanceKm / avgSpeedKmh * 60)
}
