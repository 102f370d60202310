package pricing

import (
	"errors"
	"math"
)

var ErrUnknownVehicleType = errors.New("unknown vehicle type")

// Quote computes the fare for a trip. Pure and deterministic: the same
// inputs always produce the same breakdown.
//
//	subtotal = base + distance * pricePerKm
//	taxes    = subtotal * taxRate
//	total    = (subtotal + taxes) * vehicleMultiplier * surgeMultiplier
func Quote(distanceKm float64, vehicleType string, surge float64) (Fare, error) {
	mult, ok := vehicleMultipliers[vehicleType]
	if !ok {
		return Fare{}, ErrUnknownVehicleType
	}
	if surge <= 0 {
		surge = 1.0
	}

	f := Fare{
		BaseFare:          BaseFare,
		DistanceKm:        distanceKm,
		DurationMin:       EstimateDurationMin(distanceKm),
		VehicleMultiplier: mult,
		SurgeMultiplier:   surge,
		Currency:          "USD",
	}
	recalculate(&f)
	return f, nil
}

// Recalculate recomputes the derived fields of a fare in place. Called
// whenever any pricing input changed so the breakdown never goes stale.
func Recalculate(f *Fare) {
	if f.VehicleMultiplier <= 0 {
		f.VehicleMultiplier = 1.0
	}
	if f.SurgeMultiplier <= 0 {
		f.SurgeMultiplier = 1.0
	}
	recalculate(f)
}

func recalculate(f *Fare) {
	f.Subtotal = round2(f.BaseFare + f.DistanceKm*PricePerKm)
	f.Taxes = round2(f.Subtotal * TaxRate)
	f.Total = round2((f.Subtotal + f.Taxes) * f.VehicleMultiplier * f.SurgeMultiplier)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
