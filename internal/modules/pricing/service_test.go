package pricing

import (
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name         string
		distanceKm   float64
		vehicleType  string
		surge        float64
		wantSubtotal float64
		wantTaxes    float64
		wantTotal    float64
	}{
		{
			name:        "standard 10km",
			distanceKm:  10, vehicleType: VehicleStandard, surge: 1.0,
			wantSubtotal: 50, wantTaxes: 5, wantTotal: 55,
		},
		{
			name:        "premium multiplies taxed subtotal",
			distanceKm:  10, vehicleType: VehiclePremium, surge: 1.0,
			wantSubtotal: 50, wantTaxes: 5, wantTotal: 82.5,
		},
		{
			name:        "suv",
			distanceKm:  10, vehicleType: VehicleSUV, surge: 1.0,
			wantSubtotal: 50, wantTaxes: 5, wantTotal: 99,
		},
		{
			name:        "luxury zero distance is base fare only",
			distanceKm:  0, vehicleType: VehicleLuxury, surge: 1.0,
			wantSubtotal: 25, wantTaxes: 2.5, wantTotal: 68.75,
		},
		{
			name:        "downtown manhattan trip",
			distanceKm:  6.3, vehicleType: VehicleStandard, surge: 1.0,
			wantSubtotal: 40.75, wantTaxes: 4.08, wantTotal: 44.83,
		},
		{
			name:        "10.6km crosstown trip",
			distanceKm:  10.6, vehicleType: VehicleStandard, surge: 1.0,
			wantSubtotal: 51.5, wantTaxes: 5.15, wantTotal: 56.65,
		},
		{
			name:        "surge doubles the total",
			distanceKm:  10, vehicleType: VehicleStandard, surge: 2.0,
			wantSubtotal: 50, wantTaxes: 5, wantTotal: 110,
		},
		{
			name:        "fractional everything rounds to cents",
			distanceKm:  4.2, vehicleType: VehiclePremium, surge: 1.25,
			wantSubtotal: 35.5, wantTaxes: 3.55, wantTotal: 73.22,
		},
		{
			name:        "non-positive surge falls back to 1.0",
			distanceKm:  10, vehicleType: VehicleStandard, surge: 0,
			wantSubtotal: 50, wantTaxes: 5, wantTotal: 55,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Quote(tt.distanceKm, tt.vehicleType, tt.surge)
			if err != nil {
				t.Fatalf("Quote() error = %v", err)
			}
			if f.Subtotal != tt.wantSubtotal {
				t.Errorf("Subtotal = %v, want %v", f.Subtotal, tt.wantSubtotal)
			}
			if f.Taxes != tt.wantTaxes {
				t.Errorf("Taxes = %v, want %v", f.Taxes, tt.wantTaxes)
			}
			if f.Total != tt.wantTotal {
				t.Errorf("Total = %v, want %v", f.Total, tt.wantTotal)
			}
		})
	}
}

func TestQuote_EstimatesDuration(t *testing.T) {
	tests := []struct {
		distanceKm float64
		wantMin    float64
	}{
		{10, 20},
		{6.3, 13},
		{0, 0},
	}
	for _, tt := range tests {
		f, err := Quote(tt.distanceKm, VehicleStandard, 1.0)
		if err != nil {
			t.Fatalf("Quote() error = %v", err)
		}
		if f.DurationMin != tt.wantMin {
			t.Errorf("DurationMin(%v km) = %v, want %v", tt.distanceKm, f.DurationMin, tt.wantMin)
		}
	}
}

func TestQuote_UnknownVehicleType(t *testing.T) {
	if _, err := Quote(5, "rickshaw", 1.0); err != ErrUnknownVehicleType {
		t.Fatalf("Quote() error = %v, want ErrUnknownVehicleType", err)
	}
}

func TestRecalculate_Idempotent(t *testing.T) {
	f, err := Quote(12.7, VehicleSUV, 1.5)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	before := f
	Recalculate(&f)
	if f != before {
		t.Errorf("Recalculate changed an already-consistent fare: %+v != %+v", f, before)
	}
}

// Changing an input and recalculating must reproduce a fresh quote exactly.
func TestRecalculate_AfterSurgeChange(t *testing.T) {
	f, err := Quote(8, VehicleStandard, 1.0)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	f.SurgeMultiplier = 1.8
	Recalculate(&f)

	fresh, err := Quote(8, VehicleStandard, 1.8)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if f != fresh {
		t.Errorf("recalculated fare %+v != fresh quote %+v", f, fresh)
	}
}
