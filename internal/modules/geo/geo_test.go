package geo

import (
	"math"
	"testing"

	"rideway/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Point
		want float64
	}{
		{
			name: "downtown manhattan to williamsburg",
			a:    types.Point{Lat: 40.7128, Lng: -74.0060},
			b:    types.Point{Lat: 40.7306, Lng: -73.9352},
			want: 6.3,
		},
		{
			name: "london to paris",
			a:    types.Point{Lat: 51.5074, Lng: -0.1278},
			b:    types.Point{Lat: 48.8566, Lng: 2.3522},
			want: 343.6,
		},
		{
			name: "equator quarter turn",
			a:    types.Point{Lat: 0, Lng: 0},
			b:    types.Point{Lat: 0, Lng: 90},
			want: math.Round(earthRadiusKm*math.Pi/2*10) / 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.want) > 0.2 {
				t.Errorf("DistanceKm() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := types.Point{Lat: 25.033, Lng: 121.565}
	b := types.Point{Lat: 24.9937, Lng: 121.301}
	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); d1 != d2 {
		t.Errorf("distance not symmetric: %v != %v", d1, d2)
	}
}

func TestDistanceKm_IdenticalPoints(t *testing.T) {
	p := types.Point{Lat: 40.7128, Lng: -74.0060}
	if d := DistanceKm(p, p); d != 0 {
		t.Errorf("DistanceKm(p, p) = %v, want 0", d)
	}
}

// Antipodal points push the haversine argument right against 1; the clamp
// must keep the result finite.
func TestDistanceKm_Antipodal(t *testing.T) {
	a := types.Point{Lat: 0, Lng: 0}
	b := types.Point{Lat: 0, Lng: 180}
	d := DistanceKm(a, b)
	if math.IsNaN(d) {
		t.Fatal("DistanceKm returned NaN for antipodal points")
	}
	want := math.Round(earthRadiusKm*math.Pi*10) / 10
	if math.Abs(d-want) > 0.2 {
		t.Errorf("DistanceKm() = %v, want %v", d, want)
	}
}
