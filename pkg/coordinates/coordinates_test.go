package coordinates

import (
	"errors"
	"math"
	"testing"
)

var atlanta = LonLat(-84.428101, 33.6367)

// TestDistanceKm tests great-circle distances against known airport pairs.
func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name      string
		from      Geographic
		to        Geographic
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "Atlanta to Los Angeles",
			from:      atlanta,
			to:        LonLat(-118.408, 33.9425),
			wantKm:    3125.78,
			tolerance: 0.5,
		},
		{
			name:      "Atlanta to London Heathrow",
			from:      atlanta,
			to:        LonLat(-0.461941, 51.4706),
			wantKm:    6760.77,
			tolerance: 0.5,
		},
		{
			name:      "One degree of latitude",
			from:      LonLat(0, 0),
			to:        LonLat(0, 1),
			wantKm:    111.19,
			tolerance: 0.1,
		},
		{
			name:      "Half way around the equator",
			from:      LonLat(0, 0),
			to:        LonLat(180, 0),
			wantKm:    math.Pi * EarthRadiusKm,
			tolerance: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistanceKm(tt.from, tt.to)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("Expected %.2f km (±%.2f), got %.2f km", tt.wantKm, tt.tolerance, got)
			}
		})
	}
}

// TestDistanceKmIdentity verifies distance(A, A) == 0 and symmetry.
func TestDistanceKmIdentity(t *testing.T) {
	points := []Geographic{
		atlanta,
		LonLat(139.781, 35.5533),
		LonLat(-180, -90),
		LonLat(180, 90),
		LonLat(0, 0),
		LonLat(151.177, -33.9461),
	}

	for _, a := range points {
		d, err := DistanceKm(a, a)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if d != 0 {
			t.Errorf("Expected distance(%v, %v) == 0, got %v", a, a, d)
		}

		for _, b := range points {
			ab, err := DistanceKm(a, b)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			ba, err := DistanceKm(b, a)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("Distance not symmetric for %v/%v: %v vs %v", a, b, ab, ba)
			}
			if ab < 0 {
				t.Errorf("Expected nonnegative distance, got %v", ab)
			}
		}
	}
}

// TestDistanceKmInvalid verifies out-of-range input fails instead of clamping.
func TestDistanceKmInvalid(t *testing.T) {
	tests := []struct {
		name  string
		point Geographic
		field string
	}{
		{"Longitude too large", LonLat(180.0001, 0), "longitude"},
		{"Longitude too small", LonLat(-200, 0), "longitude"},
		{"Latitude too large", LonLat(0, 90.5), "latitude"},
		{"Latitude too small", LonLat(0, -91), "latitude"},
		{"NaN latitude", LonLat(0, math.NaN()), "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DistanceKm(atlanta, tt.point)
			if !errors.Is(err, ErrInvalidCoordinate) {
				t.Fatalf("Expected ErrInvalidCoordinate, got %v", err)
			}
			var ice *InvalidCoordinateError
			if !errors.As(err, &ice) {
				t.Fatalf("Expected *InvalidCoordinateError, got %T", err)
			}
			if ice.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ice.Field)
			}

			// Order of arguments must not matter
			if _, err := DistanceKm(tt.point, atlanta); !errors.Is(err, ErrInvalidCoordinate) {
				t.Errorf("Expected ErrInvalidCoordinate for reversed arguments, got %v", err)
			}
		})
	}
}

// TestDestination verifies Destination round-trips with DistanceKm and Bearing.
func TestDestination(t *testing.T) {
	for _, dist := range []float64{500, 2000, 9000} {
		for _, brng := range []float64{0, 45, 135, 270} {
			dest := Destination(atlanta, brng, dist)

			got, err := DistanceKm(atlanta, dest)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-dist) > 0.01 {
				t.Errorf("Bearing %.0f: expected %.0f km, got %.3f km", brng, dist, got)
			}

			gotBearing := Bearing(atlanta, dest)
			diff := math.Abs(gotBearing - brng)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > 0.01 {
				t.Errorf("Expected bearing %.2f, got %.2f", brng, gotBearing)
			}
		}
	}
}

// TestNormalizeLongitude tests wrapping into [-180, 180).
func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0, 0},
		{179, 179},
		{180, -180},
		{181, -179},
		{-181, 179},
		{540, -180},
		{-360, 0},
	}

	for _, tt := range tests {
		got := NormalizeLongitude(tt.input)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("NormalizeLongitude(%v) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

// TestBearing tests cardinal bearings.
func TestBearing(t *testing.T) {
	tests := []struct {
		name string
		to   Geographic
		want float64
	}{
		{"North", LonLat(0, 1), 0},
		{"East", LonLat(1, 0), 90},
		{"South", LonLat(0, -1), 180},
		{"West", LonLat(-1, 0), 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(LonLat(0, 0), tt.to)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Expected bearing %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

// TestDistanceNauticalMiles checks the conversion from km.
func TestDistanceNauticalMiles(t *testing.T) {
	to := LonLat(0, 1)
	km, _ := DistanceKm(LonLat(0, 0), to)
	nm := DistanceNauticalMiles(LonLat(0, 0), to)
	if math.Abs(nm*KmPerNauticalMile-km) > 1e-9 {
		t.Errorf("Expected %.4f NM, got %.4f NM", km/KmPerNauticalMile, nm)
	}
	// One degree of latitude is roughly 60 NM
	if math.Abs(nm-60) > 0.2 {
		t.Errorf("Expected ~60 NM, got %.3f", nm)
	}
}
