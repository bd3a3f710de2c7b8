package routing

import (
	"testing"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
)

// TestSourceReproducible verifies equal seeds yield equal streams.
func TestSourceReproducible(t *testing.T) {
	a := NewSource(2024)
	b := NewSource(2024)
	c := NewSource(2025)

	same := true
	for i := 0; i < 100; i++ {
		va, vb, vc := a.Float64(), b.Float64(), c.Float64()
		if va != vb {
			t.Fatalf("Draw %d: expected %v, got %v", i, va, vb)
		}
		if va != vc {
			same = false
		}
	}
	if same {
		t.Error("Expected different seeds to produce different streams")
	}
}

// TestSourceRange verifies values stay within [0, 1) and look uniform.
func TestSourceRange(t *testing.T) {
	s := NewSource(1)
	below := 0
	const n = 10000

	for i := 0; i < n; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Value %v out of range", v)
		}
		if v < 0.5 {
			below++
		}
	}

	if below < n*45/100 || below > n*55/100 {
		t.Errorf("Expected roughly half the draws below 0.5, got %d/%d", below, n)
	}

	for i := 0; i < 100; i++ {
		if v := s.Intn(11); v < 0 || v >= 11 {
			t.Fatalf("Intn(11) returned %d", v)
		}
	}
}

// TestSequence tests the scripted source.
func TestSequence(t *testing.T) {
	s := NewSequence(0.1, 0.2)
	want := []float64{0.1, 0.2, 0.1, 0.2}
	for i, w := range want {
		if got := s.Float64(); got != w {
			t.Errorf("Draw %d: expected %v, got %v", i, w, got)
		}
	}
	if s.Draws() != 4 {
		t.Errorf("Expected 4 draws, got %d", s.Draws())
	}

	if v := NewSequence().Float64(); v != 0 {
		t.Errorf("Expected empty sequence to yield 0, got %v", v)
	}
	if v := Constant(0.7).Float64(); v != 0.7 {
		t.Errorf("Expected 0.7, got %v", v)
	}
}

// TestRouteAccessors tests Route and Leg helpers.
func TestRouteAccessors(t *testing.T) {
	mid := testAirport("MID", coordinates.LonLat(-100, 34))
	r := Via(atlanta, mid, lax)

	if r.IsDirect() {
		t.Error("Expected one-stop route")
	}
	if got, ok := r.Waypoint(); !ok || got.Code() != "MID" {
		t.Errorf("Expected waypoint MID, got %v", got)
	}
	if r.String() != "ATL-MID-LAX" {
		t.Errorf("Expected ATL-MID-LAX, got %s", r.String())
	}

	legs := r.Legs()
	if len(legs) != 2 {
		t.Fatalf("Expected 2 legs, got %d", len(legs))
	}
	if legs[0].String() != "ATL-MID" || legs[1].String() != "MID-LAX" {
		t.Errorf("Unexpected legs %s, %s", legs[0], legs[1])
	}

	total, err := r.DistanceKm()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	direct, _ := Direct(atlanta, lax).DistanceKm()
	if total < direct {
		t.Errorf("Expected one-stop distance %.1f >= direct %.1f", total, direct)
	}

	d := Direct(atlanta, lax)
	if _, ok := d.Waypoint(); ok {
		t.Error("Expected no waypoint on direct route")
	}
	if len(d.Legs()) != 1 {
		t.Errorf("Expected 1 leg, got %d", len(d.Legs()))
	}
	if (Route{Airports: []airports.Airport{atlanta}}).Legs() != nil {
		t.Error("Expected no legs for a single airport")
	}
}
