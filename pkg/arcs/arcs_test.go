package arcs

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
	"github.com/unklstewy/flightarcs/pkg/routing"
)

func airport(id int64, code string, lon, lat float64) airports.Airport {
	return airports.Airport{ID: id, IATACode: code, Position: coordinates.LonLat(lon, lat)}
}

var (
	atl = airport(1, "ATL", -84.428101, 33.6367)
	ams = airport(2, "AMS", 4.76389, 52.308601)
	cdg = airport(3, "CDG", 2.55, 49.012798)
	hnd = airport(4, "HND", 139.781111, 35.553333)
	lax = airport(5, "LAX", -118.408049, 33.942536)
)

// TestBuildAlternatingPartner verifies each leg draws its own partner flag.
func TestBuildAlternatingPartner(t *testing.T) {
	route := routing.Via(atl, ams, cdg)

	tests := []struct {
		name   string
		values []float64
		want   []bool
	}{
		{"Below then above", []float64{0.1, 0.9}, []bool{true, false}},
		{"Above then below", []float64{0.9, 0.1}, []bool{false, true}},
		{"At threshold", []float64{0.3, 0.2999}, []bool{false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := routing.NewSequence(tt.values...)
			arcs, err := NewBuilder().Build([]routing.Route{route}, rng)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(arcs) != 2 {
				t.Fatalf("Expected 2 arcs, got %d", len(arcs))
			}

			partners := 0
			for i, a := range arcs {
				if a.PartnerAirline != tt.want[i] {
					t.Errorf("Leg %d: expected partner=%v, got %v", i, tt.want[i], a.PartnerAirline)
				}
				if a.PartnerAirline {
					partners++
				}
			}
			if partners != 1 {
				t.Errorf("Expected exactly one partner leg, got %d", partners)
			}
			if rng.Draws() != 2 {
				t.Errorf("Expected 2 draws, got %d", rng.Draws())
			}
		})
	}
}

// TestBuildFlattensRoutes verifies arcs from all routes land in one collection.
func TestBuildFlattensRoutes(t *testing.T) {
	routes := []routing.Route{
		routing.Direct(atl, cdg),
		routing.Via(atl, ams, cdg),
	}

	arcs, err := NewBuilder().Build(routes, routing.Constant(0.5))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(arcs) != 3 {
		t.Fatalf("Expected 3 arcs, got %d", len(arcs))
	}

	wantLegs := []string{"ATL-CDG", "ATL-AMS", "AMS-CDG"}
	wantRoute := []int{0, 1, 1}
	for i, a := range arcs {
		if a.Leg.String() != wantLegs[i] {
			t.Errorf("Arc %d: expected %s, got %s", i, wantLegs[i], a.Leg)
		}
		if a.Route != wantRoute[i] {
			t.Errorf("Arc %d: expected route %d, got %d", i, wantRoute[i], a.Route)
		}
	}

	fc := FeatureCollection(arcs)
	if len(fc.Features) != 3 {
		t.Fatalf("Expected 3 features, got %d", len(fc.Features))
	}
	for i, f := range fc.Features {
		v, ok := f.Properties[PartnerProperty].(bool)
		if !ok {
			t.Fatalf("Feature %d: expected boolean %s property", i, PartnerProperty)
		}
		if v {
			t.Errorf("Feature %d: expected direct arc with rng 0.5", i)
		}
	}

	direct, partner := Split(arcs)
	if len(direct) != 3 || len(partner) != 0 {
		t.Errorf("Expected 3 direct and 0 partner arcs, got %d/%d", len(direct), len(partner))
	}
}

// TestGeometry verifies arcs follow the great circle rather than the chord.
func TestGeometry(t *testing.T) {
	t.Run("Atlantic crossing", func(t *testing.T) {
		geom, err := Geometry(atl.Position, ams.Position, 100)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		ls, ok := geom.(orb.LineString)
		if !ok {
			t.Fatalf("Expected LineString, got %T", geom)
		}
		if len(ls) != 100 {
			t.Errorf("Expected 100 vertices, got %d", len(ls))
		}
		if ls[0] != (orb.Point{atl.Position.Longitude, atl.Position.Latitude}) {
			t.Errorf("Expected first vertex at ATL, got %v", ls[0])
		}
		if ls[len(ls)-1] != (orb.Point{ams.Position.Longitude, ams.Position.Latitude}) {
			t.Errorf("Expected last vertex at AMS, got %v", ls[len(ls)-1])
		}

		mid := ls[len(ls)/2]
		chord := (atl.Position.Latitude + ams.Position.Latitude) / 2
		if mid.Lat() <= chord {
			t.Errorf("Expected arc to bow north of %.2f, got %.2f", chord, mid.Lat())
		}
	})

	t.Run("Pacific crossing", func(t *testing.T) {
		geom, err := Geometry(hnd.Position, lax.Position, 100)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		mls, ok := geom.(orb.MultiLineString)
		if !ok {
			t.Fatalf("Expected MultiLineString, got %T", geom)
		}
		if len(mls) != 2 {
			t.Errorf("Expected 2 parts, got %d", len(mls))
		}
	})

	t.Run("Antipodal", func(t *testing.T) {
		if _, err := Geometry(coordinates.LonLat(0, 0), coordinates.LonLat(180, 0), 10); err == nil {
			t.Error("Expected error for antipodal points")
		}
	})
}

// TestBuildEmpty verifies no routes produce no arcs and consume no randomness.
func TestBuildEmpty(t *testing.T) {
	rng := routing.NewSequence(0.1)
	arcs, err := NewBuilder().Build(nil, rng)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(arcs) != 0 {
		t.Errorf("Expected no arcs, got %d", len(arcs))
	}
	if rng.Draws() != 0 {
		t.Errorf("Expected no draws, got %d", rng.Draws())
	}
	if fc := FeatureCollection(arcs); len(fc.Features) != 0 {
		t.Errorf("Expected empty collection, got %d features", len(fc.Features))
	}
}
