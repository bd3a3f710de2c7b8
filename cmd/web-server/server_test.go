package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/pkg/arcs"
	"github.com/unklstewy/flightarcs/pkg/config"
	"github.com/unklstewy/flightarcs/pkg/logger"
)

func newTestServer(t *testing.T, metrics bool) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Metrics.Enabled = metrics

	rt, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Logger: logger.NewNop()})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(rt.Close)
	return newServer(rt)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t, false)
	rec := get(t, s, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["origin"] != "ATL" {
		t.Errorf("Expected origin ATL, got %v", body["origin"])
	}
	if n, _ := body["airports"].(float64); int(n) != s.rt.Catalog.Len() {
		t.Errorf("Expected %d airports, got %v", s.rt.Catalog.Len(), body["airports"])
	}
}

func TestGetAirports(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"all", "/api/v1/airports", s.rt.Catalog.Len()},
		{"hubs", "/api/v1/airports?hubs=true", len(s.rt.Catalog.Hubs())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != geoJSONContentType {
				t.Errorf("Expected content type %s, got %s", geoJSONContentType, ct)
			}
			fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("Failed to decode features: %v", err)
			}
			if len(fc.Features) != tt.want {
				t.Errorf("Expected %d features, got %d", tt.want, len(fc.Features))
			}
		})
	}
}

func TestGetAirport(t *testing.T) {
	s := newTestServer(t, false)

	rec := get(t, s, "/api/v1/airports/lhr?seed=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Popup struct {
			Action string `json:"action"`
			Image  int    `json:"image"`
			Offset int    `json:"offset"`
		} `json:"popup"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Popup.Action != "View Details" {
		t.Errorf("Expected action View Details, got %s", body.Popup.Action)
	}
	if body.Popup.Image < 1 || body.Popup.Image > s.rt.Config.Map.PopupImages {
		t.Errorf("Expected image in [1, %d], got %d", s.rt.Config.Map.PopupImages, body.Popup.Image)
	}
	if body.Popup.Offset != 8 {
		t.Errorf("Expected offset 8, got %d", body.Popup.Offset)
	}

	// The origin is current, so its card sits higher
	rec = get(t, s, "/api/v1/airports/ATL")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Popup.Offset != 15 {
		t.Errorf("Expected offset 15 for the origin, got %d", body.Popup.Offset)
	}
}

func TestGetRoutes(t *testing.T) {
	s := newTestServer(t, false)

	rec := get(t, s, "/api/v1/routes/LHR?seed=42")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Destination string          `json:"destination"`
		Routes      []routeResponse `json:"routes"`
		Arcs        json.RawMessage `json:"arcs"`
		Camera      map[string]any  `json:"camera"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Destination != "LHR" {
		t.Errorf("Expected destination LHR, got %s", body.Destination)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body.Arcs)
	if err != nil {
		t.Fatalf("Failed to decode arcs: %v", err)
	}
	legs := 0
	for _, r := range body.Routes {
		if r.DistanceKm <= 0 {
			t.Errorf("Expected positive distance for %s, got %f", r.Path, r.DistanceKm)
		}
		wantLegs := 1
		if r.Via != "" {
			wantLegs = 2
		}
		if len(r.Legs) != wantLegs {
			t.Errorf("Expected %d legs for %s, got %d", wantLegs, r.Path, len(r.Legs))
		}
		for _, l := range r.Legs {
			if l.Bearing < 0 || l.Bearing >= 360 {
				t.Errorf("Expected bearing in [0, 360), got %f", l.Bearing)
			}
			if math.Abs(l.DistanceNm*1.852-l.DistanceKm) > 0.01 {
				t.Errorf("Expected %f nm to match %f km", l.DistanceNm, l.DistanceKm)
			}
		}
		legs += len(r.Legs)
	}
	if len(fc.Features) != legs {
		t.Errorf("Expected %d arcs, got %d", legs, len(fc.Features))
	}
	if body.Camera["padding"] != float64(300) {
		t.Errorf("Expected camera padding 300, got %v", body.Camera["padding"])
	}

	// Same seed, same routes
	again := get(t, s, "/api/v1/routes/LHR?seed=42")
	var second struct {
		Routes []routeResponse `json:"routes"`
	}
	if err := json.Unmarshal(again.Body.Bytes(), &second); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(second.Routes) != len(body.Routes) {
		t.Fatalf("Expected %d routes on replay, got %d", len(body.Routes), len(second.Routes))
	}
	for i := range second.Routes {
		if second.Routes[i].Path != body.Routes[i].Path {
			t.Errorf("Route %d: expected %s, got %s", i, body.Routes[i].Path, second.Routes[i].Path)
		}
	}
}

func TestGetRoutesToOrigin(t *testing.T) {
	s := newTestServer(t, false)

	rec := get(t, s, "/api/v1/routes/ATL")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var body struct {
		Routes []routeResponse `json:"routes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Routes) != 0 {
		t.Errorf("Expected no routes to the origin, got %d", len(body.Routes))
	}
}

func TestGetArcsLayers(t *testing.T) {
	s := newTestServer(t, false)

	count := func(layer string) (int, bool) {
		path := "/api/v1/routes/SIN/arcs?seed=11"
		if layer != "" {
			path += "&layer=" + layer
		}
		rec := get(t, s, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200 for layer %q, got %d", layer, rec.Code)
		}
		fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
		if err != nil {
			t.Fatalf("Failed to decode features: %v", err)
		}
		partner := true
		for _, f := range fc.Features {
			if v, _ := f.Properties[arcs.PartnerProperty].(bool); !v {
				partner = false
			}
		}
		return len(fc.Features), partner
	}

	all, _ := count("")
	direct, _ := count("direct")
	partner, allPartner := count("partner")
	if direct+partner != all {
		t.Errorf("Expected direct %d + partner %d = %d", direct, partner, all)
	}
	if !allPartner {
		t.Error("Expected only partner arcs in the partner layer")
	}
}

func TestErrors(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown airport", "/api/v1/airports/ZZZ", http.StatusNotFound},
		{"unknown destination", "/api/v1/routes/ZZZ", http.StatusNotFound},
		{"bad seed", "/api/v1/routes/LHR?seed=abc", http.StatusBadRequest},
		{"bad layer", "/api/v1/routes/LHR/arcs?layer=dotted", http.StatusBadRequest},
		{"metrics disabled", "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	if rec := get(t, s, "/api/v1/routes/LHR?seed=1"); rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "flightarcs_waypoints_sampled_total") {
		t.Error("Expected sampling counter in metrics output")
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://map.example")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected allow origin *, got %q", got)
	}
}

func TestRunStartupError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Map.Origin = "ZZZ"

	if err := run(cfg, "127.0.0.1:0", make(chan os.Signal)); err == nil {
		t.Error("Expected error for unknown origin, got nil")
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	if err := run(config.DefaultConfig(), "127.0.0.1:0", quit); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}
