package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/arcs"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
	"github.com/unklstewy/flightarcs/pkg/routing"
)

func newTestSession(t *testing.T, rng routing.RandomSource) (*Session, *mapsink.Memory) {
	t.Helper()

	catalog, err := airports.Embedded()
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	origin, err := catalog.Lookup("ATL")
	if err != nil {
		t.Fatalf("Failed to find origin: %v", err)
	}

	sink := mapsink.NewMemory(mapsink.Camera{Center: coordinates.LonLat(-73.99055, 40.735225), Zoom: 2})
	s := New(sink, catalog, origin, Options{Random: rng})
	if err := s.Start(context.Background(), DeltaCircle(16)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s, sink
}

// TestStart verifies the initial map state.
func TestStart(t *testing.T) {
	s, sink := newTestSession(t, routing.Constant(0.9))

	if !sink.HasImage(mapsink.HubIcon) {
		t.Error("Expected hub icon loaded")
	}
	want := []string{mapsink.LayerAirports, mapsink.LayerHubs}
	got := sink.LayerIDs()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected layers %v, got %v", want, got)
	}

	origin, ok := sink.Marker(OriginMarker)
	if !ok {
		t.Fatal("Expected origin marker")
	}
	if origin.Label != "ATL" || origin.Background != mapsink.OriginMarkerColor {
		t.Errorf("Unexpected origin marker %+v", origin)
	}
	if _, ok := sink.Marker(DestinationMarker); ok {
		t.Error("Expected no destination marker before a selection")
	}

	if state, _ := s.ArcState(); state != mapsink.NoArcsDrawn {
		t.Errorf("Expected NoArcsDrawn, got %v", state)
	}
	if s.Selection().Destination != nil {
		t.Error("Expected no destination")
	}

	if err := s.Start(context.Background(), DeltaCircle(16)); err == nil {
		t.Error("Expected error starting twice")
	}
}

// TestStartIconFailure verifies no layers are added when the icon cannot load.
func TestStartIconFailure(t *testing.T) {
	catalog, _ := airports.Embedded()
	origin, _ := catalog.Lookup("ATL")
	sink := mapsink.NewMemory(mapsink.Camera{})
	s := New(sink, catalog, origin, Options{Random: routing.Constant(0)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Start(ctx, DeltaCircle(16))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(sink.LayerIDs()) != 0 {
		t.Errorf("Expected no layers, got %v", sink.LayerIDs())
	}

	failing := func(context.Context) (image.Image, error) { return nil, errors.New("boom") }
	if err := s.Start(context.Background(), failing); err == nil {
		t.Error("Expected icon loader error")
	}
}

// TestHoverCursor verifies pointer feedback on both airport layers.
func TestHoverCursor(t *testing.T) {
	_, sink := newTestSession(t, routing.Constant(0.9))

	for _, layer := range []string{mapsink.LayerAirports, mapsink.LayerHubs} {
		sink.Emit(mapsink.EventMouseEnter, layer, nil)
		if sink.Cursor() != mapsink.CursorPointer {
			t.Errorf("%s: expected pointer cursor", layer)
		}
		sink.Emit(mapsink.EventMouseLeave, layer, nil)
		if sink.Cursor() != mapsink.CursorDefault {
			t.Errorf("%s: expected default cursor", layer)
		}
	}
}

// TestClickOpensPopup verifies the popup content and offsets.
func TestClickOpensPopup(t *testing.T) {
	s, sink := newTestSession(t, routing.Constant(0.5))

	lhr := findFeature(t, sink, mapsink.LayerAirports, "LHR")
	atl := findFeature(t, sink, mapsink.LayerHubs, "ATL")

	sink.Emit(mapsink.EventMouseDown, mapsink.LayerAirports, lhr)
	popup, ok := sink.Popup()
	if !ok {
		t.Fatal("Expected popup")
	}
	if popup.Title != "London, United Kingdom" {
		t.Errorf("Expected title 'London, United Kingdom', got %q", popup.Title)
	}
	if popup.Subtitle != "London Heathrow Airport" {
		t.Errorf("Expected Heathrow subtitle, got %q", popup.Subtitle)
	}
	if popup.Offset != PopupOffset {
		t.Errorf("Expected offset %d, got %d", PopupOffset, popup.Offset)
	}
	// 0.5 * 11 + 1
	if popup.Image != 6 {
		t.Errorf("Expected image 6, got %d", popup.Image)
	}
	if popup.Action != ViewDetailsLabel {
		t.Errorf("Expected action %q, got %q", ViewDetailsLabel, popup.Action)
	}
	if pending, ok := s.Pending(); !ok || pending.IATACode != "LHR" {
		t.Errorf("Expected LHR pending, got %v", pending)
	}

	// Clicking does not commit
	if s.Selection().Destination != nil {
		t.Error("Expected destination unchanged by a click")
	}

	sink.Emit(mapsink.EventMouseDown, mapsink.LayerHubs, atl)
	popup, _ = sink.Popup()
	if popup.Offset != PopupOffsetCurrent {
		t.Errorf("Expected offset %d for the origin, got %d", PopupOffsetCurrent, popup.Offset)
	}

	// After committing LHR its popup uses the larger offset
	sink.Emit(mapsink.EventMouseDown, mapsink.LayerAirports, lhr)
	if _, err := s.ViewDetails(); err != nil {
		t.Fatalf("ViewDetails failed: %v", err)
	}
	sink.Emit(mapsink.EventMouseDown, mapsink.LayerAirports, lhr)
	popup, _ = sink.Popup()
	if popup.Offset != PopupOffsetCurrent {
		t.Errorf("Expected offset %d for the destination, got %d", PopupOffsetCurrent, popup.Offset)
	}
}

// TestViewDetailsWithoutPopup verifies a commit needs a pending airport.
func TestViewDetailsWithoutPopup(t *testing.T) {
	s, _ := newTestSession(t, routing.Constant(0))
	if _, err := s.ViewDetails(); !errors.Is(err, ErrNoPendingAirport) {
		t.Errorf("Expected ErrNoPendingAirport, got %v", err)
	}
}

// TestCommitDrawsArcs verifies a commit places the marker, fits the view and draws arcs.
func TestCommitDrawsArcs(t *testing.T) {
	// Every draw is 0: direct route, every waypoint sampled, every leg partner
	s, sink := newTestSession(t, routing.Constant(0))

	out, err := s.SelectCode("CDG")
	if err != nil {
		t.Fatalf("SelectCode failed: %v", err)
	}
	if out.Generation != 1 {
		t.Errorf("Expected generation 1, got %d", out.Generation)
	}
	if len(out.Routes) == 0 || !out.Routes[0].IsDirect() {
		t.Fatal("Expected the direct route first")
	}

	legs := 0
	for _, r := range out.Routes {
		legs += len(r.Legs())
	}
	if len(out.Arcs) != legs {
		t.Errorf("Expected %d arcs, got %d", legs, len(out.Arcs))
	}

	dest, ok := sink.Marker(DestinationMarker)
	if !ok || dest.Label != "CDG" || dest.Background != mapsink.DestinationMarkerColor {
		t.Errorf("Unexpected destination marker %+v", dest)
	}
	if sink.Camera().Padding != DefaultFitPadding {
		t.Errorf("Expected fit padding %d, got %d", DefaultFitPadding, sink.Camera().Padding)
	}

	if n := len(sink.RenderedFeatures(mapsink.LayerPartnerArcs)); n != legs {
		t.Errorf("Expected %d dashed arcs, got %d", legs, n)
	}
	if n := len(sink.RenderedFeatures(mapsink.LayerArcs)); n != 0 {
		t.Errorf("Expected no solid arcs, got %d", n)
	}

	ids := sink.LayerIDs()
	if ids[len(ids)-2] != mapsink.LayerAirports || ids[len(ids)-1] != mapsink.LayerHubs {
		t.Errorf("Expected airport layers on top, got %v", ids)
	}
}

// TestRedrawReplacesPreviousGeneration covers two successive selections.
func TestRedrawReplacesPreviousGeneration(t *testing.T) {
	s, sink := newTestSession(t, routing.NewSource(11))

	first, err := s.SelectCode("LAX")
	if err != nil {
		t.Fatalf("First selection failed: %v", err)
	}
	second, err := s.SelectCode("AMS")
	if err != nil {
		t.Fatalf("Second selection failed: %v", err)
	}

	if first.Generation != 1 || second.Generation != 2 {
		t.Errorf("Expected generations 1 and 2, got %d and %d", first.Generation, second.Generation)
	}
	if state, gen := s.ArcState(); state != mapsink.ArcsDrawn || gen != 2 {
		t.Errorf("Expected ArcsDrawn/2, got %v/%d", state, gen)
	}

	arcLayers := 0
	for _, id := range sink.LayerIDs() {
		if id == mapsink.LayerArcs || id == mapsink.LayerPartnerArcs {
			arcLayers++
		}
	}
	if arcLayers != 2 {
		t.Errorf("Expected exactly 2 arc layers, got %d", arcLayers)
	}

	fc, ok := sink.Source(mapsink.SourceArcs)
	if !ok {
		t.Fatal("Expected arc source")
	}
	if len(fc.Features) != len(second.Arcs) {
		t.Errorf("Expected %d features from the second selection, got %d", len(second.Arcs), len(fc.Features))
	}
	for _, f := range fc.Features {
		from := f.Properties.MustString("from")
		to := f.Properties.MustString("to")
		if to == "LAX" || from == "LAX" {
			t.Errorf("Found leftover arc %s-%s from the first selection", from, to)
		}
	}

	sel := s.Selection()
	if sel.Destination == nil || sel.Destination.IATACode != "AMS" {
		t.Errorf("Expected AMS as destination, got %v", sel.Destination)
	}
	if s.Last().Destination.IATACode != "AMS" {
		t.Error("Expected last outcome for AMS")
	}
}

// TestConcurrentSelections verifies racing commits never leave two generations.
func TestConcurrentSelections(t *testing.T) {
	s, sink := newTestSession(t, routing.NewSource(3))

	codes := []string{"LAX", "CDG", "HND", "BOS", "SYD", "AMS"}
	var wg sync.WaitGroup
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			if _, err := s.SelectCode(code); err != nil {
				t.Errorf("SelectCode(%s) failed: %v", code, err)
			}
		}(code)
	}
	wg.Wait()

	if _, gen := s.ArcState(); gen != len(codes) {
		t.Errorf("Expected generation %d, got %d", len(codes), gen)
	}

	last := s.Last()
	fc, _ := sink.Source(mapsink.SourceArcs)
	if len(fc.Features) != len(last.Arcs) {
		t.Errorf("Expected arc source to match the last commit: %d vs %d", len(fc.Features), len(last.Arcs))
	}
	dest := s.Selection().Destination
	if dest == nil || dest.IATACode != last.Destination.IATACode {
		t.Error("Expected destination to match the last commit")
	}
}

// TestSelectOriginAsDestination verifies a self-route clears the arcs.
func TestSelectOriginAsDestination(t *testing.T) {
	s, sink := newTestSession(t, routing.Constant(0))

	if _, err := s.SelectCode("CDG"); err != nil {
		t.Fatalf("SelectCode failed: %v", err)
	}
	out, err := s.SelectCode("ATL")
	if err != nil {
		t.Fatalf("SelectCode failed: %v", err)
	}
	if len(out.Routes) != 0 || len(out.Arcs) != 0 {
		t.Errorf("Expected no routes, got %d routes/%d arcs", len(out.Routes), len(out.Arcs))
	}
	fc, _ := sink.Source(mapsink.SourceArcs)
	if len(fc.Features) != 0 {
		t.Errorf("Expected empty arc source, got %d features", len(fc.Features))
	}
}

// TestFailedCommitLeavesStateUnchanged verifies an invalid destination does
// not move the selection, the marker, the camera or the drawn arcs.
func TestFailedCommitLeavesStateUnchanged(t *testing.T) {
	s, sink := newTestSession(t, routing.Constant(0))

	before, err := s.SelectCode("CDG")
	if err != nil {
		t.Fatalf("SelectCode failed: %v", err)
	}
	camera := sink.Camera()

	bad := airports.Airport{ID: 999999, Ident: "XBAD", IATACode: "BAD", Position: coordinates.LonLat(200, 10)}
	if _, err := s.SelectDestination(bad); !errors.Is(err, coordinates.ErrInvalidCoordinate) {
		t.Fatalf("Expected ErrInvalidCoordinate, got %v", err)
	}

	sel := s.Selection()
	if sel.Destination == nil || sel.Destination.IATACode != "CDG" {
		t.Errorf("Expected destination CDG, got %v", sel.Destination)
	}
	marker, ok := sink.Marker(DestinationMarker)
	if !ok || marker.Label != "CDG" {
		t.Errorf("Expected CDG destination marker, got %+v", marker)
	}
	if got := sink.Camera(); got != camera {
		t.Errorf("Expected camera %+v, got %+v", camera, got)
	}
	if _, gen := s.ArcState(); gen != before.Generation {
		t.Errorf("Expected generation %d, got %d", before.Generation, gen)
	}
	fc, _ := sink.Source(mapsink.SourceArcs)
	if len(fc.Features) != len(before.Arcs) {
		t.Errorf("Expected %d arcs, got %d", len(before.Arcs), len(fc.Features))
	}
	if last := s.Last(); last.Destination.IATACode != "CDG" || last.Generation != before.Generation {
		t.Errorf("Expected last outcome for CDG generation %d, got %s/%d",
			before.Generation, last.Destination.IATACode, last.Generation)
	}
}

type redrawCounter struct {
	generations []int
}

func (r *redrawCounter) ObserveRedraw(gen, n int) {
	r.generations = append(r.generations, gen)
}

// TestObserver verifies redraws are reported.
func TestObserver(t *testing.T) {
	catalog, _ := airports.Embedded()
	origin, _ := catalog.Lookup("ATL")
	obs := &redrawCounter{}
	sink := mapsink.NewMemory(mapsink.Camera{})
	s := New(sink, catalog, origin, Options{
		Random:   routing.Constant(0.9),
		Builder:  arcs.NewBuilder(),
		Observer: obs,
	})
	if err := s.Start(context.Background(), DeltaCircle(8)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.SelectCode("BOS")
	s.SelectCode("SEA")
	if len(obs.generations) != 2 || obs.generations[1] != 2 {
		t.Errorf("Expected generations [1 2], got %v", obs.generations)
	}

	if _, err := s.SelectCode("ZZZ"); !errors.Is(err, airports.ErrUnknownAirport) {
		t.Errorf("Expected ErrUnknownAirport, got %v", err)
	}
}

// TestDeltaCircle verifies the generated icon.
func TestDeltaCircle(t *testing.T) {
	img, err := DeltaCircle(20)(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("Expected 20px icon, got %d", img.Bounds().Dx())
	}
	// Corners are transparent, the center is painted
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("Expected transparent corner")
	}
	if _, _, _, a := img.At(10, 10).RGBA(); a == 0 {
		t.Error("Expected painted center")
	}
}

func findFeature(t *testing.T, sink *mapsink.Memory, layer, code string) *geojson.Feature {
	t.Helper()
	for _, f := range sink.RenderedFeatures(layer) {
		if f.Properties.MustString("iata_code", "") == code {
			return f
		}
	}
	t.Fatalf("Feature %s not found in %s", code, layer)
	return nil
}
