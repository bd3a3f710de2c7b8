// Package session owns one map session: the fixed origin, the committed
// destination, the airport the popup is showing, and the event handlers
// that turn a "View Details" click into regenerated route arcs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/arcs"
	"github.com/unklstewy/flightarcs/pkg/logger"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
	"github.com/unklstewy/flightarcs/pkg/routing"
)

// Marker IDs placed by the session.
const (
	OriginMarker      = "origin"
	DestinationMarker = "destination"
)

// Popup defaults.
const (
	DefaultImageCount  = 11
	DefaultFitPadding  = 300
	PopupOffset        = 8
	PopupOffsetCurrent = 15
	ViewDetailsLabel   = "View Details"
)

// ErrNoPendingAirport is returned by ViewDetails when no popup is open.
var ErrNoPendingAirport = errors.New("no airport selected")

// Selection is the origin and the committed destination.
type Selection struct {
	Origin      airports.Airport
	Destination *airports.Airport
}

// Outcome is the result of committing a destination.
type Outcome struct {
	Destination airports.Airport
	Routes      []routing.Route
	Arcs        []arcs.Arc
	Generation  int
	Sampled     int
	Rejected    int
}

// RedrawObserver is notified after each arc generation is drawn.
type RedrawObserver interface {
	ObserveRedraw(generation, arcs int)
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Generator  *routing.Generator
	Builder    *arcs.Builder
	Random     routing.RandomSource
	FitPadding int
	ImageCount int
	Logger     logger.Logger
	Observer   RedrawObserver
}

// Session drives the map for one user.
type Session struct {
	sink    mapsink.Sink
	catalog *airports.Catalog
	origin  airports.Airport

	generator  *routing.Generator
	builder    *arcs.Builder
	rng        routing.RandomSource
	fitPadding int
	imageCount int
	log        logger.Logger
	observer   RedrawObserver

	arcLayers *mapsink.ArcLayers

	// mu makes "replace destination and redraw" one step
	mu          sync.Mutex
	destination *airports.Airport
	pending     *airports.Airport
	last        Outcome
	started     bool
}

// New creates a session drawing into sink with origin fixed for its lifetime.
func New(sink mapsink.Sink, catalog *airports.Catalog, origin airports.Airport, opts Options) *Session {
	s := &Session{
		sink:       sink,
		catalog:    catalog,
		origin:     origin,
		generator:  opts.Generator,
		builder:    opts.Builder,
		rng:        opts.Random,
		fitPadding: opts.FitPadding,
		imageCount: opts.ImageCount,
		log:        opts.Logger,
		observer:   opts.Observer,
		arcLayers:  mapsink.NewArcLayers(),
	}
	if s.generator == nil {
		s.generator = routing.NewGenerator(routing.DefaultConfig())
	}
	if s.builder == nil {
		s.builder = arcs.NewBuilder()
	}
	if s.rng == nil {
		s.rng = routing.NewTimeSource()
	}
	if s.fitPadding <= 0 {
		s.fitPadding = DefaultFitPadding
	}
	if s.imageCount <= 0 {
		s.imageCount = DefaultImageCount
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s
}

// Start places the origin marker, loads the hub icon, adds the airport
// source and layers, and subscribes to pointer events. The icon is added
// to the sink before any layer that references it.
func (s *Session) Start(ctx context.Context, loadIcon IconLoader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("session already started")
	}

	s.sink.SetMarker(s.marker(OriginMarker, s.origin, mapsink.OriginMarkerColor))

	if !s.sink.HasImage(mapsink.HubIcon) {
		img, err := loadIcon(ctx)
		if err != nil {
			return fmt.Errorf("failed to load hub icon: %w", err)
		}
		if err := s.sink.AddImage(mapsink.HubIcon, img); err != nil {
			return fmt.Errorf("failed to add hub icon: %w", err)
		}
	}

	if err := s.sink.AddSource(mapsink.SourceAirports, s.catalog.FeatureCollection()); err != nil {
		return fmt.Errorf("failed to add airport source: %w", err)
	}

	for _, layer := range []mapsink.Layer{mapsink.AirportLayer(), mapsink.HubLayer()} {
		if err := s.sink.AddLayer(layer); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", layer.ID, err)
		}
		s.sink.On(mapsink.EventMouseEnter, layer.ID, func(*geojson.Feature) {
			s.sink.SetCursor(mapsink.CursorPointer)
		})
		s.sink.On(mapsink.EventMouseLeave, layer.ID, func(*geojson.Feature) {
			s.sink.SetCursor(mapsink.CursorDefault)
		})
		s.sink.On(mapsink.EventMouseDown, layer.ID, s.handleMouseDown)
	}

	s.started = true
	s.log.Info("Map session started",
		"origin", s.origin.Code(),
		"airports", s.catalog.Len())
	return nil
}

// handleMouseDown opens the popup for the clicked airport and remembers it
// as the pending selection.
func (s *Session) handleMouseDown(f *geojson.Feature) {
	if f == nil {
		return
	}
	a, err := airports.FromFeature(f)
	if err != nil {
		// Only point features can be selected
		s.log.Debug("Ignoring click on non-airport feature", "error", err)
		return
	}
	s.Inspect(a)
}

// Inspect shows the popup for an airport without committing it.
func (s *Session) Inspect(a airports.Airport) mapsink.Popup {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := PopupOffset
	if a.Same(s.origin) || (s.destination != nil && a.Same(*s.destination)) {
		offset = PopupOffsetCurrent
	}

	popup := mapsink.Popup{
		Position: a.Position,
		Title:    a.Label(),
		Subtitle: a.Name,
		Image:    int(s.rng.Float64()*float64(s.imageCount)) + 1,
		Offset:   offset,
		Action:   ViewDetailsLabel,
	}

	pending := a
	s.pending = &pending
	s.sink.ShowPopup(popup)

	s.log.Debug("Airport inspected", "airport", a.Code(), "offset", offset)
	return popup
}

// Pending returns the airport the popup is showing.
func (s *Session) Pending() (airports.Airport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return airports.Airport{}, false
	}
	return *s.pending, true
}

// ViewDetails commits the pending airport as the destination.
func (s *Session) ViewDetails() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Outcome{}, ErrNoPendingAirport
	}
	return s.commit(*s.pending)
}

// SelectDestination commits a destination directly.
func (s *Session) SelectDestination(a airports.Airport) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(a)
}

// SelectCode looks up a destination by airport code and commits it.
func (s *Session) SelectCode(code string) (Outcome, error) {
	a, err := s.catalog.Lookup(code)
	if err != nil {
		return Outcome{}, err
	}
	return s.SelectDestination(a)
}

// commit regenerates routes and arcs for dest, then replaces the destination
// and redraws. A failed generation leaves the session and the map untouched.
// Callers hold mu.
func (s *Session) commit(dest airports.Airport) (Outcome, error) {
	start := time.Now()

	result, err := s.generator.Generate(s.origin, dest, s.catalog.All(), s.rng)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to generate routes: %w", err)
	}

	built, err := s.builder.Build(result.Routes, s.rng)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build arcs: %w", err)
	}

	d := dest
	s.destination = &d

	s.sink.SetMarker(s.marker(DestinationMarker, dest, mapsink.DestinationMarkerColor))
	mapsink.FitToMarkers(s.sink, s.fitPadding,
		s.marker(OriginMarker, s.origin, mapsink.OriginMarkerColor),
		s.marker(DestinationMarker, dest, mapsink.DestinationMarkerColor))

	gen, err := s.arcLayers.Replace(s.sink, arcs.FeatureCollection(built))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to draw arcs: %w", err)
	}

	if s.observer != nil {
		s.observer.ObserveRedraw(gen, len(built))
	}

	s.last = Outcome{
		Destination: dest,
		Routes:      result.Routes,
		Arcs:        built,
		Generation:  gen,
		Sampled:     result.Sampled,
		Rejected:    result.Rejected,
	}

	s.log.Info("Destination committed",
		"origin", s.origin.Code(),
		"destination", dest.Code(),
		"routes", len(result.Routes),
		"arcs", len(built),
		"generation", gen,
		"elapsed", time.Since(start))

	return s.last, nil
}

func (s *Session) marker(id string, a airports.Airport, background string) mapsink.Marker {
	return mapsink.Marker{
		ID:         id,
		Position:   a.Position,
		Label:      a.IATACode,
		Background: background,
		Icon:       mapsink.HubIcon,
	}
}

// Selection returns the origin and current destination.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := Selection{Origin: s.origin}
	if s.destination != nil {
		d := *s.destination
		sel.Destination = &d
	}
	return sel
}

// Last returns the most recent outcome.
func (s *Session) Last() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ArcState reports the arc layer lifecycle state.
func (s *Session) ArcState() (mapsink.ArcState, int) {
	return s.arcLayers.State()
}

// Catalog returns the airport pool.
func (s *Session) Catalog() *airports.Catalog {
	return s.catalog
}

// Origin returns the fixed origin.
func (s *Session) Origin() airports.Airport {
	return s.origin
}
