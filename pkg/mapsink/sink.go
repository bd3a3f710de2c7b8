// Package mapsink models the map SDK the route explorer draws into: markers,
// named GeoJSON sources, styled layers with filter predicates, viewport
// fitting, pointer events and popups.
//
// Front-ends implement Sink (or wrap Memory) to put the state on screen.
package mapsink

import (
	"errors"
	"image"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/pkg/coordinates"
)

var (
	// ErrNotFound is returned when removing or moving an absent layer, source or marker.
	ErrNotFound = errors.New("map resource not found")

	// ErrSourceMissing is returned when a layer references a source that was never added.
	ErrSourceMissing = errors.New("layer source not found")

	// ErrExists is returned when adding a layer, source or image whose ID is taken.
	ErrExists = errors.New("map resource already exists")

	// ErrImageMissing is returned when a symbol layer references an image that is not loaded.
	ErrImageMissing = errors.New("layer icon image not loaded")
)

// LayerKind selects how a layer draws its features.
type LayerKind string

const (
	KindCircle LayerKind = "circle"
	KindLine   LayerKind = "line"
	KindSymbol LayerKind = "symbol"
)

// Style holds paint and layout properties. Only the fields relevant to the
// layer kind are used.
type Style struct {
	// Circle layers
	Radius      float64
	StrokeColor string
	StrokeWidth float64
	Opacity     float64

	// Circle and line layers
	Color string

	// Line layers
	Width float64
	Dash  []float64 // [dash, gap]; empty means solid

	// Symbol layers
	Icon     string
	IconSize float64
}

// Dashed reports whether the line style has a dash pattern.
func (s Style) Dashed() bool {
	return len(s.Dash) > 0
}

// Layer is a styled view over a source, optionally filtered.
type Layer struct {
	ID     string
	Source string
	Kind   LayerKind
	Style  Style
	Filter Filter // nil matches every feature
}

// Matches reports whether the layer draws the feature.
func (l Layer) Matches(f *geojson.Feature) bool {
	if l.Filter == nil {
		return true
	}
	return l.Filter.Match(f.Properties)
}

// Marker is a labelled pin placed at a coordinate.
type Marker struct {
	ID         string
	Position   coordinates.Geographic
	Label      string
	Background string
	Icon       string
}

// Popup is the info card shown for a clicked airport.
type Popup struct {
	Position coordinates.Geographic
	Title    string
	Subtitle string
	Image    int // header image index
	Offset   int
	Action   string // label of the confirm affordance
}

// Event names accepted by On.
type Event string

const (
	EventMouseEnter Event = "mouseenter"
	EventMouseLeave Event = "mouseleave"
	EventMouseDown  Event = "mousedown"
)

// Handler receives the feature under the pointer. The feature is nil for
// mouseleave.
type Handler func(feature *geojson.Feature)

// Cursor is the pointer shape over the map.
type Cursor string

const (
	CursorDefault Cursor = ""
	CursorPointer Cursor = "pointer"
)

// Camera is the map viewport.
type Camera struct {
	Center coordinates.Geographic
	Zoom   float64

	// Bounds is set by FitBounds; zero when the view is center/zoom driven
	Bounds  orb.Bound
	Padding int
}

// Sink is the map the route explorer draws into.
type Sink interface {
	SetMarker(m Marker)
	RemoveMarker(id string) error

	AddSource(id string, fc *geojson.FeatureCollection) error
	HasSource(id string) bool
	RemoveSource(id string) error

	// AddLayer appends the layer on top of the stack
	AddLayer(l Layer) error
	HasLayer(id string) bool
	RemoveLayer(id string) error
	// MoveLayer places id directly beneath the layer named before
	MoveLayer(id, before string) error

	AddImage(name string, img image.Image) error
	HasImage(name string) bool

	FitBounds(b orb.Bound, padding int)
	SetCursor(c Cursor)
	ShowPopup(p Popup)
	ClosePopup()

	On(event Event, layerID string, h Handler)
}

// RemoveLayerIfPresent removes a layer only when it exists.
func RemoveLayerIfPresent(s Sink, id string) error {
	if !s.HasLayer(id) {
		return nil
	}
	return s.RemoveLayer(id)
}

// RemoveSourceIfPresent removes a source only when it exists.
func RemoveSourceIfPresent(s Sink, id string) error {
	if !s.HasSource(id) {
		return nil
	}
	return s.RemoveSource(id)
}

// FitToMarkers fits the viewport around the given markers.
func FitToMarkers(s Sink, padding int, markers ...Marker) {
	if len(markers) == 0 {
		return
	}
	b := orb.Bound{
		Min: orb.Point{markers[0].Position.Longitude, markers[0].Position.Latitude},
		Max: orb.Point{markers[0].Position.Longitude, markers[0].Position.Latitude},
	}
	for _, m := range markers[1:] {
		b = b.Extend(orb.Point{m.Position.Longitude, m.Position.Latitude})
	}
	s.FitBounds(b, padding)
}
