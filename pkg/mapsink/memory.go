package mapsink

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Memory is an in-process Sink. It keeps the full map state so terminal
// front-ends can render it and tests can inspect it.
// All methods are safe for concurrent use; handlers run without the lock held.
type Memory struct {
	mu       sync.RWMutex
	markers  map[string]Marker
	sources  map[string]*geojson.FeatureCollection
	layers   []Layer // bottom to top
	images   map[string]image.Image
	handlers map[Event]map[string][]Handler
	cursor   Cursor
	popup    *Popup
	camera   Camera
	version  uint64
	onChange func()
}

// NewMemory creates an empty map centered on center at the given zoom.
func NewMemory(camera Camera) *Memory {
	return &Memory{
		markers:  make(map[string]Marker),
		sources:  make(map[string]*geojson.FeatureCollection),
		images:   make(map[string]image.Image),
		handlers: make(map[Event]map[string][]Handler),
		camera:   camera,
	}
}

// OnChange registers a callback invoked after every state change.
func (m *Memory) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// changed bumps the version and returns the change callback. Callers hold the lock.
func (m *Memory) changed() func() {
	m.version++
	return m.onChange
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

// Version increases on every state change.
func (m *Memory) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

func (m *Memory) SetMarker(mk Marker) {
	m.mu.Lock()
	m.markers[mk.ID] = mk
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
}

func (m *Memory) RemoveMarker(id string) error {
	m.mu.Lock()
	if _, ok := m.markers[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("marker %q: %w", id, ErrNotFound)
	}
	delete(m.markers, id)
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

// Markers returns all markers sorted by ID.
func (m *Memory) Markers() []Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Marker, 0, len(m.markers))
	for _, mk := range m.markers {
		out = append(out, mk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Marker returns a marker by ID.
func (m *Memory) Marker(id string) (Marker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mk, ok := m.markers[id]
	return mk, ok
}

func (m *Memory) AddSource(id string, fc *geojson.FeatureCollection) error {
	m.mu.Lock()
	if _, ok := m.sources[id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("source %q: %w", id, ErrExists)
	}
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	m.sources[id] = fc
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

func (m *Memory) HasSource(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sources[id]
	return ok
}

// RemoveSource fails while a layer still references the source.
func (m *Memory) RemoveSource(id string) error {
	m.mu.Lock()
	if _, ok := m.sources[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("source %q: %w", id, ErrNotFound)
	}
	for _, l := range m.layers {
		if l.Source == id {
			m.mu.Unlock()
			return fmt.Errorf("source %q is used by layer %q", id, l.ID)
		}
	}
	delete(m.sources, id)
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

// Source returns the collection backing a source.
func (m *Memory) Source(id string) (*geojson.FeatureCollection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fc, ok := m.sources[id]
	return fc, ok
}

// SourceIDs returns the names of all sources, sorted.
func (m *Memory) SourceIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sources))
	for id := range m.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Memory) AddLayer(l Layer) error {
	m.mu.Lock()
	if m.indexOf(l.ID) >= 0 {
		m.mu.Unlock()
		return fmt.Errorf("layer %q: %w", l.ID, ErrExists)
	}
	if _, ok := m.sources[l.Source]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("layer %q references %q: %w", l.ID, l.Source, ErrSourceMissing)
	}
	if l.Kind == KindSymbol && l.Style.Icon != "" {
		if _, ok := m.images[l.Style.Icon]; !ok {
			m.mu.Unlock()
			return fmt.Errorf("layer %q icon %q: %w", l.ID, l.Style.Icon, ErrImageMissing)
		}
	}
	m.layers = append(m.layers, l)
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

func (m *Memory) HasLayer(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexOf(id) >= 0
}

func (m *Memory) RemoveLayer(id string) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	m.layers = append(m.layers[:i], m.layers[i+1:]...)
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

func (m *Memory) MoveLayer(id, before string) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	if m.indexOf(before) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("layer %q: %w", before, ErrNotFound)
	}

	l := m.layers[i]
	m.layers = append(m.layers[:i], m.layers[i+1:]...)
	j := m.indexOf(before)
	m.layers = append(m.layers[:j], append([]Layer{l}, m.layers[j:]...)...)

	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

// Layers returns the layer stack from bottom to top.
func (m *Memory) Layers() []Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// LayerIDs returns layer names from bottom to top.
func (m *Memory) LayerIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.layers))
	for i, l := range m.layers {
		ids[i] = l.ID
	}
	return ids
}

// RenderedFeatures returns the features a layer draws, after its filter.
func (m *Memory) RenderedFeatures(layerID string) []*geojson.Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(layerID)
	if i < 0 {
		return nil
	}
	l := m.layers[i]
	fc, ok := m.sources[l.Source]
	if !ok {
		return nil
	}
	var out []*geojson.Feature
	for _, f := range fc.Features {
		if l.Matches(f) {
			out = append(out, f)
		}
	}
	return out
}

func (m *Memory) indexOf(id string) int {
	for i, l := range m.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) AddImage(name string, img image.Image) error {
	m.mu.Lock()
	if _, ok := m.images[name]; ok {
		m.mu.Unlock()
		return fmt.Errorf("image %q: %w", name, ErrExists)
	}
	m.images[name] = img
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
	return nil
}

func (m *Memory) HasImage(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.images[name]
	return ok
}

// Image returns a loaded image.
func (m *Memory) Image(name string) (image.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[name]
	return img, ok
}

func (m *Memory) FitBounds(b orb.Bound, padding int) {
	m.mu.Lock()
	center := b.Center()
	m.camera.Center.Longitude = center.Lon()
	m.camera.Center.Latitude = center.Lat()
	m.camera.Bounds = b
	m.camera.Padding = padding
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
}

// SetCamera replaces the viewport, clearing any fitted bounds.
func (m *Memory) SetCamera(c Camera) {
	m.mu.Lock()
	m.camera = c
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
}

// Camera returns the current viewport.
func (m *Memory) Camera() Camera {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.camera
}

func (m *Memory) SetCursor(c Cursor) {
	m.mu.Lock()
	m.cursor = c
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
}

// Cursor returns the pointer shape.
func (m *Memory) Cursor() Cursor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor
}

func (m *Memory) ShowPopup(p Popup) {
	m.mu.Lock()
	m.popup = &p
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
}

func (m *Memory) ClosePopup() {
	m.mu.Lock()
	m.popup = nil
	fn := m.changed()
	m.mu.Unlock()
	notify(fn)
}

// Popup returns the open popup, if any.
func (m *Memory) Popup() (Popup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.popup == nil {
		return Popup{}, false
	}
	return *m.popup, true
}

func (m *Memory) On(event Event, layerID string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byLayer, ok := m.handlers[event]
	if !ok {
		byLayer = make(map[string][]Handler)
		m.handlers[event] = byLayer
	}
	byLayer[layerID] = append(byLayer[layerID], h)
}

// Emit delivers an event for a layer to its handlers. It returns the number
// of handlers invoked.
func (m *Memory) Emit(event Event, layerID string, feature *geojson.Feature) int {
	m.mu.RLock()
	hs := append([]Handler(nil), m.handlers[event][layerID]...)
	m.mu.RUnlock()

	for _, h := range hs {
		h(feature)
	}
	return len(hs)
}
