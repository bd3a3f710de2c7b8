package mapsink

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb/geojson"
)

// ArcState is the lifecycle state of the arc layers.
type ArcState int

const (
	NoArcsDrawn ArcState = iota
	ArcsDrawn
)

func (s ArcState) String() string {
	switch s {
	case NoArcsDrawn:
		return "NoArcsDrawn"
	case ArcsDrawn:
		return "ArcsDrawn"
	default:
		return fmt.Sprintf("ArcState(%d)", int(s))
	}
}

// ArcLayers owns the arc source and its two styled layers. Each Replace
// tears the previous generation down completely before adding the next, so
// two generations never coexist.
type ArcLayers struct {
	mu         sync.Mutex
	state      ArcState
	generation int
	beneath    string
}

// NewArcLayers returns a lifecycle that keeps arcs beneath the airport layer.
func NewArcLayers() *ArcLayers {
	return &ArcLayers{beneath: LayerAirports}
}

// State returns the lifecycle state and the generation currently drawn.
func (a *ArcLayers) State() (ArcState, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.generation
}

// Replace swaps the drawn arcs for fc and returns the new generation number.
// On error the state is NoArcsDrawn and the sink may hold a partial
// generation, which the next Replace or Clear removes.
func (a *ArcLayers) Replace(s Sink, fc *geojson.FeatureCollection) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.teardown(s); err != nil {
		return 0, err
	}

	if err := s.AddSource(SourceArcs, fc); err != nil {
		return 0, fmt.Errorf("failed to add arc source: %w", err)
	}
	for _, l := range []Layer{DirectArcLayer(), PartnerArcLayer()} {
		if err := s.AddLayer(l); err != nil {
			return 0, fmt.Errorf("failed to add arc layer: %w", err)
		}
		if s.HasLayer(a.beneath) {
			if err := s.MoveLayer(l.ID, a.beneath); err != nil {
				return 0, fmt.Errorf("failed to order arc layer: %w", err)
			}
		}
	}

	a.generation++
	a.state = ArcsDrawn
	return a.generation, nil
}

// Clear removes any drawn arcs. Clearing when nothing is drawn is a no-op.
func (a *ArcLayers) Clear(s Sink) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.teardown(s)
}

// teardown removes layers before the source they reference. Absent
// resources are skipped. Callers hold the lock.
func (a *ArcLayers) teardown(s Sink) error {
	a.state = NoArcsDrawn
	if err := RemoveLayerIfPresent(s, LayerArcs); err != nil {
		return fmt.Errorf("failed to remove arc layer: %w", err)
	}
	if err := RemoveLayerIfPresent(s, LayerPartnerArcs); err != nil {
		return fmt.Errorf("failed to remove partner arc layer: %w", err)
	}
	if err := RemoveSourceIfPresent(s, SourceArcs); err != nil {
		return fmt.Errorf("failed to remove arc source: %w", err)
	}
	return nil
}
