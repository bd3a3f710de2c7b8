package routing

import (
	"fmt"
	"math"
	"time"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
)

// Default generation parameters.
const (
	// DefaultDirectProbability is the chance the direct route is offered
	DefaultDirectProbability = 0.5

	// DefaultSampleProbability is the chance each pool airport is evaluated as a waypoint
	DefaultSampleProbability = 0.03

	// DefaultMaxLegKm bounds the short leg of an acceptable one-stop route
	DefaultMaxLegKm = 2000.0
)

// Config tunes route generation.
type Config struct {
	DirectProbability float64
	SampleProbability float64
	MaxLegKm          float64
}

// DefaultConfig returns the standard generation parameters.
func DefaultConfig() Config {
	return Config{
		DirectProbability: DefaultDirectProbability,
		SampleProbability: DefaultSampleProbability,
		MaxLegKm:          DefaultMaxLegKm,
	}
}

// Result is the outcome of one generation pass.
type Result struct {
	// Routes holds the direct route first (if drawn) then waypoint routes in pool order
	Routes []Route

	// Sampled counts pool airports evaluated as waypoints
	Sampled int

	// Rejected counts sampled waypoints that failed the distance rule
	Rejected int

	// Duration is the wall time spent generating
	Duration time.Duration
}

// HasDirect reports whether the direct route was included.
func (r Result) HasDirect() bool {
	return len(r.Routes) > 0 && r.Routes[0].IsDirect()
}

// Observer receives a summary of every generation pass.
type Observer interface {
	ObserveGeneration(Result)
}

// Generator produces candidate routes.
type Generator struct {
	cfg      Config
	observer Observer
}

// NewGenerator creates a generator with the given parameters.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// WithObserver attaches an observer notified after each successful pass.
func (g *Generator) WithObserver(o Observer) *Generator {
	g.observer = o
	return g
}

// Config returns the generator's parameters.
func (g *Generator) Config() Config {
	return g.cfg
}

// GenerateRoutes runs one pass with the default parameters.
func GenerateRoutes(origin, destination airports.Airport, pool []airports.Airport, rng RandomSource) ([]Route, error) {
	result, err := NewGenerator(DefaultConfig()).Generate(origin, destination, pool, rng)
	if err != nil {
		return nil, err
	}
	return result.Routes, nil
}

// Generate produces the direct route with probability DirectProbability, then
// walks the pool drawing one value per airport. A drawn airport that is neither
// endpoint becomes a waypoint when either of its legs is shorter than both
// MaxLegKm and the direct distance.
//
// Identical origin and destination yield an empty result without consuming
// randomness. Out-of-range coordinates fail with coordinates.ErrInvalidCoordinate.
func (g *Generator) Generate(origin, destination airports.Airport, pool []airports.Airport, rng RandomSource) (Result, error) {
	start := time.Now()

	if origin.Same(destination) {
		return Result{}, nil
	}

	total, err := coordinates.DistanceKm(origin.Position, destination.Position)
	if err != nil {
		return Result{}, fmt.Errorf("route %s-%s: %w", origin.Code(), destination.Code(), err)
	}
	limit := math.Min(g.cfg.MaxLegKm, total)

	var result Result

	if rng.Float64() < g.cfg.DirectProbability {
		result.Routes = append(result.Routes, Direct(origin, destination))
	}

	for _, m := range pool {
		if rng.Float64() >= g.cfg.SampleProbability {
			continue
		}
		if m.Same(origin) || m.Same(destination) {
			continue
		}
		result.Sampled++

		dStart, err := coordinates.DistanceKm(origin.Position, m.Position)
		if err != nil {
			return Result{}, fmt.Errorf("waypoint %s: %w", m.Code(), err)
		}
		dEnd, err := coordinates.DistanceKm(m.Position, destination.Position)
		if err != nil {
			return Result{}, fmt.Errorf("waypoint %s: %w", m.Code(), err)
		}

		if dStart < limit || dEnd < limit {
			result.Routes = append(result.Routes, Via(origin, m, destination))
		} else {
			result.Rejected++
		}
	}

	result.Duration = time.Since(start)
	if g.observer != nil {
		g.observer.ObserveGeneration(result)
	}
	return result, nil
}

// Accepts reports whether waypoint would pass the distance rule for the
// given endpoints. It does not consult randomness.
func (g *Generator) Accepts(origin, waypoint, destination airports.Airport) (bool, error) {
	total, err := coordinates.DistanceKm(origin.Position, destination.Position)
	if err != nil {
		return false, err
	}
	dStart, err := coordinates.DistanceKm(origin.Position, waypoint.Position)
	if err != nil {
		return false, err
	}
	dEnd, err := coordinates.DistanceKm(waypoint.Position, destination.Position)
	if err != nil {
		return false, err
	}
	limit := math.Min(g.cfg.MaxLegKm, total)
	return dStart < limit || dEnd < limit, nil
}
