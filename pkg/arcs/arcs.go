// Package arcs turns generated routes into tagged great-circle line features
// ready for a map source.
package arcs

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/pkg/coordinates"
	"github.com/unklstewy/flightarcs/pkg/routing"
)

// PartnerProperty is the feature property the map layers filter on.
const PartnerProperty = "partnerAirline"

// DefaultPartnerProbability is the chance a leg is flown by a partner airline.
const DefaultPartnerProbability = 0.3

// Arc is one rendered leg.
type Arc struct {
	Leg            routing.Leg
	PartnerAirline bool

	// Route is the index of the originating route in the input slice
	Route int

	// Geometry is an orb.LineString, or an orb.MultiLineString when the
	// path crosses the antimeridian
	Geometry orb.Geometry
}

// Feature encodes the arc as a GeoJSON line feature.
func (a Arc) Feature() *geojson.Feature {
	f := geojson.NewFeature(a.Geometry)
	f.Properties[PartnerProperty] = a.PartnerAirline
	f.Properties["from"] = a.Leg.From.Code()
	f.Properties["to"] = a.Leg.To.Code()
	f.Properties["route"] = a.Route
	return f
}

// Builder tags legs and computes their geometry.
type Builder struct {
	// PartnerProbability is the chance each leg is tagged partner
	PartnerProbability float64

	// Points is the number of vertices per arc
	Points int
}

// NewBuilder returns a builder with the default partner probability and resolution.
func NewBuilder() *Builder {
	return &Builder{
		PartnerProbability: DefaultPartnerProbability,
		Points:             coordinates.DefaultPathPoints,
	}
}

// Build walks every leg of every route in order. Each leg draws one value
// from rng for its partner flag before its geometry is computed.
func (b *Builder) Build(routes []routing.Route, rng routing.RandomSource) ([]Arc, error) {
	var arcs []Arc
	for i, r := range routes {
		for _, leg := range r.Legs() {
			partner := rng.Float64() < b.PartnerProbability

			geom, err := Geometry(leg.From.Position, leg.To.Position, b.Points)
			if err != nil {
				return nil, fmt.Errorf("failed to build arc %s: %w", leg, err)
			}

			arcs = append(arcs, Arc{
				Leg:            leg,
				PartnerAirline: partner,
				Route:          i,
				Geometry:       geom,
			})
		}
	}
	return arcs, nil
}

// Geometry tessellates the great circle between two points, splitting it at
// the antimeridian when needed.
func Geometry(from, to coordinates.Geographic, npoints int) (orb.Geometry, error) {
	path, err := coordinates.GreatCirclePath(from, to, npoints)
	if err != nil {
		return nil, err
	}

	segments := coordinates.SplitAntimeridian(path)
	if len(segments) == 1 {
		return toLineString(segments[0]), nil
	}

	mls := make(orb.MultiLineString, 0, len(segments))
	for _, s := range segments {
		mls = append(mls, toLineString(s))
	}
	return mls, nil
}

func toLineString(path []coordinates.Geographic) orb.LineString {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return ls
}

// FeatureCollection flattens arcs into one collection in build order.
func FeatureCollection(arcs []Arc) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, a := range arcs {
		fc.Append(a.Feature())
	}
	return fc
}

// Split separates direct-styled arcs from partner-styled arcs.
func Split(arcs []Arc) (direct, partner []Arc) {
	for _, a := range arcs {
		if a.PartnerAirline {
			partner = append(partner, a)
		} else {
			direct = append(direct, a)
		}
	}
	return direct, partner
}
