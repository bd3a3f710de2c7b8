// Package routing synthesizes plausible direct and one-stop flight routes
// between an origin and a destination airport.
package routing

import (
	"strings"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
)

// Route is an ordered sequence of two or three airports.
// The first is always the origin and the last the destination.
type Route struct {
	Airports []airports.Airport
}

// Direct builds the two-point route.
func Direct(origin, destination airports.Airport) Route {
	return Route{Airports: []airports.Airport{origin, destination}}
}

// Via builds the three-point route through waypoint.
func Via(origin, waypoint, destination airports.Airport) Route {
	return Route{Airports: []airports.Airport{origin, waypoint, destination}}
}

// Origin returns the first airport.
func (r Route) Origin() airports.Airport {
	return r.Airports[0]
}

// Destination returns the last airport.
func (r Route) Destination() airports.Airport {
	return r.Airports[len(r.Airports)-1]
}

// Waypoint returns the middle airport of a one-stop route.
func (r Route) Waypoint() (airports.Airport, bool) {
	if len(r.Airports) != 3 {
		return airports.Airport{}, false
	}
	return r.Airports[1], true
}

// IsDirect reports whether the route has no intermediate stop.
func (r Route) IsDirect() bool {
	return len(r.Airports) == 2
}

// Legs returns each consecutive pair of airports.
func (r Route) Legs() []Leg {
	if len(r.Airports) < 2 {
		return nil
	}
	legs := make([]Leg, 0, len(r.Airports)-1)
	for i := 1; i < len(r.Airports); i++ {
		legs = append(legs, Leg{From: r.Airports[i-1], To: r.Airports[i]})
	}
	return legs
}

// DistanceKm sums the great-circle length of every leg.
func (r Route) DistanceKm() (float64, error) {
	var total float64
	for _, leg := range r.Legs() {
		d, err := leg.DistanceKm()
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// String renders the route as "ATL-AMS-CDG".
func (r Route) String() string {
	codes := make([]string, len(r.Airports))
	for i, a := range r.Airports {
		codes[i] = a.Code()
	}
	return strings.Join(codes, "-")
}

// Leg is one point-to-point segment of a route.
type Leg struct {
	From airports.Airport
	To   airports.Airport
}

// DistanceKm returns the great-circle length of the leg.
func (l Leg) DistanceKm() (float64, error) {
	return coordinates.DistanceKm(l.From.Position, l.To.Position)
}

func (l Leg) String() string {
	return l.From.Code() + "-" + l.To.Code()
}
