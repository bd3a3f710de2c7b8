package airports

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb/geojson"
)

// ErrUnknownAirport is returned by Lookup when no airport matches a code.
var ErrUnknownAirport = errors.New("unknown airport")

//go:embed data/airports.geojson
var embeddedGeoJSON []byte

// Catalog is the read-only airport pool, in dataset order.
// It is safe for concurrent reads once built.
type Catalog struct {
	airports []Airport
}

// NewCatalog builds a catalog from already-decoded airports.
func NewCatalog(list []Airport) *Catalog {
	c := &Catalog{airports: make([]Airport, len(list))}
	copy(c.airports, list)
	return c
}

// Parse decodes a GeoJSON FeatureCollection of airport points.
// Features that are not points are skipped; invalid coordinates fail the whole load.
func Parse(data []byte) (*Catalog, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse airport GeoJSON: %w", err)
	}

	list := make([]Airport, 0, len(fc.Features))
	for i, f := range fc.Features {
		a, err := FromFeature(f)
		if errors.Is(err, ErrNotPoint) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		list = append(list, a)
	}

	return &Catalog{airports: list}, nil
}

// LoadFile reads a catalog from a GeoJSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read airport file: %w", err)
	}
	return Parse(data)
}

// Embedded returns the catalog bundled with the binary.
func Embedded() (*Catalog, error) {
	return Parse(embeddedGeoJSON)
}

// Len returns the number of airports.
func (c *Catalog) Len() int {
	return len(c.airports)
}

// All returns a copy of every airport in dataset order.
func (c *Catalog) All() []Airport {
	out := make([]Airport, len(c.airports))
	copy(out, c.airports)
	return out
}

// Lookup finds an airport by IATA, ICAO, GPS, local code or ident.
// IATA matches take precedence over the other code kinds.
func (c *Catalog) Lookup(code string) (Airport, error) {
	for _, a := range c.airports {
		if a.IATACode != "" && equalCode(a.IATACode, code) {
			return a, nil
		}
	}
	for _, a := range c.airports {
		if a.Matches(code) {
			return a, nil
		}
	}
	return Airport{}, fmt.Errorf("%w: %q", ErrUnknownAirport, code)
}

// ByID finds an airport by its dataset ID.
func (c *Catalog) ByID(id int64) (Airport, bool) {
	for _, a := range c.airports {
		if a.ID == id {
			return a, true
		}
	}
	return Airport{}, false
}

// Hubs returns the hub airports in dataset order.
func (c *Catalog) Hubs() []Airport {
	var hubs []Airport
	for _, a := range c.airports {
		if a.Hub {
			hubs = append(hubs, a)
		}
	}
	return hubs
}

// TopByScore returns up to n airports ordered by descending popularity score.
func (c *Catalog) TopByScore(n int) []Airport {
	sorted := c.All()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// FeatureCollection encodes the catalog for the map's "airports" source.
func (c *Catalog) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, a := range c.airports {
		fc.Append(a.Feature())
	}
	return fc
}

func equalCode(a, b string) bool {
	return (Airport{IATACode: a}).Matches(b)
}
