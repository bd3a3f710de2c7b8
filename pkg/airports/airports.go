// Package airports holds the read-only airport reference data: the Airport
// record, GeoJSON decoding/encoding, and the Catalog used as the waypoint pool.
package airports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/pkg/coordinates"
)

// ErrNotPoint is returned when a feature's geometry is not a GeoJSON Point.
var ErrNotPoint = errors.New("airport feature geometry is not a point")

// Airport is a single airport point feature.
// Values are immutable reference data; the catalog hands out copies.
type Airport struct {
	ID               int64
	Ident            string
	Type             string // large_airport, medium_airport, ...
	Name             string
	ElevationFt      float64
	Continent        string
	CountryName      string
	ISOCountry       string
	RegionName       string
	ISORegion        string
	LocalRegion      string
	Municipality     string
	ScheduledService bool

	// Identifier codes
	GPSCode   string
	ICAOCode  string
	IATACode  string
	LocalCode string

	HomeLink      string
	WikipediaLink string
	Keywords      string

	// Score is the popularity score from the dataset
	Score int64

	// Hub marks airports drawn with the hub icon
	Hub bool

	LastUpdated time.Time

	// Position holds longitude/latitude; Altitude is unused
	Position coordinates.Geographic
}

// Code returns the most recognizable identifier: IATA, then ICAO, then the dataset ident.
func (a Airport) Code() string {
	switch {
	case a.IATACode != "":
		return a.IATACode
	case a.ICAOCode != "":
		return a.ICAOCode
	default:
		return a.Ident
	}
}

// Same reports whether two records refer to the same airport: same dataset ID,
// same ident, or the same coordinates.
func (a Airport) Same(other Airport) bool {
	if a.ID != 0 && a.ID == other.ID {
		return true
	}
	if a.Ident != "" && a.Ident == other.Ident {
		return true
	}
	return a.Position.Equal(other.Position)
}

// Matches reports whether code equals one of the airport's identifiers (case-insensitive).
func (a Airport) Matches(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, c := range []string{a.IATACode, a.ICAOCode, a.GPSCode, a.LocalCode, a.Ident} {
		if c != "" && strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Label is the popup headline, e.g. "Atlanta, United States".
func (a Airport) Label() string {
	switch {
	case a.Municipality != "" && a.CountryName != "":
		return a.Municipality + ", " + a.CountryName
	case a.Municipality != "":
		return a.Municipality
	default:
		return a.CountryName
	}
}

func (a Airport) String() string {
	return fmt.Sprintf("%s (%s)", a.Code(), a.Name)
}

// FromFeature decodes an airport from a GeoJSON point feature using the
// OurAirports property names.
func FromFeature(f *geojson.Feature) (Airport, error) {
	if f == nil {
		return Airport{}, errors.New("nil feature")
	}
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return Airport{}, ErrNotPoint
	}

	pos := coordinates.LonLat(pt.Lon(), pt.Lat())
	if err := coordinates.Validate(pos); err != nil {
		return Airport{}, fmt.Errorf("airport %v: %w", f.Properties["ident"], err)
	}

	p := f.Properties
	a := Airport{
		ID:               int64(number(p, "id")),
		Ident:            text(p, "ident"),
		Type:             text(p, "type"),
		Name:             text(p, "name"),
		ElevationFt:      number(p, "elevation_ft"),
		Continent:        text(p, "continent"),
		CountryName:      text(p, "country_name"),
		ISOCountry:       text(p, "iso_country"),
		RegionName:       text(p, "region_name"),
		ISORegion:        text(p, "iso_region"),
		LocalRegion:      text(p, "local_region"),
		Municipality:     text(p, "municipality"),
		ScheduledService: flag(p, "scheduled_service"),
		GPSCode:          text(p, "gps_code"),
		ICAOCode:         text(p, "icao_code"),
		IATACode:         text(p, "iata_code"),
		LocalCode:        text(p, "local_code"),
		HomeLink:         text(p, "home_link"),
		WikipediaLink:    text(p, "wikipedia_link"),
		Keywords:         text(p, "keywords"),
		Score:            int64(number(p, "score")),
		Hub:              flag(p, "hub"),
		Position:         pos,
	}

	if ts := text(p, "last_updated"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			a.LastUpdated = t
		}
	}

	return a, nil
}

// Feature encodes the airport as a GeoJSON point feature.
// The "hub" property is only present for hubs so that map filters can test
// for its presence.
func (a Airport) Feature() *geojson.Feature {
	f := geojson.NewFeature(orb.Point{a.Position.Longitude, a.Position.Latitude})
	f.ID = a.ID
	f.Properties["id"] = a.ID
	f.Properties["ident"] = a.Ident
	f.Properties["type"] = a.Type
	f.Properties["name"] = a.Name
	f.Properties["elevation_ft"] = a.ElevationFt
	f.Properties["continent"] = a.Continent
	f.Properties["country_name"] = a.CountryName
	f.Properties["iso_country"] = a.ISOCountry
	f.Properties["region_name"] = a.RegionName
	f.Properties["iso_region"] = a.ISORegion
	f.Properties["local_region"] = a.LocalRegion
	f.Properties["municipality"] = a.Municipality
	f.Properties["scheduled_service"] = a.ScheduledService
	f.Properties["gps_code"] = a.GPSCode
	f.Properties["icao_code"] = a.ICAOCode
	f.Properties["iata_code"] = a.IATACode
	f.Properties["local_code"] = a.LocalCode
	f.Properties["home_link"] = a.HomeLink
	f.Properties["wikipedia_link"] = a.WikipediaLink
	f.Properties["keywords"] = a.Keywords
	f.Properties["score"] = a.Score
	if !a.LastUpdated.IsZero() {
		f.Properties["last_updated"] = a.LastUpdated.Format(time.RFC3339)
	}
	if a.Hub {
		f.Properties["hub"] = true
	}
	return f
}
