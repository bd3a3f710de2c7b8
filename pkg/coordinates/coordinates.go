// Package coordinates provides the geodesy used by the route generator and the
// arc renderer: validation of longitude/latitude pairs, great-circle distance,
// bearings, and tessellated great-circle paths.
package coordinates

import (
	"errors"
	"fmt"
	"math"
)

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusKm is the mean Earth radius in kilometers.
	// Matches the radius used by common web-mapping toolkits so distances
	// line up with what the map displays.
	EarthRadiusKm = 6371.0088

	// KmPerNauticalMile converts nautical miles to kilometers
	KmPerNauticalMile = 1.852
)

// ErrInvalidCoordinate is returned (wrapped in an *InvalidCoordinateError) when a
// longitude or latitude is outside its valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ErrAntipodal is returned when a great-circle path is requested between two
// antipodal points, for which the path is not unique.
var ErrAntipodal = errors.New("points are antipodal")

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// LonLat builds a Geographic from a GeoJSON-ordered pair.
func LonLat(lon, lat float64) Geographic {
	return Geographic{Latitude: lat, Longitude: lon}
}

// InvalidCoordinateError describes which component of a position is out of range.
type InvalidCoordinateError struct {
	Field string // "latitude" or "longitude"
	Value float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("%s %v out of range", e.Field, e.Value)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidCoordinate).
func (e *InvalidCoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

// Validate checks that longitude is within [-180, 180] and latitude within [-90, 90].
// Out-of-range values are rejected rather than clamped.
func Validate(g Geographic) error {
	if math.IsNaN(g.Longitude) || g.Longitude < -180 || g.Longitude > 180 {
		return &InvalidCoordinateError{Field: "longitude", Value: g.Longitude}
	}
	if math.IsNaN(g.Latitude) || g.Latitude < -90 || g.Latitude > 90 {
		return &InvalidCoordinateError{Field: "latitude", Value: g.Latitude}
	}
	return nil
}

// Equal reports whether two positions share the same longitude and latitude.
// Altitude is ignored.
func (g Geographic) Equal(other Geographic) bool {
	return g.Latitude == other.Latitude && g.Longitude == other.Longitude
}

// ToRadians converts the Geographic coordinates to radians.
// Returns (latRad, lonRad, altMeters).
func (g Geographic) ToRadians() (float64, float64, float64) {
	return g.Latitude * DegreesToRadians,
		g.Longitude * DegreesToRadians,
		g.Altitude
}

// NormalizeLongitude wraps a longitude into the range [-180, 180).
func NormalizeLongitude(lon float64) float64 {
	l := math.Mod(lon+180.0, 360.0)
	if l < 0 {
		l += 360.0
	}
	return l - 180.0
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another.
// Uses spherical trigonometry to calculate the bearing along a great circle.
// Returns bearing in degrees (0-360), where 0/360 = North, 90 = East, 180 = South, 270 = West.
func Bearing(from, to Geographic) float64 {
	lat1 := from.Latitude * DegreesToRadians
	lon1 := from.Longitude * DegreesToRadians
	lat2 := to.Latitude * DegreesToRadians
	lon2 := to.Longitude * DegreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	// Normalize to 0-360
	if bearing < 0 {
		bearing += 360
	}

	return bearing
}

// centralAngle returns the angle in radians subtended at Earth's center by two points.
// Uses the Haversine formula for accuracy over short and long distances.
func centralAngle(from, to Geographic) float64 {
	lat1Rad := from.Latitude * DegreesToRadians
	lon1Rad := from.Longitude * DegreesToRadians
	lat2Rad := to.Latitude * DegreesToRadians
	lon2Rad := to.Longitude * DegreesToRadians

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceKm calculates the great-circle distance between two points in kilometers.
// Both points are validated first; an out-of-range coordinate yields an error
// matching ErrInvalidCoordinate.
func DistanceKm(from, to Geographic) (float64, error) {
	if err := Validate(from); err != nil {
		return 0, err
	}
	if err := Validate(to); err != nil {
		return 0, err
	}
	return EarthRadiusKm * centralAngle(from, to), nil
}

// DistanceNauticalMiles calculates the great-circle distance between two points.
// Returns distance in nautical miles. Inputs are not validated; use DistanceKm
// when the positions come from untrusted data.
func DistanceNauticalMiles(from, to Geographic) float64 {
	return EarthRadiusKm * centralAngle(from, to) / KmPerNauticalMile
}

// Destination returns the point reached by travelling distanceKm from start along
// the great circle with the given initial bearing (degrees).
func Destination(start Geographic, bearingDeg, distanceKm float64) Geographic {
	lat1 := start.Latitude * DegreesToRadians
	lon1 := start.Longitude * DegreesToRadians
	brng := bearingDeg * DegreesToRadians
	delta := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Geographic{
		Latitude:  lat2 * RadiansToDegrees,
		Longitude: NormalizeLongitude(lon2 * RadiansToDegrees),
	}
}
