package coordinates

import "math"

// DefaultPathPoints is the number of vertices used to tessellate a great-circle
// path when the caller does not ask for a specific resolution.
const DefaultPathPoints = 100

// GreatCirclePath tessellates the great circle between two points into npoints
// vertices, both endpoints included. The result follows the sphere, not the
// straight chord in longitude/latitude space, so long legs render as arcs.
//
// Longitudes fall in (-180, 180]; use SplitAntimeridian before
// drawing paths that cross the dateline.
func GreatCirclePath(from, to Geographic, npoints int) ([]Geographic, error) {
	if err := Validate(from); err != nil {
		return nil, err
	}
	if err := Validate(to); err != nil {
		return nil, err
	}
	if npoints < 2 {
		npoints = 2
	}

	d := centralAngle(from, to)
	if d == 0 {
		path := make([]Geographic, npoints)
		for i := range path {
			path[i] = Geographic{Latitude: from.Latitude, Longitude: from.Longitude}
		}
		return path, nil
	}
	if math.Abs(math.Sin(d)) < 1e-12 {
		return nil, ErrAntipodal
	}

	lat1, lon1, _ := from.ToRadians()
	lat2, lon2, _ := to.ToRadians()

	path := make([]Geographic, 0, npoints)
	for i := 0; i < npoints; i++ {
		f := float64(i) / float64(npoints-1)

		// Spherical linear interpolation between the two unit vectors
		a := math.Sin((1-f)*d) / math.Sin(d)
		b := math.Sin(f*d) / math.Sin(d)

		x := a*math.Cos(lat1)*math.Cos(lon1) + b*math.Cos(lat2)*math.Cos(lon2)
		y := a*math.Cos(lat1)*math.Sin(lon1) + b*math.Cos(lat2)*math.Sin(lon2)
		z := a*math.Sin(lat1) + b*math.Sin(lat2)

		lat := math.Atan2(z, math.Sqrt(x*x+y*y))
		lon := math.Atan2(y, x)

		path = append(path, Geographic{
			Latitude:  lat * RadiansToDegrees,
			Longitude: lon * RadiansToDegrees,
		})
	}

	// Pin the endpoints so callers can rely on exact equality with the inputs.
	path[0] = Geographic{Latitude: from.Latitude, Longitude: from.Longitude}
	path[len(path)-1] = Geographic{Latitude: to.Latitude, Longitude: to.Longitude}

	return path, nil
}

// SplitAntimeridian breaks a path into segments wherever consecutive vertices
// jump more than 180° in longitude. Each break gets an interpolated vertex on
// the ±180 meridian at both sides so segments meet the map edge.
func SplitAntimeridian(path []Geographic) [][]Geographic {
	if len(path) == 0 {
		return nil
	}

	segments := [][]Geographic{}
	current := []Geographic{path[0]}

	for i := 1; i < len(path); i++ {
		prev := path[i-1]
		next := path[i]
		dLon := next.Longitude - prev.Longitude

		if math.Abs(dLon) <= 180 {
			current = append(current, next)
			continue
		}

		// Unwrap next so the segment is continuous, then find where it meets the edge
		edge := 180.0
		unwrapped := next.Longitude - 360
		if dLon < 0 {
			unwrapped = next.Longitude + 360
		} else {
			edge = -180.0
		}

		f := (edge - prev.Longitude) / (unwrapped - prev.Longitude)
		crossLat := prev.Latitude + f*(next.Latitude-prev.Latitude)

		current = append(current, Geographic{Latitude: crossLat, Longitude: edge})
		segments = append(segments, current)
		current = []Geographic{{Latitude: crossLat, Longitude: -edge}, next}
	}

	return append(segments, current)
}
