// Package termmap projects map sink state onto a grid of terminal cells.
//
// The projection is equirectangular, centered on the camera and wrapped at
// the antimeridian. Terminal cells are about twice as tall as they are wide,
// so a row spans CellAspect times the degrees of a column.
package termmap

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/unklstewy/flightarcs/pkg/mapsink"
)

const (
	// CellAspect is the height:width ratio of a terminal cell
	CellAspect = 2.0

	// PixelsPerColumn and PixelsPerRow convert pixel padding to cells
	PixelsPerColumn = 8
	PixelsPerRow    = 16

	// minDegPerCol stops FitBounds from zooming in without limit on a single point
	minDegPerCol = 0.05
)

// Viewport maps longitude/latitude to cell coordinates.
type Viewport struct {
	Width, Height int
	Center        orb.Point // lon, lat
	DegPerCol     float64
}

// NewViewport centers a width x height grid on center at the given zoom.
// Zoom 0 fits all 360 degrees of longitude across the width; each level halves the span.
func NewViewport(width, height int, center orb.Point, zoom float64) Viewport {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return Viewport{
		Width:     width,
		Height:    height,
		Center:    center,
		DegPerCol: 360 / (float64(width) * math.Pow(2, zoom)),
	}
}

// FitViewport frames b inside the grid, leaving padding pixels on each side.
// Padding is capped at a quarter of each dimension.
func FitViewport(width, height int, b orb.Bound, padding int) Viewport {
	v := NewViewport(width, height, b.Center(), 0)

	padX := min(padding/PixelsPerColumn, v.Width/4)
	padY := min(padding/PixelsPerRow, v.Height/4)
	usableW := float64(max(v.Width-2*padX, 1))
	usableH := float64(max(v.Height-2*padY, 1))

	spanLon := b.Max[0] - b.Min[0]
	spanLat := b.Max[1] - b.Min[1]

	v.DegPerCol = math.Max(spanLon/usableW, spanLat/(usableH*CellAspect))
	if v.DegPerCol < minDegPerCol {
		v.DegPerCol = minDegPerCol
	}
	return v
}

// FromCamera builds the viewport a sink camera describes.
// A camera with fitted bounds takes precedence over center and zoom.
func FromCamera(c mapsink.Camera, width, height int) Viewport {
	if c.Bounds != (orb.Bound{}) {
		return FitViewport(width, height, c.Bounds, c.Padding)
	}
	return NewViewport(width, height, orb.Point{c.Center.Longitude, c.Center.Latitude}, c.Zoom)
}

// DegPerRow is the latitude span of one row.
func (v Viewport) DegPerRow() float64 {
	return v.DegPerCol * CellAspect
}

// Project returns the fractional cell position of p.
// Longitude is wrapped so the point lands on the side nearest the center.
func (v Viewport) Project(p orb.Point) (float64, float64) {
	dLon := math.Mod(p[0]-v.Center[0]+540, 360) - 180
	dLat := p[1] - v.Center[1]
	x := float64(v.Width)/2 + dLon/v.DegPerCol
	y := float64(v.Height)/2 - dLat/v.DegPerRow()
	return x, y
}

// Cell returns the integer cell of p and whether it is on screen.
func (v Viewport) Cell(p orb.Point) (int, int, bool) {
	fx, fy := v.Project(p)
	x, y := int(math.Floor(fx)), int(math.Floor(fy))
	return x, y, v.Contains(x, y)
}

// Contains reports whether the cell is inside the grid.
func (v Viewport) Contains(x, y int) bool {
	return x >= 0 && x < v.Width && y >= 0 && y < v.Height
}

// Unproject returns the coordinate at the center of a cell.
func (v Viewport) Unproject(x, y int) orb.Point {
	lon := v.Center[0] + (float64(x)+0.5-float64(v.Width)/2)*v.DegPerCol
	lat := v.Center[1] - (float64(y)+0.5-float64(v.Height)/2)*v.DegPerRow()
	lon = math.Mod(lon+540, 360) - 180
	return orb.Point{lon, math.Max(-90, math.Min(90, lat))}
}

// Zoomed returns the viewport scaled by 2^delta around its center.
func (v Viewport) Zoomed(delta float64) Viewport {
	v.DegPerCol /= math.Pow(2, delta)
	if v.DegPerCol < minDegPerCol {
		v.DegPerCol = minDegPerCol
	}
	return v
}

// Panned returns the viewport moved by dx columns and dy rows.
func (v Viewport) Panned(dx, dy int) Viewport {
	lon := v.Center[0] + float64(dx)*v.DegPerCol
	lat := v.Center[1] - float64(dy)*v.DegPerRow()
	v.Center = orb.Point{math.Mod(lon+540, 360) - 180, math.Max(-90, math.Min(90, lat))}
	return v
}
