package termmap

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/pkg/mapsink"
)

// Glyphs and colors used by Render.
const (
	GraticuleRune  = '·'
	AirportRune    = '•'
	HubRune        = '▲'
	MarkerRune     = '◉'
	GraticuleColor = "#3A3A3A"
	HubColor       = "#C8102E"
	LineColor      = "#D0D0D0"

	// GraticuleStep is the spacing of the background grid in degrees
	GraticuleStep = 30
)

// Source is the read side of a map sink that Render draws from.
// *mapsink.Memory satisfies it.
type Source interface {
	Camera() mapsink.Camera
	Layers() []mapsink.Layer
	RenderedFeatures(layerID string) []*geojson.Feature
	Markers() []mapsink.Marker
}

// Visible maps colors that vanish on a dark terminal to a light gray.
func Visible(color string) string {
	switch strings.ToLower(color) {
	case "", "black", "#000", "#000000":
		return LineColor
	}
	return color
}

// Render draws the graticule, every layer bottom to top, then the markers.
func Render(src Source, width, height int) (*Canvas, Viewport) {
	v := FromCamera(src.Camera(), width, height)
	return RenderView(src, v), v
}

// RenderView draws src through an explicit viewport, e.g. after the user pans.
func RenderView(src Source, v Viewport) *Canvas {
	c := NewCanvas(v.Width, v.Height)
	drawGraticule(c, v)

	for _, l := range src.Layers() {
		features := src.RenderedFeatures(l.ID)
		switch l.Kind {
		case mapsink.KindLine:
			drawLines(c, v, l.Style, features)
		case mapsink.KindCircle:
			drawPoints(c, v, features, AirportRune, l.Style.Color)
		case mapsink.KindSymbol:
			drawPoints(c, v, features, HubRune, HubColor)
		}
	}

	for _, m := range src.Markers() {
		x, y, ok := v.Cell(orb.Point{m.Position.Longitude, m.Position.Latitude})
		if !ok {
			continue
		}
		c.Set(x, y, MarkerRune, m.Background)
		if m.Label != "" {
			c.Text(x+2, y, m.Label, m.Background)
		}
	}
	return c
}

func drawGraticule(c *Canvas, v Viewport) {
	for y := 0; y < v.Height; y++ {
		for x := 0; x < v.Width; x++ {
			p := v.Unproject(x, y)
			halfLon := v.DegPerCol / 2
			halfLat := v.DegPerRow() / 2
			if nearMultiple(p[0], GraticuleStep, halfLon) || nearMultiple(p[1], GraticuleStep, halfLat) {
				c.Set(x, y, GraticuleRune, GraticuleColor)
			}
		}
	}
}

func nearMultiple(value, step, tolerance float64) bool {
	r := math.Mod(math.Abs(value), step)
	return r <= tolerance || step-r < tolerance
}

// dashCells converts a dash pattern in line widths to cells.
func dashCells(s mapsink.Style) []int {
	if !s.Dashed() || len(s.Dash) < 2 {
		return nil
	}
	on := max(int(math.Round(s.Dash[0]/2)), 1)
	off := max(int(math.Round(s.Dash[1]/2)), 1)
	return []int{on, off}
}

func drawLines(c *Canvas, v Viewport, style mapsink.Style, features []*geojson.Feature) {
	color := Visible(style.Color)
	dash := dashCells(style)

	for _, f := range features {
		step := 0
		switch g := f.Geometry.(type) {
		case orb.LineString:
			drawLineString(c, v, g, color, dash, &step)
		case orb.MultiLineString:
			for _, ls := range g {
				drawLineString(c, v, ls, color, dash, &step)
			}
		}
	}
}

func drawLineString(c *Canvas, v Viewport, ls orb.LineString, color string, dash []int, step *int) {
	// a segment wider than half the world crosses the wrap seam
	seam := 180 / v.DegPerCol
	for i := 1; i < len(ls); i++ {
		x0, y0 := v.Project(ls[i-1])
		x1, y1 := v.Project(ls[i])
		if math.Abs(x1-x0) > seam {
			continue
		}
		c.Line(x0, y0, x1, y1, color, dash, step)
	}
}

func drawPoints(c *Canvas, v Viewport, features []*geojson.Feature, r rune, color string) {
	for _, f := range features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		if x, y, on := v.Cell(p); on {
			c.Set(x, y, r, color)
		}
	}
}

// Pick returns the point feature drawn closest to cell (x, y), within
// radius cells. Distances count rows as CellAspect columns.
func Pick(v Viewport, features []*geojson.Feature, x, y int, radius float64) *geojson.Feature {
	var best *geojson.Feature
	bestDist := math.Inf(1)
	for _, f := range features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		fx, fy := v.Project(p)
		dx := math.Floor(fx) - float64(x)
		dy := (math.Floor(fy) - float64(y)) * CellAspect
		d := math.Hypot(dx, dy)
		if d <= radius && d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}

// PickLayers searches layers top to bottom and returns the first hit with its layer ID.
func PickLayers(src Source, v Viewport, x, y int, radius float64, layerIDs ...string) (string, *geojson.Feature) {
	for i := len(layerIDs) - 1; i >= 0; i-- {
		if f := Pick(v, src.RenderedFeatures(layerIDs[i]), x, y, radius); f != nil {
			return layerIDs[i], f
		}
	}
	return "", nil
}
