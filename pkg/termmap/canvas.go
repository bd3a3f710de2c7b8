package termmap

import (
	"math"
	"strings"
)

// Cell is one terminal character with its foreground color.
// Color is a CSS color name or #RRGGBB hex string; empty uses the terminal default.
type Cell struct {
	Rune  rune
	Color string
}

// Canvas is a fixed grid of cells. Later writes overwrite earlier ones.
type Canvas struct {
	Width, Height int
	cells         []Cell
}

// NewCanvas creates a blank canvas.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{Width: width, Height: height, cells: make([]Cell, width*height)}
	c.Clear()
	return c
}

// Clear fills the canvas with spaces.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = Cell{Rune: ' '}
	}
}

// Set writes a cell; writes outside the canvas are ignored.
func (c *Canvas) Set(x, y int, r rune, color string) {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return
	}
	c.cells[y*c.Width+x] = Cell{Rune: r, Color: color}
}

// At returns the cell at x, y.
func (c *Canvas) At(x, y int) Cell {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return Cell{Rune: ' '}
	}
	return c.cells[y*c.Width+x]
}

// Text writes s left to right starting at x, y.
func (c *Canvas) Text(x, y int, s, color string) {
	for i, r := range []rune(s) {
		c.Set(x+i, y, r, color)
	}
}

// Row returns one row of cells.
func (c *Canvas) Row(y int) []Cell {
	if y < 0 || y >= c.Height {
		return nil
	}
	return c.cells[y*c.Width : (y+1)*c.Width]
}

// String renders the canvas without colors, one line per row.
func (c *Canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.Height; y++ {
		for _, cell := range c.Row(y) {
			b.WriteRune(cell.Rune)
		}
		if y < c.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// lineRune picks a box-drawing glyph for a segment's direction.
func lineRune(dx, dy float64) rune {
	if dx == 0 && dy == 0 {
		return '•'
	}
	angle := math.Atan2(-dy*CellAspect, dx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return '─'
	case angle < 67.5:
		return '╱'
	case angle < 112.5:
		return '│'
	default:
		return '╲'
	}
}

// Line draws from (x0, y0) to (x1, y1) with a DDA walk.
// dash is a [on, off] pattern in cells; nil draws a solid line.
// step carries the dash phase across consecutive segments.
func (c *Canvas) Line(x0, y0, x1, y1 float64, color string, dash []int, step *int) {
	r := lineRune(x1-x0, y1-y0)
	n := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if n == 0 {
		n = 1
	}

	if step == nil {
		step = new(int)
	}
	period := 0
	if len(dash) == 2 {
		period = dash[0] + dash[1]
	}

	lastX, lastY := math.MinInt, math.MinInt
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		x := int(math.Floor(x0 + (x1-x0)*t))
		y := int(math.Floor(y0 + (y1-y0)*t))
		if x == lastX && y == lastY {
			continue
		}
		lastX, lastY = x, y

		on := true
		if period > 0 {
			on = *step%period < dash[0]
			*step++
		}
		if on {
			c.Set(x, y, r, color)
		}
	}
}
