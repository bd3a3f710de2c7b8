package main

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/rivo/tview"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
	"github.com/unklstewy/flightarcs/pkg/termmap"
)

// pickRadius is how far from an airport glyph a click still hits it, in columns
const pickRadius = 1.5

// panStep is the number of cells moved per arrow key
const panStep = 4

// MapView is a custom tview primitive that renders the map sink with tcell
type MapView struct {
	*tview.Box
	app *App

	// view follows the sink camera plus manual pan/zoom
	view termmap.Follower

	// hover is the layer and airport under the pointer
	mu         sync.Mutex
	hoverLayer string
	hoverIdent string
	hoverText  string
}

// NewMapView creates a new map view
func NewMapView(app *App) *MapView {
	mv := &MapView{
		Box: tview.NewBox(),
		app: app,
	}
	mv.SetBorder(true).SetTitle(" Route Map ")
	return mv
}

// Draw renders the map using tcell
func (mv *MapView) Draw(screen tcell.Screen) {
	mv.Box.DrawForSubclass(screen, mv)

	x, y, width, height := mv.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	v := mv.view.Viewport(mv.app.sink.Camera(), width, height)
	canvas := termmap.RenderView(mv.app.sink, v)

	for row := 0; row < canvas.Height; row++ {
		for col, cell := range canvas.Row(row) {
			style := tcell.StyleDefault
			if cell.Color != "" {
				style = style.Foreground(tcell.GetColor(termmap.Visible(cell.Color)))
			}
			screen.SetContent(x+col, y+row, cell.Rune, nil, style)
		}
	}

	// Pointer cursor has no terminal equivalent; show the hovered airport instead
	if mv.app.sink.Cursor() == mapsink.CursorPointer {
		mv.mu.Lock()
		text := mv.hoverText
		mv.mu.Unlock()
		tview.Print(screen, fmt.Sprintf(" ▶ %s ", tview.Escape(text)), x, y+height-1, width, tview.AlignRight, tcell.ColorYellow)
	}
}

// InputHandler pans with the arrow keys and zooms with +/-.
func (mv *MapView) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return mv.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		switch event.Key() {
		case tcell.KeyUp:
			mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(0, -panStep) })
		case tcell.KeyDown:
			mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(0, panStep) })
		case tcell.KeyLeft:
			mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(-panStep*2, 0) })
		case tcell.KeyRight:
			mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(panStep*2, 0) })
		case tcell.KeyRune:
			switch event.Rune() {
			case '+', '=':
				mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Zoomed(1) })
			case '-':
				mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Zoomed(-1) })
			case '0':
				mv.view.Reset()
			}
		}
	})
}

// MouseHandler turns pointer movement and clicks into map events.
func (mv *MapView) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return mv.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		mx, my := event.Position()
		if !mv.InInnerRect(mx, my) {
			mv.hover("", nil)
			return false, nil
		}
		x, y, _, _ := mv.GetInnerRect()
		cx, cy := mx-x, my-y

		switch action {
		case tview.MouseMove:
			layer, f := mv.pick(cx, cy)
			mv.hover(layer, f)
			return true, nil
		case tview.MouseLeftClick:
			setFocus(mv)
			if layer, f := mv.pick(cx, cy); f != nil {
				// Handlers take the session lock; keep the event loop free
				go mv.app.sink.Emit(mapsink.EventMouseDown, layer, f)
			}
			return true, nil
		case tview.MouseScrollUp:
			mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Zoomed(1) })
			mv.app.requestDraw()
			return true, nil
		case tview.MouseScrollDown:
			mv.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Zoomed(-1) })
			mv.app.requestDraw()
			return true, nil
		}
		return false, nil
	})
}

func (mv *MapView) pick(cx, cy int) (string, *geojson.Feature) {
	return termmap.PickLayers(mv.app.sink, mv.view.Last(), cx, cy, pickRadius, mapsink.LayerAirports, mapsink.LayerHubs)
}

// hover emits mouseleave for the previous airport and mouseenter for the new one.
func (mv *MapView) hover(layer string, f *geojson.Feature) {
	ident, text := "", ""
	if f != nil {
		if a, err := airports.FromFeature(f); err == nil {
			ident, text = a.Ident, a.String()
		}
	}

	mv.mu.Lock()
	prevLayer, prevIdent := mv.hoverLayer, mv.hoverIdent
	mv.hoverLayer, mv.hoverIdent, mv.hoverText = layer, ident, text
	mv.mu.Unlock()

	if prevLayer == layer && prevIdent == ident {
		return
	}
	if prevLayer != "" {
		mv.app.sink.Emit(mapsink.EventMouseLeave, prevLayer, nil)
	}
	if layer != "" {
		mv.app.sink.Emit(mapsink.EventMouseEnter, layer, f)
	}
}
