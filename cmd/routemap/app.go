package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/internal/session"
	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/logger"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
)

// popupPage is the name of the airport card page
const popupPage = "popup"

// Popup buttons
const (
	buttonClose = "Close"
)

// App represents the main application
type App struct {
	ctx context.Context
	rt  *bootstrap.Runtime
	log logger.Logger

	// Map state
	sink    *mapsink.Memory
	session *session.Session

	// UI components
	tviewApp   *tview.Application
	pages      *tview.Pages
	mapView    *MapView
	search     *tview.InputField
	airports   *tview.List
	info       *tview.TextView
	controls   *tview.TextView
	logs       *LogManager
	rootLayout *tview.Flex
	focusOrder []tview.Primitive

	// popupShown is the popup currently on screen; UI goroutine only
	popupShown *mapsink.Popup

	// lastErr is shown in the info panel until the next commit
	mu      sync.Mutex
	lastErr error

	drawPending atomic.Bool
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, rt *bootstrap.Runtime, logs *LogManager) *App {
	app := &App{
		ctx:  ctx,
		rt:   rt,
		log:  rt.Logger.With("component", "routemap"),
		sink: mapsink.NewMemory(rt.InitialCamera()),
		logs: logs,
	}
	app.session = rt.NewSession(app.sink)

	app.setupUI()
	app.sink.OnChange(app.requestDraw)
	logs.SetUpdateFunc(app.requestDraw)
	return app
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication().EnableMouse(true)

	a.mapView = NewMapView(a)
	a.createSearch()
	a.createAirportList()
	a.createInfoPanel()
	a.createControlsPanel()
	a.createLayout()

	a.focusOrder = []tview.Primitive{a.mapView, a.airports, a.search}
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// createSearch creates the destination code entry
func (a *App) createSearch() {
	a.search = tview.NewInputField().
		SetLabel("Destination: ").
		SetFieldWidth(6).
		SetAcceptanceFunc(tview.InputFieldMaxLength(4))
	a.search.SetBorder(true).SetTitle(" Go To ")

	a.search.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		code := strings.ToUpper(strings.TrimSpace(a.search.GetText()))
		a.search.SetText("")
		if code == "" {
			return
		}
		go a.commit(func() (session.Outcome, error) { return a.session.SelectCode(code) })
		a.tviewApp.SetFocus(a.mapView)
	})
}

// createAirportList creates the airport picker
func (a *App) createAirportList() {
	a.airports = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.airports.SetBorder(true).SetTitle(" Airports ")

	for _, ap := range a.rt.Catalog.All() {
		line := fmt.Sprintf("%-4s %s", ap.Code(), tview.Escape(ap.Label()))
		if ap.Hub {
			line = "[red]▲[-] " + line
		} else {
			line = "  " + line
		}
		a.airports.AddItem(line, "", 0, func() {
			// Same path as clicking the airport on the map
			go a.session.Inspect(ap)
		})
	}
}

// createInfoPanel creates the selection and route panel
func (a *App) createInfoPanel() {
	a.info = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	a.info.SetBorder(true).SetTitle(" Routes ")
	a.updateInfo()
}

// createControlsPanel creates the controls/shortcuts panel
func (a *App) createControlsPanel() {
	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.controls.SetBorder(true).SetTitle(" Controls ")

	a.controls.SetText(`[yellow]MAP[-]
  [white]click[-]     Airport card
  [white]←↑↓→[-]      Pan
  [white]+/-, 0[-]    Zoom / reset
[yellow]ROUTES[-]
  [white]/[-]         Enter code
  [white]r[-]         Regenerate
  [white]TAB[-]       Next panel
  [white]q[-]         Quit`)
}

// createLayout creates the main layout: map (70%) + sidebar (30%)
func (a *App) createLayout() {
	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.search, 3, 0, false).
		AddItem(a.airports, 0, 3, false).
		AddItem(a.info, 0, 4, false).
		AddItem(a.controls, 10, 0, false).
		AddItem(a.logs.GetView(), 0, 3, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.mapView, 0, 7, true).
		AddItem(sidebar, 0, 3, false)

	a.pages = tview.NewPages().AddPage("main", a.rootLayout, true, true)
	a.tviewApp.SetRoot(a.pages, true)
}

// requestDraw schedules one UI refresh. Safe from any goroutine;
// bursts of sink changes collapse into a single redraw.
func (a *App) requestDraw() {
	if !a.drawPending.CompareAndSwap(false, true) {
		return
	}
	go a.tviewApp.QueueUpdateDraw(func() {
		a.drawPending.Store(false)
		a.syncPopup()
		a.updateInfo()
		a.logs.refresh()
	})
}

// syncPopup mirrors the sink popup into a modal page. UI goroutine only.
func (a *App) syncPopup() {
	p, open := a.sink.Popup()
	switch {
	case !open && a.popupShown != nil:
		a.pages.RemovePage(popupPage)
		a.popupShown = nil
	case open && (a.popupShown == nil || *a.popupShown != p):
		a.pages.RemovePage(popupPage)
		a.pages.AddPage(popupPage, a.popupModal(p), true, true)
		a.popupShown = &p
	}
}

func (a *App) popupModal(p mapsink.Popup) *tview.Modal {
	text := fmt.Sprintf("%s\n\n%s\n\n[gray]photo %d of %d[-]",
		tview.Escape(p.Title), tview.Escape(p.Subtitle), p.Image, a.rt.Config.Map.PopupImages)

	return tview.NewModal().
		SetText(text).
		AddButtons([]string{p.Action, buttonClose}).
		SetDoneFunc(func(_ int, label string) {
			if label == p.Action {
				go a.commit(a.session.ViewDetails)
			}
			a.sink.ClosePopup()
		})
}

// commit runs a session commit off the UI goroutine and records any error.
func (a *App) commit(fn func() (session.Outcome, error)) {
	_, err := fn()

	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()

	if err != nil {
		a.rt.ObserveError("commit")
		a.log.Warn("Destination not committed", "error", err)
	}
	a.requestDraw()
}

// regenerate commits the current destination again for a fresh route set.
func (a *App) regenerate() {
	sel := a.session.Selection()
	if sel.Destination == nil {
		a.log.Info("Pick a destination first")
		return
	}
	dest := *sel.Destination
	go a.commit(func() (session.Outcome, error) { return a.session.SelectDestination(dest) })
}

// updateInfo updates the route panel content
func (a *App) updateInfo() {
	sel := a.session.Selection()
	last := a.session.Last()
	state, gen := a.session.ArcState()

	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]FROM:[-] [white]%s[-]\n", tview.Escape(airportLine(sel.Origin)))
	if sel.Destination != nil {
		fmt.Fprintf(&b, "[yellow]TO:[-]   [white]%s[-]\n", tview.Escape(airportLine(*sel.Destination)))
	} else {
		b.WriteString("[yellow]TO:[-]   [gray]click an airport[-]\n")
	}
	fmt.Fprintf(&b, "[gray]Arcs:[-] [white]%s[-] [gray]gen[-] [white]%d[-]\n", state, gen)

	a.mu.Lock()
	err := a.lastErr
	a.mu.Unlock()
	if err != nil {
		fmt.Fprintf(&b, "[red]%s[-]\n", tview.Escape(err.Error()))
	}

	if sel.Destination != nil {
		fmt.Fprintf(&b, "\n[yellow]ROUTES (%d)[-] [gray]sampled %d rejected %d[-]\n",
			len(last.Routes), last.Sampled, last.Rejected)
		if len(last.Routes) == 0 {
			b.WriteString("[gray]none this time, press r[-]\n")
		}
		for _, r := range last.Routes {
			km, err := r.DistanceKm()
			if err != nil {
				fmt.Fprintf(&b, "%s\n", tview.Escape(r.String()))
				continue
			}
			fmt.Fprintf(&b, "[white]%-15s[-] [gray]%6.0f km[-]\n", tview.Escape(r.String()), km)
		}
	}

	a.info.SetText(b.String())
}

func airportLine(ap airports.Airport) string {
	return fmt.Sprintf("%s %s", ap.Code(), ap.Label())
}

// handleKeyboard handles keys that apply regardless of focus
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	// Let the modal and the text field own their keys
	if a.popupShown != nil {
		return event
	}
	typing := a.tviewApp.GetFocus() == a.search

	switch {
	case event.Key() == tcell.KeyTab:
		a.cycleFocus()
		return nil
	case event.Key() == tcell.KeyEscape:
		if typing {
			a.tviewApp.SetFocus(a.mapView)
			return nil
		}
		a.Stop()
		return nil
	case typing:
		return event
	case event.Rune() == 'q':
		a.Stop()
		return nil
	case event.Rune() == '/':
		a.tviewApp.SetFocus(a.search)
		return nil
	case event.Rune() == 'r':
		a.regenerate()
		return nil
	}

	return event
}

// cycleFocus moves focus to the next panel
func (a *App) cycleFocus() {
	current := a.tviewApp.GetFocus()
	for i, p := range a.focusOrder {
		if p == current {
			a.tviewApp.SetFocus(a.focusOrder[(i+1)%len(a.focusOrder)])
			return
		}
	}
	a.tviewApp.SetFocus(a.mapView)
}

// Run starts the session and the application
func (a *App) Run() error {
	if err := a.session.Start(a.ctx, a.rt.IconLoader()); err != nil {
		return fmt.Errorf("failed to start map session: %w", err)
	}

	go func() {
		<-a.ctx.Done()
		a.tviewApp.Stop()
	}()

	return a.tviewApp.Run()
}

// Stop stops the application
func (a *App) Stop() {
	a.log.Info("Shutting down")
	a.tviewApp.Stop()
}
