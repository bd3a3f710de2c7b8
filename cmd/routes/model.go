package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/internal/session"
	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
	"github.com/unklstewy/flightarcs/pkg/termmap"
)

// Layout
const (
	sidebarWidth = 44
	minMapWidth  = 40
	minMapHeight = 12
	chromeHeight = 6 // title, help and spacing
	popupHeight  = 6
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	inputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86"))
	hubStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(termmap.HubColor))
	popupStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(mapsink.DestinationMarkerColor)).
			Padding(0, 1)
	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color(mapsink.DestinationMarkerColor)).
			Padding(0, 1)
)

type model struct {
	rt      *bootstrap.Runtime
	sink    *mapsink.Memory
	session *session.Session
	list    []airports.Airport

	selected int
	width    int
	height   int
	view     *termmap.Follower

	inputMode   bool
	inputBuffer string

	err error
}

// committedMsg reports the result of a destination commit.
type committedMsg struct {
	outcome session.Outcome
	err     error
}

func newModel(rt *bootstrap.Runtime, sink *mapsink.Memory, s *session.Session) model {
	return model{
		rt:      rt,
		sink:    sink,
		session: s,
		list:    rt.Catalog.All(),
		width:   120,
		height:  40,
		view:    &termmap.Follower{},
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

// commit runs fn as a command so the update loop stays responsive.
func commit(fn func() (session.Outcome, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := fn()
		return committedMsg{outcome: out, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case committedMsg:
		m.err = msg.err
		if msg.err != nil {
			m.rt.ObserveError("commit")
		}
		return m, nil

	case tea.KeyMsg:
		if m.inputMode {
			return m.updateInput(msg)
		}

		// Popup open: it owns enter and esc
		if _, open := m.sink.Popup(); open {
			switch msg.String() {
			case "enter", "v":
				m.sink.ClosePopup()
				return m, commit(m.session.ViewDetails)
			case "esc", "c":
				m.sink.ClosePopup()
				return m, nil
			}
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.list)-1 {
				m.selected++
			}
		case "pgup":
			m.selected = max(m.selected-10, 0)
		case "pgdown":
			m.selected = min(m.selected+10, len(m.list)-1)
		case "enter", " ":
			if len(m.list) > 0 {
				m.session.Inspect(m.list[m.selected])
			}
		case "/":
			m.inputMode = true
			m.inputBuffer = ""
			m.err = nil
		case "r":
			sel := m.session.Selection()
			if sel.Destination == nil {
				m.err = fmt.Errorf("pick a destination first")
				return m, nil
			}
			dest := *sel.Destination
			return m, commit(func() (session.Outcome, error) { return m.session.SelectDestination(dest) })
		case "+", "=":
			m.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Zoomed(1) })
		case "-", "_":
			m.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Zoomed(-1) })
		case "H":
			m.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(-8, 0) })
		case "L":
			m.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(8, 0) })
		case "K":
			m.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(0, -4) })
		case "J":
			m.view.Adjust(func(v termmap.Viewport) termmap.Viewport { return v.Panned(0, 4) })
		case "0":
			m.view.Reset()
		}
	}

	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		code := strings.ToUpper(strings.TrimSpace(m.inputBuffer))
		m.inputMode = false
		m.inputBuffer = ""
		if code == "" {
			return m, nil
		}
		if i := m.indexOf(code); i >= 0 {
			m.selected = i
		}
		return m, commit(func() (session.Outcome, error) { return m.session.SelectCode(code) })
	case "esc":
		m.inputMode = false
		m.inputBuffer = ""
	case "backspace":
		if len(m.inputBuffer) > 0 {
			m.inputBuffer = m.inputBuffer[:len(m.inputBuffer)-1]
		}
	default:
		if len(msg.String()) == 1 && len(m.inputBuffer) < 4 {
			m.inputBuffer += msg.String()
		}
	}
	return m, nil
}

func (m model) indexOf(code string) int {
	for i, a := range m.list {
		if a.Matches(code) {
			return i
		}
	}
	return -1
}

func (m model) mapSize() (int, int) {
	w := max(m.width-sidebarWidth-1, minMapWidth)
	h := max(m.height-chromeHeight-popupHeight, minMapHeight)
	return w, h
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf("FLIGHT ARCS  %s", m.session.Origin().Code())))
	s.WriteString("\n\n")

	if m.inputMode {
		s.WriteString(promptStyle.Render("Enter destination code (e.g., LHR, KJFK):"))
		s.WriteString("\n")
		s.WriteString(inputStyle.Render("> " + m.inputBuffer + "_"))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("ENTER: Submit  ESC: Cancel"))
		return s.String()
	}

	w, h := m.mapSize()
	v := m.view.Viewport(m.sink.Camera(), w, h)
	canvas := termmap.RenderView(m.sink, v)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderCanvas(canvas),
		" ",
		m.renderSidebar(h)))
	s.WriteString("\n")

	if p, open := m.sink.Popup(); open {
		s.WriteString(renderPopup(p, m.rt.Config.Map.PopupImages))
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("↑/↓ select  ENTER card  v view details  / code  r regenerate  +/- zoom  HJKL pan  0 reset  q quit"))
	return s.String()
}

// renderCanvas colors runs of cells with the same color.
func renderCanvas(c *termmap.Canvas) string {
	var b strings.Builder
	for y := 0; y < c.Height; y++ {
		row := c.Row(y)
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].Color == row[i].Color {
				run.WriteRune(row[j].Rune)
				j++
			}
			if row[i].Color == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().
					Foreground(lipgloss.Color(termmap.Visible(row[i].Color))).
					Render(run.String()))
			}
			i = j
		}
		if y < c.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m model) renderSidebar(height int) string {
	var s strings.Builder

	sel := m.session.Selection()
	last := m.session.Last()
	state, gen := m.session.ArcState()

	s.WriteString(headerStyle.Render("FROM "))
	s.WriteString(truncate(sel.Origin.String(), sidebarWidth-5))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("TO   "))
	if sel.Destination != nil {
		s.WriteString(truncate(sel.Destination.String(), sidebarWidth-5))
	} else {
		s.WriteString(helpStyle.Render("select an airport"))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(fmt.Sprintf("arcs %s, generation %d", state, gen)))
	s.WriteString("\n\n")

	routeLines := 0
	if sel.Destination != nil {
		s.WriteString(headerStyle.Render(fmt.Sprintf("ROUTES (%d)", len(last.Routes))))
		s.WriteString("\n")
		routeLines = 1
		if len(last.Routes) == 0 {
			s.WriteString(helpStyle.Render("none this time, press r"))
			s.WriteString("\n")
			routeLines++
		}
		for _, r := range last.Routes {
			line := r.String()
			if km, err := r.DistanceKm(); err == nil {
				line = fmt.Sprintf("%-16s %7.0f km", line, km)
			}
			s.WriteString(line)
			s.WriteString("\n")
			routeLines++
		}
		s.WriteString("\n")
		routeLines++
	}

	s.WriteString(headerStyle.Render("AIRPORTS"))
	s.WriteString("\n")

	// Window the list around the selection
	rows := max(height-routeLines-6, 3)
	start := max(m.selected-rows/2, 0)
	end := min(start+rows, len(m.list))
	start = max(end-rows, 0)

	for i := start; i < end; i++ {
		a := m.list[i]
		glyph := "  "
		if a.Hub {
			glyph = hubStyle.Render("▲") + " "
		}
		line := truncate(fmt.Sprintf("%-4s %s", a.Code(), a.Label()), sidebarWidth-3)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		s.WriteString(glyph + line + "\n")
	}

	return lipgloss.NewStyle().Width(sidebarWidth).Render(s.String())
}

func renderPopup(p mapsink.Popup, images int) string {
	body := fmt.Sprintf("%s\n%s\n%s  %s",
		headerStyle.Render(p.Title),
		p.Subtitle,
		helpStyle.Render(fmt.Sprintf("photo %d of %d", p.Image, images)),
		actionStyle.Render(p.Action+" (v)"))
	return popupStyle.Render(body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
