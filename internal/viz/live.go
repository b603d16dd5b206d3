package viz

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/sim"
)

const (
	canvasCols      = 60
	canvasRows      = 20
	historyCapacity = 240
	trailCapacity   = 80
	frameRate       = 60

	// maxTilt bounds the keyboard gravity per axis (m/s²).
	maxTilt  = 9.81
	tiltStep = 0.5
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// feed collects controller updates between frames.
type feed struct {
	mu      sync.Mutex
	pending []dynamo.Update
}

func (f *feed) OnUpdate(u dynamo.Update) {
	f.mu.Lock()
	f.pending = append(f.pending, u)
	f.mu.Unlock()
}

func (f *feed) drain() []dynamo.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

// Model is the live view: the keyboard plays the accelerometer and every
// frame feeds one sample into the controller.
type Model struct {
	ctrl    *sim.Controller
	adapter sensor.GravityAdapter
	feed    *feed
	cancel  func()

	gx, gy   float64
	running  bool
	pausedAt time.Time
	paused   time.Duration
	now      func() time.Time

	theme  int
	canvas *Canvas
	title  string

	last     dynamo.Update
	trail    []dynamo.Position
	speeds   []float64
	contacts int
	samples  int
	err      error
}

// NewModel subscribes a live view to ctrl. The caller is expected to have
// initialized the controller; Close releases the subscription.
func NewModel(ctrl *sim.Controller, adapter sensor.GravityAdapter, title, theme string) Model {
	f := &feed{}
	m := Model{
		ctrl:    ctrl,
		adapter: adapter,
		feed:    f,
		running: true,
		now:     time.Now,
		theme:   themeIndex(theme),
		canvas:  NewCanvas(canvasCols, canvasRows),
		title:   title,
		trail:   make([]dynamo.Position, 0, trailCapacity),
		speeds:  make([]float64, 0, historyCapacity),
	}
	m.cancel = ctrl.Subscribe(f)
	m.absorb()
	if snap, ok := ctrl.Snapshot(); ok {
		m.last = dynamo.Update{Cause: dynamo.CauseInit, Position: snap.Position, Velocity: snap.Velocity}
	}
	return m
}

func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.togglePause()
		case "r":
			m.ctrl.Reset()
			m.trail = m.trail[:0]
			m.speeds = m.speeds[:0]
			m.contacts = 0
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "0":
			m.gx, m.gy = 0, 0
		case "left", "h":
			m.tilt(tiltStep, 0)
		case "right", "l":
			m.tilt(-tiltStep, 0)
		case "up", "k":
			m.tilt(0, -tiltStep)
		case "down", "j":
			m.tilt(0, tiltStep)
		}
		m.absorb()
		return m, nil

	case TickMsg:
		if m.running {
			m.step(time.Time(msg))
		}
		m.absorb()
		return m, tick()
	}
	return m, nil
}

// tilt moves the simulated device. The adapter decides how the reading maps
// to screen axes, so keys speak device gravity just like a real sensor.
func (m *Model) tilt(dx, dy float64) {
	m.gx = clampTilt(m.gx + dx)
	m.gy = clampTilt(m.gy + dy)
}

func clampTilt(v float64) float64 {
	return max(-maxTilt, min(maxTilt, v))
}

func (m *Model) togglePause() {
	if m.running {
		m.pausedAt = m.now()
	} else {
		m.paused += m.now().Sub(m.pausedAt)
	}
	m.running = !m.running
}

// step stamps a reading with the frame's wall clock, minus time spent
// paused so that resuming does not integrate over the pause.
func (m *Model) step(at time.Time) {
	r := sensor.Reading{Time: at.Add(-m.paused).UnixNano(), GX: m.gx, GY: m.gy}
	if err := m.ctrl.OnSample(m.adapter.Sample(r)); err != nil {
		m.err = err
		return
	}
	m.samples++
}

// absorb folds pending controller updates into the view state.
func (m *Model) absorb() {
	for _, u := range m.feed.drain() {
		if u.Cause != dynamo.CauseSample {
			m.trail = m.trail[:0]
		}
		m.trail = append(m.trail, u.Position)
		if len(m.trail) > trailCapacity {
			m.trail = m.trail[1:]
		}
		m.speeds = append(m.speeds, u.Velocity.Norm())
		if len(m.speeds) > historyCapacity {
			m.speeds = m.speeds[1:]
		}
		m.contacts += u.Contact.Count()
		m.last = u
	}
}

func (m Model) draw() {
	m.canvas.Clear()
	field, ok := m.ctrl.Field()
	if !ok {
		return
	}
	p := newProjection(field, m.canvas)
	p.walls(m.canvas)
	p.trail(m.canvas, m.trail)
	p.ball(m.canvas, m.last.Position)
}

func (m Model) View() string {
	st := newStyles(Themes[m.theme])
	m.draw()
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	if m.running {
		s.WriteString(st.status.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	if len(m.speeds) > 1 {
		chart := asciigraph.Plot(m.speeds, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Speed"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Position", fmt.Sprintf("%.1f, %.1f", m.last.Position.X, m.last.Position.Y))
	row("Velocity", fmt.Sprintf("%.1f, %.1f", m.last.Velocity.X, m.last.Velocity.Y))
	row("Contact", m.last.Contact.String())
	row("Hits", fmt.Sprintf("%d", m.contacts))
	row("Samples", fmt.Sprintf("%d", m.samples))
	row("Tilt X", gauge(m.gx, maxTilt, 16)+fmt.Sprintf(" %+.1f", m.gx))
	row("Tilt Y", gauge(m.gy, maxTilt, 16)+fmt.Sprintf(" %+.1f", m.gy))
	if field, ok := m.ctrl.Field(); ok {
		row("Field", field.String())
	}
	if m.err != nil {
		s.WriteString("\n" + st.warning.Render(m.err.Error()) + "\n")
	}

	s.WriteString(st.help.Render("─────────────────────\nARROWS/HJKL:Tilt 0:Level\nSP:Pause R:Reset T:Theme Q:Quit"))
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
}
