package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/storage"
)

const scrubFrames = 10

// Playback replays a stored track. [ and ] scrub, + and - change speed.
type Playback struct {
	title string
	field dynamo.Field
	track *storage.Track

	head    int
	clock   float64
	speed   float64
	running bool

	theme  int
	canvas *Canvas
}

func NewPlayback(title string, field dynamo.Field, track *storage.Track, theme string) Playback {
	return Playback{
		title:   title,
		field:   field,
		track:   track,
		speed:   1,
		running: true,
		theme:   themeIndex(theme),
		canvas:  NewCanvas(canvasCols, canvasRows),
	}
}

func (p Playback) Init() tea.Cmd { return tick() }

func (p Playback) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return p, tea.Quit
		case " ":
			p.running = !p.running
		case "r":
			p.seek(0)
		case "[":
			p.running = false
			p.seek(p.head - scrubFrames)
		case "]":
			p.running = false
			p.seek(p.head + scrubFrames)
		case "+", "=":
			p.speed = min(p.speed*2, 16)
		case "-", "_":
			p.speed = max(p.speed/2, 0.125)
		case "t":
			p.theme = (p.theme + 1) % len(Themes)
		}
		return p, nil

	case TickMsg:
		if p.running {
			p.advance(p.speed / frameRate)
		}
		return p, tick()
	}
	return p, nil
}

// advance moves the play clock by dt seconds of track time.
func (p *Playback) advance(dt float64) {
	n := len(p.track.Times)
	if n == 0 {
		return
	}
	p.clock += dt
	t0 := p.track.Times[0]
	i := sort.Search(n, func(k int) bool { return p.track.Times[k]-t0 > p.clock }) - 1
	p.head = max(i, 0)
	if p.head >= n-1 {
		p.head = n - 1
		p.running = false
	}
}

func (p *Playback) seek(i int) {
	n := len(p.track.Times)
	if n == 0 {
		return
	}
	p.head = max(0, min(i, n-1))
	p.clock = p.track.Times[p.head] - p.track.Times[0]
}

// Head returns the index of the frame on screen.
func (p Playback) Head() int { return p.head }

func (p Playback) View() string {
	st := newStyles(Themes[p.theme])

	p.canvas.Clear()
	proj := newProjection(p.field, p.canvas)
	proj.walls(p.canvas)

	var pos, vel dynamo.Vec2
	t := 0.0
	if n := len(p.track.Positions); n > 0 {
		from := max(0, p.head-trailCapacity)
		proj.trail(p.canvas, p.track.Positions[from:p.head])
		pos = p.track.Positions[p.head]
		vel = p.track.Velocities[p.head]
		t = p.track.Times[p.head]
	}
	proj.ball(p.canvas, pos)

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(p.title)) + "\n")
	status := fmt.Sprintf("REPLAY x%g", p.speed)
	if p.running {
		s.WriteString(st.status.Render(status) + "\n\n")
	} else {
		s.WriteString(st.paused.Render(status+" PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", t))
	row("Frame", fmt.Sprintf("%d/%d", p.head+1, len(p.track.Times)))
	row("Position", fmt.Sprintf("%.1f, %.1f", pos.X, pos.Y))
	row("Velocity", fmt.Sprintf("%.1f, %.1f", vel.X, vel.Y))
	row("Field", p.field.String())
	row("Progress", progress(p.head, len(p.track.Times), 20))

	s.WriteString(st.help.Render("─────────────────────\nSP:Pause R:Rewind [ ]:Scrub\n+ -:Speed T:Theme Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(p.canvas.String()), st.panel.Render(s.String()))
}

func progress(i, n, width int) string {
	filled := 0
	if n > 1 {
		filled = i * width / (n - 1)
	}
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Run starts a full-screen Bubble Tea program for m.
func Run(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("viz: %w", err)
	}
	return nil
}

