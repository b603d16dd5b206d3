// Package tui renders a running simulation as plain ASCII frames, for
// terminals or pipes where the full-screen viz views are not wanted.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/tiltball/internal/dynamo"
)

const (
	width       = 70
	height      = 20
	trailLen    = 40
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

type point struct{ x, y int }

// LiveRenderer is a dynamo.Observer that draws one frame per 1/frameRate
// seconds of sample time. With Pace set it sleeps so that frames follow the
// wall clock.
type LiveRenderer struct {
	out       io.Writer
	title     string
	frameRate int
	Pace      bool

	field     dynamo.Field
	lastFrame int64
	drawn     bool
	wallStart time.Time
	simStart  int64
	canvas    [][]rune
	trail     []point
	frames    int
	sleep     func(time.Duration)
	now       func() time.Time
}

func NewLiveRenderer(out io.Writer, title string, field dynamo.Field, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		out:       out,
		title:     title,
		frameRate: frameRate,
		field:     field,
		canvas:    canvas,
		trail:     make([]point, 0, trailLen),
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

func (r *LiveRenderer) OnUpdate(u dynamo.Update) {
	if u.Cause != dynamo.CauseSample {
		r.trail = r.trail[:0]
	}

	bx, by := r.project(u.Position)
	r.trail = append(r.trail, point{bx, by})
	if len(r.trail) > trailLen {
		r.trail = r.trail[1:]
	}

	interval := int64(dynamo.NanosPerSecond) / int64(max(r.frameRate, 1))
	if r.drawn && u.Cause == dynamo.CauseSample && u.Time-r.lastFrame < interval {
		return
	}
	if !r.drawn {
		r.wallStart, r.simStart = r.now(), u.Time
	}
	r.drawn = true
	r.lastFrame = u.Time

	if r.Pace {
		ahead := time.Duration(u.Time-r.simStart) - r.now().Sub(r.wallStart)
		if ahead > 0 {
			r.sleep(ahead)
		}
	}

	r.clear()
	r.draw(bx, by)
	r.render(u)
}

// project maps the ball centre to a character cell.
func (r *LiveRenderer) project(p dynamo.Position) (int, int) {
	half := r.field.BallSize / 2
	x := int((p.X + half) / r.field.Width * float64(width-1))
	y := int((p.Y + half) / r.field.Height * float64(height-1))
	return x, y
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) draw(bx, by int) {
	for i, pt := range r.trail {
		if i < len(r.trail)/2 {
			r.set(pt.x, pt.y, '.')
		} else {
			r.set(pt.x, pt.y, 'o')
		}
	}
	r.set(bx, by, 'O')
}

func (r *LiveRenderer) render(u dynamo.Update) {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  %s  t=%.2fs\n", r.title, float64(u.Time-r.simStart)/dynamo.NanosPerSecond)
	b.WriteString("  +" + strings.Repeat("-", width) + "+\n")

	for _, row := range r.canvas {
		b.WriteString("  |")
		b.WriteString(string(row))
		b.WriteString("|\n")
	}

	b.WriteString("  +" + strings.Repeat("-", width) + "+\n")
	fmt.Fprintf(&b, "  pos=(%.1f, %.1f) vel=(%.1f, %.1f) contact=%s\n",
		u.Position.X, u.Position.Y, u.Velocity.X, u.Velocity.Y, u.Contact)

	io.WriteString(r.out, b.String())
	r.frames++
}

// Frames returns the number of frames drawn.
func (r *LiveRenderer) Frames() int { return r.frames }

func (r *LiveRenderer) Start() { io.WriteString(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { io.WriteString(r.out, showCursor) }
