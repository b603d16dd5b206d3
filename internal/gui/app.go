// Package gui opens a desktop window onto a running simulation. The device
// is tilted with the arrow keys or by dragging the mouse away from the
// field centre, and wall hits can be made audible.
package gui

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/tiltball/internal/audio"
	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/sim"
)

const (
	margin    = 24
	hudHeight = 56
	minWidth  = 480

	trailCapacity = 120

	// maxTilt bounds device gravity per axis (m/s²).
	maxTilt = 9.81
	// tiltRate is how quickly held keys reach full tilt, per second.
	tiltRate = 4.0
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColWall    = rl.NewColor(180, 180, 180, 255)
	ColBall    = rl.NewColor(255, 255, 255, 255)
	ColHit     = rl.NewColor(255, 90, 90, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColTrail   = rl.NewColor(120, 120, 120, 255)
)

type Options struct {
	Title     string
	MaxWidth  int32
	MaxHeight int32
	Sound     bool
}

// App holds the window state between frames. Everything except Run and the
// draw methods is free of raylib calls.
type App struct {
	Ctrl    *sim.Controller
	Adapter sensor.GravityAdapter
	Field   dynamo.Field
	Title   string

	layout layout
	width  int32
	height int32

	GX, GY   float64
	Running  bool
	dragging bool

	start    time.Time
	pausedAt time.Time
	paused   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending []dynamo.Update

	trail   []dynamo.Position
	last    dynamo.Update
	hits    int
	samples int
	err     error

	Audio *audio.Processor
}

func newApp(ctrl *sim.Controller, adapter sensor.GravityAdapter, field dynamo.Field, opts Options) *App {
	w, h, l := fitWindow(field, opts.MaxWidth, opts.MaxHeight)
	a := &App{
		Ctrl:    ctrl,
		Adapter: adapter,
		Field:   field,
		Title:   opts.Title,
		layout:  l,
		width:   w,
		height:  h,
		Running: true,
		now:     time.Now,
		trail:   make([]dynamo.Position, 0, trailCapacity),
	}
	a.start = a.now()
	a.last = dynamo.Update{Cause: dynamo.CauseInit, Position: field.Center()}
	return a
}

func (a *App) OnUpdate(u dynamo.Update) {
	a.mu.Lock()
	a.pending = append(a.pending, u)
	a.mu.Unlock()
}

// Run blocks until the window is closed. The controller must already be
// initialised.
func Run(ctrl *sim.Controller, adapter sensor.GravityAdapter, opts Options) error {
	field, ok := ctrl.Field()
	if !ok {
		return dynamo.ErrNotInitialized
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 1280
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = 720
	}
	if opts.Title == "" {
		opts.Title = "tiltball"
	}

	app := newApp(ctrl, adapter, field, opts)
	cancel := ctrl.Subscribe(app)
	defer cancel()

	if opts.Sound {
		proc := audio.NewProcessor()
		if err := proc.Start(); err != nil {
			log.New(os.Stderr, "[gui] ", log.LstdFlags).Printf("sound disabled: %v", err)
		} else {
			app.Audio = proc
			stop := ctrl.Subscribe(proc)
			defer func() {
				stop()
				proc.Stop()
			}()
		}
	}

	rl.InitWindow(app.width, app.height, opts.Title)
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
	defer rl.CloseWindow()

	app.RunLoop()
	return app.err
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if a.Update() {
			return
		}
		a.Draw()
	}
}

// Update reads input and feeds one sample. It reports whether the user
// asked to quit.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) || rl.IsKeyPressed(rl.KeyEscape) {
		return true
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.togglePause()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.Ctrl.Reset()
	}
	if rl.IsKeyPressed(rl.KeyZero) {
		a.GX, a.GY = 0, 0
	}

	dt := float64(rl.GetFrameTime())
	a.dragging = rl.IsMouseButtonDown(rl.MouseLeftButton)
	if a.dragging {
		m := rl.GetMousePosition()
		cx, cy := a.layout.fieldCentre(a.Field)
		radius := min(a.Field.Width, a.Field.Height) * a.layout.scale / 2
		a.GX, a.GY = mouseTilt(float64(m.X)-cx, float64(m.Y)-cy, radius)
	} else {
		left := rl.IsKeyDown(rl.KeyLeft) || rl.IsKeyDown(rl.KeyH)
		right := rl.IsKeyDown(rl.KeyRight) || rl.IsKeyDown(rl.KeyL)
		up := rl.IsKeyDown(rl.KeyUp) || rl.IsKeyDown(rl.KeyK)
		down := rl.IsKeyDown(rl.KeyDown) || rl.IsKeyDown(rl.KeyJ)
		if left || right || up || down {
			a.GX, a.GY = keyTilt(a.GX, a.GY, left, right, up, down, dt)
		}
	}

	if a.Running {
		a.step(a.now())
	}
	a.absorb()
	return false
}

func (a *App) togglePause() {
	if a.Running {
		a.pausedAt = a.now()
	} else {
		a.paused += a.now().Sub(a.pausedAt)
	}
	a.Running = !a.Running
}

// step stamps a reading with the frame clock, minus time spent paused.
func (a *App) step(at time.Time) {
	r := sensor.Reading{Time: at.Add(-a.paused).UnixNano(), GX: a.GX, GY: a.GY}
	if err := a.Ctrl.OnSample(a.Adapter.Sample(r)); err != nil {
		a.err = err
		return
	}
	a.samples++
}

func (a *App) absorb() {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, u := range pending {
		if u.Cause != dynamo.CauseSample {
			a.trail = a.trail[:0]
		}
		a.trail = append(a.trail, u.Position)
		if len(a.trail) > trailCapacity {
			a.trail = a.trail[1:]
		}
		a.hits += u.Contact.Count()
		a.last = u
	}
}

func (a *App) status() string {
	if a.err != nil {
		return "ERROR"
	}
	if !a.Running {
		return "PAUSED"
	}
	return "RUNNING"
}

func (a *App) readout() string {
	p, v := a.last.Position, a.last.Velocity
	return fmt.Sprintf("pos %7.1f %7.1f   vel %7.1f %7.1f   tilt %5.2f %5.2f   hits %d",
		p.X, p.Y, v.X, v.Y, a.GX, a.GY, a.hits)
}
