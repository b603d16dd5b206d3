package dynamo

import (
	"context"
	"fmt"
	"math"
)

// NanosPerSecond converts sample timestamps to seconds.
const NanosPerSecond = 1_000_000_000

type Vec2 struct {
	X, Y float64
}

func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v Vec2) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Position is the top-left corner of the ball inside the field.
type Position = Vec2

// Field fixes the coordinate space of a simulation.
type Field struct {
	Width    float64 `json:"width" yaml:"width"`
	Height   float64 `json:"height" yaml:"height"`
	BallSize float64 `json:"ball_size" yaml:"ball_size"`
}

// Validate reports whether the ball fits inside a well-formed field.
func (f Field) Validate() error {
	for _, v := range []float64{f.Width, f.Height, f.BallSize} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %gx%g ball %g", ErrInvalidField, f.Width, f.Height, f.BallSize)
		}
	}
	if f.BallSize > f.Width || f.BallSize > f.Height {
		return fmt.Errorf("%w: ball %g does not fit %gx%g", ErrInvalidField, f.BallSize, f.Width, f.Height)
	}
	return nil
}

func (f Field) String() string {
	return fmt.Sprintf("%gx%g/%g", f.Width, f.Height, f.BallSize)
}

// Center is the position that places the ball in the middle of the field.
func (f Field) Center() Position {
	return Position{X: (f.Width - f.BallSize) / 2, Y: (f.Height - f.BallSize) / 2}
}

// MaxX and MaxY are the largest in-bounds coordinates.
func (f Field) MaxX() float64 { return f.Width - f.BallSize }
func (f Field) MaxY() float64 { return f.Height - f.BallSize }

// Sample is one externally supplied acceleration reading.
// Reset marks a scripted reset request that precedes the reading.
type Sample struct {
	Time  int64   `json:"t"`
	AccX  float64 `json:"ax"`
	AccY  float64 `json:"ay"`
	Reset bool    `json:"reset,omitempty"`
}

func (s Sample) IsValid() bool {
	return Vec2{X: s.AccX, Y: s.AccY}.IsValid()
}

// Contact records which walls were hit during one step.
type Contact uint8

const (
	ContactLeft Contact = 1 << iota
	ContactRight
	ContactTop
	ContactBottom
)

func (c Contact) Has(flag Contact) bool { return c&flag != 0 }

// Count returns the number of walls touched.
func (c Contact) Count() int {
	n := 0
	for _, f := range []Contact{ContactLeft, ContactRight, ContactTop, ContactBottom} {
		if c.Has(f) {
			n++
		}
	}
	return n
}

func (c Contact) String() string {
	if c == 0 {
		return "none"
	}
	s := ""
	for _, f := range []struct {
		flag Contact
		name string
	}{{ContactLeft, "left"}, {ContactRight, "right"}, {ContactTop, "top"}, {ContactBottom, "bottom"}} {
		if c.Has(f.flag) {
			if s != "" {
				s += "|"
			}
			s += f.name
		}
	}
	return s
}

// Snapshot is the full observable state of the ball.
type Snapshot struct {
	Field        Field
	Position     Position
	Velocity     Vec2
	Acceleration Vec2
}

// Cause says which operation published an Update.
type Cause uint8

const (
	CauseInit Cause = iota
	CauseSample
	CauseReset
)

func (c Cause) String() string {
	switch c {
	case CauseInit:
		return "init"
	case CauseSample:
		return "sample"
	case CauseReset:
		return "reset"
	}
	return "unknown"
}

// Update is published to observers after every state-changing operation.
// Time is the sample timestamp for CauseSample and zero otherwise.
type Update struct {
	Cause    Cause
	Time     int64
	Position Position
	Velocity Vec2
	Contact  Contact
}

// Source produces samples in timestamp order and returns io.EOF when drained.
type Source interface {
	Next(ctx context.Context) (Sample, error)
}

type Observer interface {
	OnUpdate(u Update)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(u Update)

func (f ObserverFunc) OnUpdate(u Update) { f(u) }

type Metric interface {
	Name() string
	Observe(u Update)
	Value() float64
	Reset()
}
