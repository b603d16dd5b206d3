package sensor

import (
	"context"
	"io"
	"math"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// TiltFunc returns the gravity at t seconds. reset reports that a scripted
// reset falls inside the interval (t-dt, t].
type TiltFunc func(t, dt float64) (gx, gy float64, reset bool)

// Synthetic is a clocked reading source for scripted runs.
type Synthetic struct {
	tilt   TiltFunc
	start  int64
	period float64
	n      int
	i      int
}

// NewSynthetic emits readings at rateHz for duration seconds, with the first
// reading stamped start nanoseconds.
func NewSynthetic(tilt TiltFunc, rateHz, duration float64, start int64) *Synthetic {
	return &Synthetic{
		tilt:   tilt,
		start:  start,
		period: 1 / rateHz,
		n:      int(math.Floor(duration*rateHz)) + 1,
	}
}

func (s *Synthetic) NextReading(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if s.i >= s.n {
		return Reading{}, io.EOF
	}

	t := float64(s.i) * s.period
	gx, gy, reset := s.tilt(t, s.period)
	r := Reading{
		Time:  s.start + int64(math.Round(t*dynamo.NanosPerSecond)),
		GX:    gx,
		GY:    gy,
		Reset: reset,
	}
	s.i++
	return r, nil
}

// Constant tilts the device by a fixed gravity vector.
func Constant(gx, gy float64) TiltFunc {
	return func(t, dt float64) (float64, float64, bool) { return gx, gy, false }
}
