package metrics

import (
	"math"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// Energy averages the specific kinetic energy (v²/2) over sample updates.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(u dynamo.Update) {
	if u.Cause != dynamo.CauseSample {
		return
	}
	v := u.Velocity.Norm()
	e.totalEnergy += 0.5 * v * v
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

type MaxSpeed struct {
	max float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{}
}

func (m *MaxSpeed) Name() string { return "max_speed" }

func (m *MaxSpeed) Observe(u dynamo.Update) {
	m.max = math.Max(m.max, u.Velocity.Norm())
}

func (m *MaxSpeed) Value() float64 { return m.max }
func (m *MaxSpeed) Reset()         { m.max = 0 }
