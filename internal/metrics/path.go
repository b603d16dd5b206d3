package metrics

import "github.com/san-kum/tiltball/internal/dynamo"

// PathLength sums the distance travelled between consecutive updates.
// Jumps caused by reset or re-initialization are not counted.
type PathLength struct {
	last    dynamo.Position
	hasLast bool
	total   float64
}

func NewPathLength() *PathLength {
	return &PathLength{}
}

func (p *PathLength) Name() string { return "path_length" }

func (p *PathLength) Observe(u dynamo.Update) {
	if u.Cause != dynamo.CauseSample {
		p.last, p.hasLast = u.Position, true
		return
	}
	if p.hasLast {
		p.total += u.Position.Sub(p.last).Norm()
	}
	p.last, p.hasLast = u.Position, true
}

func (p *PathLength) Value() float64 { return p.total }

func (p *PathLength) Reset() {
	p.last = dynamo.Position{}
	p.hasLast = false
	p.total = 0
}

// Default returns the metrics recorded for every stored run.
func Default() []dynamo.Metric {
	return []dynamo.Metric{
		NewCollisions(),
		NewWallTime(),
		NewPathLength(),
		NewEnergy(),
		NewMaxSpeed(),
	}
}
