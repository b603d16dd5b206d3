package metrics

import "github.com/san-kum/tiltball/internal/dynamo"

// Collisions counts wall contacts; a corner counts twice.
type Collisions struct {
	count int
}

func NewCollisions() *Collisions {
	return &Collisions{}
}

func (c *Collisions) Name() string { return "collisions" }

func (c *Collisions) Observe(u dynamo.Update) {
	c.count += u.Contact.Count()
}

func (c *Collisions) Value() float64 { return float64(c.count) }
func (c *Collisions) Reset()         { c.count = 0 }

// WallTime is the fraction of sample updates that ended against a wall.
type WallTime struct {
	touching int
	samples  int
}

func NewWallTime() *WallTime {
	return &WallTime{}
}

func (w *WallTime) Name() string { return "wall_time" }

func (w *WallTime) Observe(u dynamo.Update) {
	if u.Cause != dynamo.CauseSample {
		return
	}
	w.samples++
	if u.Contact != 0 {
		w.touching++
	}
}

func (w *WallTime) Value() float64 {
	if w.samples == 0 {
		return 0
	}
	return float64(w.touching) / float64(w.samples)
}

func (w *WallTime) Reset() {
	w.touching = 0
	w.samples = 0
}
