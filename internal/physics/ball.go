package physics

import "github.com/san-kum/tiltball/internal/dynamo"

// Ball is a square body confined to a field. It is not safe for concurrent
// use; sim.Controller serialises access to it.
type Ball struct {
	field dynamo.Field

	pos dynamo.Vec2
	vel dynamo.Vec2
	acc dynamo.Vec2

	integrated bool
}

// NewBall validates the field and returns a centred ball at rest.
func NewBall(field dynamo.Field) (*Ball, error) {
	if err := field.Validate(); err != nil {
		return nil, err
	}
	b := &Ball{field: field}
	b.Reset()
	return b, nil
}

// Reset centres the ball, stops it and re-arms the bootstrap step.
func (b *Ball) Reset() {
	b.pos = b.field.Center()
	b.vel = dynamo.Vec2{}
	b.acc = dynamo.Vec2{}
	b.integrated = false
}

// Advance integrates one step of length dt seconds under the given
// acceleration and clamps the result to the field. dt is not validated;
// a negative dt extrapolates backward. The returned Contact lists the walls
// that stopped the ball during this step.
func (b *Ball) Advance(accX, accY, dt float64) dynamo.Contact {
	if !b.integrated {
		b.acc = dynamo.Vec2{X: accX, Y: accY}
		b.integrated = true
		return 0
	}

	b.acc = dynamo.Vec2{X: accX, Y: accY}

	dt2 := dt * dt
	b.pos.X += b.vel.X*dt + 0.5*b.acc.X*dt2
	b.pos.Y += b.vel.Y*dt + 0.5*b.acc.Y*dt2

	b.vel.X += b.acc.X * dt
	b.vel.Y += b.acc.Y * dt

	return b.clamp()
}

// clamp pulls each axis back inside the field independently. A position
// exactly on a boundary is in bounds.
func (b *Ball) clamp() dynamo.Contact {
	var c dynamo.Contact

	if b.pos.X < 0 {
		b.pos.X, b.vel.X, b.acc.X = 0, 0, 0
		c |= dynamo.ContactLeft
	} else if b.pos.X+b.field.BallSize > b.field.Width {
		b.pos.X, b.vel.X, b.acc.X = b.field.MaxX(), 0, 0
		c |= dynamo.ContactRight
	}

	if b.pos.Y < 0 {
		b.pos.Y, b.vel.Y, b.acc.Y = 0, 0, 0
		c |= dynamo.ContactTop
	} else if b.pos.Y+b.field.BallSize > b.field.Height {
		b.pos.Y, b.vel.Y, b.acc.Y = b.field.MaxY(), 0, 0
		c |= dynamo.ContactBottom
	}

	return c
}

// Position returns the top-left corner of the ball.
func (b *Ball) Position() dynamo.Position { return b.pos }

// Velocity returns the current velocity in units/s.
func (b *Ball) Velocity() dynamo.Vec2 { return b.vel }

// Acceleration returns the last applied acceleration, zeroed on an axis
// that hit a wall.
func (b *Ball) Acceleration() dynamo.Vec2 { return b.acc }

// Field returns the dimensions the ball was built with.
func (b *Ball) Field() dynamo.Field { return b.field }

// Integrated reports whether a step past the bootstrap has run since the
// last Reset.
func (b *Ball) Integrated() bool { return b.integrated }

// Snapshot bundles the accessors into one value.
func (b *Ball) Snapshot() dynamo.Snapshot {
	return dynamo.Snapshot{
		Field:        b.field,
		Position:     b.pos,
		Velocity:     b.vel,
		Acceleration: b.acc,
	}
}
