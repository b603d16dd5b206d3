package physics

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/tiltball/internal/dynamo"
)

var square = dynamo.Field{Width: 100, Height: 100, BallSize: 10}

func newBall(t *testing.T, f dynamo.Field) *Ball {
	t.Helper()
	b, err := NewBall(f)
	if err != nil {
		t.Fatalf("new ball: %v", err)
	}
	return b
}

func TestNewBallCentred(t *testing.T) {
	b := newBall(t, dynamo.Field{Width: 200, Height: 100, BallSize: 20})

	if p := b.Position(); p.X != 90 || p.Y != 40 {
		t.Errorf("expected (90, 40), got (%g, %g)", p.X, p.Y)
	}
	if b.Integrated() {
		t.Error("fresh ball should not have integrated")
	}
}

func TestNewBallInvalidField(t *testing.T) {
	tests := []struct {
		name  string
		field dynamo.Field
	}{
		{"zero width", dynamo.Field{Width: 0, Height: 100, BallSize: 10}},
		{"negative height", dynamo.Field{Width: 100, Height: -1, BallSize: 10}},
		{"zero ball", dynamo.Field{Width: 100, Height: 100, BallSize: 0}},
		{"ball wider than field", dynamo.Field{Width: 5, Height: 100, BallSize: 10}},
		{"ball taller than field", dynamo.Field{Width: 100, Height: 5, BallSize: 10}},
		{"nan", dynamo.Field{Width: math.NaN(), Height: 100, BallSize: 10}},
		{"inf", dynamo.Field{Width: 100, Height: math.Inf(1), BallSize: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBall(tt.field)
			if !errors.Is(err, dynamo.ErrInvalidField) {
				t.Errorf("expected ErrInvalidField, got %v", err)
			}
		})
	}
}

func TestBallFitsExactly(t *testing.T) {
	b := newBall(t, dynamo.Field{Width: 10, Height: 10, BallSize: 10})
	b.Advance(50, -50, 0)
	b.Advance(50, -50, 1)

	if p := b.Position(); p.X != 0 || p.Y != 0 {
		t.Errorf("expected ball pinned at origin, got (%g, %g)", p.X, p.Y)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	b := newBall(t, square)
	b.Advance(3, -7, 0)
	for i := 0; i < 20; i++ {
		b.Advance(float64(i)*3, -float64(i), 0.1)
	}

	for i := 0; i < 2; i++ {
		b.Reset()
		if p := b.Position(); p.X != 45 || p.Y != 45 {
			t.Errorf("reset %d: expected (45, 45), got (%g, %g)", i, p.X, p.Y)
		}
		if v := b.Velocity(); v != (dynamo.Vec2{}) {
			t.Errorf("reset %d: expected zero velocity, got %+v", i, v)
		}
		if a := b.Acceleration(); a != (dynamo.Vec2{}) {
			t.Errorf("reset %d: expected zero acceleration, got %+v", i, a)
		}
		if b.Integrated() {
			t.Errorf("reset %d: bootstrap flag should be cleared", i)
		}
	}
}

func TestBootstrapDoesNotMove(t *testing.T) {
	tests := []struct {
		name       string
		accX, accY float64
		dt         float64
	}{
		{"zero", 0, 0, 0},
		{"large dt", 10, 10, 1000},
		{"negative dt", -5, 3, -2},
		{"huge acceleration", 1e9, -1e9, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBall(t, square)
			c := b.Advance(tt.accX, tt.accY, tt.dt)

			if p := b.Position(); p.X != 45 || p.Y != 45 {
				t.Errorf("bootstrap moved ball to (%g, %g)", p.X, p.Y)
			}
			if v := b.Velocity(); v != (dynamo.Vec2{}) {
				t.Errorf("bootstrap changed velocity to %+v", v)
			}
			if a := b.Acceleration(); a.X != tt.accX || a.Y != tt.accY {
				t.Errorf("bootstrap should record acceleration, got %+v", a)
			}
			if c != 0 {
				t.Errorf("bootstrap reported contact %v", c)
			}
			if !b.Integrated() {
				t.Error("bootstrap should set the integrated flag")
			}
		})
	}
}

func TestBootstrapAfterReset(t *testing.T) {
	b := newBall(t, square)
	b.Advance(10, 10, 0)
	b.Advance(10, 10, 0.5)
	b.Reset()

	b.Advance(40, 40, 1)
	if p := b.Position(); p.X != 45 || p.Y != 45 {
		t.Errorf("first advance after reset moved ball to (%g, %g)", p.X, p.Y)
	}
}

func TestKinematicsInterior(t *testing.T) {
	b := newBall(t, square)
	b.Advance(10, 0, 1)
	b.Advance(10, 0, 1)

	if v := b.Velocity(); v.X != 10 || v.Y != 0 {
		t.Errorf("expected velocity (10, 0), got (%g, %g)", v.X, v.Y)
	}
	if p := b.Position(); p.X != 50 || p.Y != 45 {
		t.Errorf("expected position (50, 45), got (%g, %g)", p.X, p.Y)
	}
}

func TestKinematicsCarriesVelocity(t *testing.T) {
	b := newBall(t, dynamo.Field{Width: 1000, Height: 1000, BallSize: 10})
	b.Advance(0, 4, 0)
	b.Advance(0, 4, 1) // y: 495 + 2 = 497, vy = 4
	b.Advance(0, 4, 1) // y: 497 + 4 + 2 = 503, vy = 8

	if p := b.Position(); math.Abs(p.Y-503) > 1e-9 {
		t.Errorf("expected y=503, got %g", p.Y)
	}
	if v := b.Velocity(); math.Abs(v.Y-8) > 1e-9 {
		t.Errorf("expected vy=8, got %g", v.Y)
	}
}

func TestNegativeDtExtrapolatesBackward(t *testing.T) {
	b := newBall(t, square)
	b.Advance(0, 0, 0)
	b.Advance(4, 0, -1)

	// 45 + 0 + 0.5*4*1 = 47; velocity 4*-1 = -4
	if p := b.Position(); math.Abs(p.X-47) > 1e-9 {
		t.Errorf("expected x=47, got %g", p.X)
	}
	if v := b.Velocity(); math.Abs(v.X+4) > 1e-9 {
		t.Errorf("expected vx=-4, got %g", v.X)
	}
}

func TestCollisionZeroesAxis(t *testing.T) {
	tests := []struct {
		name       string
		accX, accY float64
		wantPos    dynamo.Position
		contact    dynamo.Contact
		clampedX   bool
	}{
		{"left", -1000, 2, dynamo.Position{X: 0, Y: 46}, dynamo.ContactLeft, true},
		{"right", 1000, 2, dynamo.Position{X: 90, Y: 46}, dynamo.ContactRight, true},
		{"top", 2, -1000, dynamo.Position{X: 46, Y: 0}, dynamo.ContactTop, false},
		{"bottom", 2, 1000, dynamo.Position{X: 46, Y: 90}, dynamo.ContactBottom, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBall(t, square)
			b.Advance(tt.accX, tt.accY, 0)
			c := b.Advance(tt.accX, tt.accY, 1)

			if c != tt.contact {
				t.Errorf("expected contact %v, got %v", tt.contact, c)
			}
			if p := b.Position(); p != tt.wantPos {
				t.Errorf("expected position %+v, got %+v", tt.wantPos, p)
			}

			v, a := b.Velocity(), b.Acceleration()
			if tt.clampedX {
				if v.X != 0 || a.X != 0 {
					t.Errorf("x axis should be zeroed, vel %+v acc %+v", v, a)
				}
				if v.Y != 2 || a.Y != 2 {
					t.Errorf("y axis should be untouched, vel %+v acc %+v", v, a)
				}
			} else {
				if v.Y != 0 || a.Y != 0 {
					t.Errorf("y axis should be zeroed, vel %+v acc %+v", v, a)
				}
				if v.X != 2 || a.X != 2 {
					t.Errorf("x axis should be untouched, vel %+v acc %+v", v, a)
				}
			}
		})
	}
}

func TestCornerCollision(t *testing.T) {
	b := newBall(t, square)
	b.Advance(1000, 1000, 0)
	c := b.Advance(1000, 1000, 1)

	if !c.Has(dynamo.ContactRight) || !c.Has(dynamo.ContactBottom) || c.Count() != 2 {
		t.Errorf("expected right|bottom contact, got %v", c)
	}
	if p := b.Position(); p.X != 90 || p.Y != 90 {
		t.Errorf("expected (90, 90), got (%g, %g)", p.X, p.Y)
	}
}

func TestBoundaryIsInBounds(t *testing.T) {
	b := newBall(t, square)
	b.Advance(0, 0, 0)
	// 45 + 0.5*90*1 = 90, exactly on the right wall.
	c := b.Advance(90, 0, 1)

	if c != 0 {
		t.Errorf("landing exactly on the wall should not clamp, got %v", c)
	}
	if p := b.Position(); p.X != 90 {
		t.Errorf("expected x=90, got %g", p.X)
	}
	if v := b.Velocity(); v.X != 90 {
		t.Errorf("velocity should survive, got %g", v.X)
	}
}

func TestContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := dynamo.Field{Width: 320, Height: 180, BallSize: 16}
	b := newBall(t, f)

	for i := 0; i < 10000; i++ {
		accX := (rng.Float64() - 0.5) * 2000
		accY := (rng.Float64() - 0.5) * 2000
		dt := rng.Float64() * 0.2
		if i%500 == 0 {
			b.Reset()
		}
		b.Advance(accX, accY, dt)

		p := b.Position()
		if p.X < 0 || p.X > f.MaxX() || p.Y < 0 || p.Y > f.MaxY() {
			t.Fatalf("step %d: ball escaped to (%g, %g)", i, p.X, p.Y)
		}
	}
}

func BenchmarkAdvance(b *testing.B) {
	ball, _ := NewBall(square)
	ball.Advance(1, 1, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ball.Advance(3, -2, 0.016)
	}
}

func TestSnapshotMatchesAccessors(t *testing.T) {
	b := newBall(t, square)
	b.Advance(10, 0, 1)
	b.Advance(10, 0, 1)

	want := dynamo.Snapshot{
		Field:        square,
		Position:     dynamo.Position{X: 50, Y: 45},
		Velocity:     dynamo.Vec2{X: 10},
		Acceleration: dynamo.Vec2{X: 10},
	}
	if got := b.Snapshot(); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if b.Position() != want.Position || b.Velocity() != want.Velocity ||
		b.Acceleration() != want.Acceleration || b.Field() != square || !b.Integrated() {
		t.Error("accessors disagree with the snapshot")
	}
}
