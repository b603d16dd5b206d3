package sim

import (
	"fmt"
	"sync"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/physics"
)

// phase is either uninitialized or running; callers never see a ball that
// is only partly built.
type phase interface {
	isPhase()
}

type uninitialized struct{}

type running struct {
	ball *physics.Ball
}

func (uninitialized) isPhase() {}
func (running) isPhase()      {}

type subscription struct {
	id  int
	obs dynamo.Observer
}

// Controller turns a stream of timestamped samples into ball steps and
// publishes the resulting positions. Every exported method holds a single
// mutex for its whole duration, so at most one operation is in flight.
//
// Observers run synchronously under that mutex and must not call back into
// the Controller.
type Controller struct {
	mu   sync.Mutex
	opts Options

	phase phase

	lastTime int64
	hasLast  bool

	latest    dynamo.Position
	published bool

	subs   []subscription
	nextID int
}

func NewController(opts Options) *Controller {
	return &Controller{
		opts:  opts,
		phase: uninitialized{},
	}
}

// Initialize creates and centres the ball the first time the field is known.
// What a second call does depends on the ReinitPolicy.
func (c *Controller) Initialize(field dynamo.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.phase.(running); ok {
		switch c.opts.Reinit {
		case ReinitReject:
			if r.ball.Field() != field {
				return fmt.Errorf("%w: have %gx%g ball %g", dynamo.ErrAlreadyInitialized,
					r.ball.Field().Width, r.ball.Field().Height, r.ball.Field().BallSize)
			}
			return nil
		case ReinitReplace:
		default:
			return nil
		}
	}

	ball, err := physics.NewBall(field)
	if err != nil {
		return err
	}
	c.phase = running{ball: ball}
	c.hasLast = false
	c.publish(dynamo.Update{Cause: dynamo.CauseInit}, ball)
	return nil
}

// OnSample feeds one sample. The first sample after Initialize or Reset only
// records its timestamp; later ones advance the ball by the elapsed time.
func (c *Controller) OnSample(s dynamo.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.phase.(running)
	if !ok {
		if c.opts.Strict {
			return dynamo.ErrNotInitialized
		}
		return nil
	}
	if c.opts.Strict && !s.IsValid() {
		return fmt.Errorf("%w: ax=%g ay=%g", dynamo.ErrInvalidSample, s.AccX, s.AccY)
	}

	if !c.hasLast {
		c.lastTime, c.hasLast = s.Time, true
		return nil
	}

	dt := float64(s.Time-c.lastTime) / dynamo.NanosPerSecond
	contact := r.ball.Advance(s.AccX, s.AccY, dt)
	c.publish(dynamo.Update{Cause: dynamo.CauseSample, Time: s.Time, Contact: contact}, r.ball)
	c.lastTime = s.Time
	return nil
}

// Reset re-centres the ball and forgets the previous sample time.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.phase.(running); ok {
		r.ball.Reset()
		c.publish(dynamo.Update{Cause: dynamo.CauseReset}, r.ball)
	}
	c.hasLast = false
}

func (c *Controller) publish(u dynamo.Update, ball *physics.Ball) {
	u.Position = ball.Position()
	u.Velocity = ball.Velocity()
	c.latest, c.published = u.Position, true
	for _, s := range c.subs {
		s.obs.OnUpdate(u)
	}
}

// Position returns the latest published position, or false before the
// first Initialize.
func (c *Controller) Position() (dynamo.Position, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.published
}

// Snapshot returns the full ball state, or false before Initialize.
func (c *Controller) Snapshot() (dynamo.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.phase.(running)
	if !ok {
		return dynamo.Snapshot{}, false
	}
	return r.ball.Snapshot(), true
}

// Field returns the field in use, or false before Initialize.
func (c *Controller) Field() (dynamo.Field, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.phase.(running)
	if !ok {
		return dynamo.Field{}, false
	}
	return r.ball.Field(), true
}

// Initialized reports whether a ball exists.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.phase.(running)
	return ok
}

// Subscribe registers o for every future update. The returned func removes it.
func (c *Controller) Subscribe(o dynamo.Observer) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscription{id: id, obs: o})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}
