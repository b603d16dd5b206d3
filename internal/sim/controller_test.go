package sim

import (
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tiltball/internal/dynamo"
)

var square = dynamo.Field{Width: 100, Height: 100, BallSize: 10}

type recorder struct {
	mu      sync.Mutex
	updates []dynamo.Update
}

func (r *recorder) OnUpdate(u dynamo.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) causes() []dynamo.Cause {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dynamo.Cause, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Cause
	}
	return out
}

func sample(t int64, ax, ay float64) dynamo.Sample {
	return dynamo.Sample{Time: t, AccX: ax, AccY: ay}
}

var _ = Describe("Controller", func() {
	var (
		ctrl *Controller
		rec  *recorder
	)

	BeforeEach(func() {
		ctrl = NewController(Options{})
		rec = &recorder{}
		ctrl.Subscribe(rec)
	})

	Context("before Initialize", func() {
		It("ignores samples", func() {
			Expect(ctrl.OnSample(sample(0, 1, 1))).To(Succeed())
			Expect(ctrl.OnSample(sample(1e9, 1, 1))).To(Succeed())

			_, ok := ctrl.Position()
			Expect(ok).To(BeFalse())
			Expect(ctrl.Initialized()).To(BeFalse())
			Expect(rec.updates).To(BeEmpty())
		})

		It("tolerates Reset", func() {
			ctrl.Reset()
			Expect(rec.updates).To(BeEmpty())
		})

		It("reports samples in strict mode", func() {
			strict := NewController(Options{Strict: true})
			Expect(strict.OnSample(sample(0, 1, 1))).To(MatchError(dynamo.ErrNotInitialized))
		})

		It("does not forget that no sample was seen", func() {
			Expect(ctrl.OnSample(sample(0, 1, 1))).To(Succeed())
			Expect(ctrl.Initialize(square)).To(Succeed())
			Expect(ctrl.OnSample(sample(5e8, 10, 0))).To(Succeed())

			Expect(rec.causes()).To(Equal([]dynamo.Cause{dynamo.CauseInit}))
		})
	})

	Context("Initialize", func() {
		It("centres the ball and publishes it", func() {
			Expect(ctrl.Initialize(square)).To(Succeed())

			p, ok := ctrl.Position()
			Expect(ok).To(BeTrue())
			Expect(p).To(Equal(dynamo.Position{X: 45, Y: 45}))
			Expect(rec.causes()).To(Equal([]dynamo.Cause{dynamo.CauseInit}))
		})

		It("rejects an invalid field and stays uninitialized", func() {
			err := ctrl.Initialize(dynamo.Field{Width: 5, Height: 5, BallSize: 10})
			Expect(err).To(MatchError(dynamo.ErrInvalidField))
			Expect(ctrl.Initialized()).To(BeFalse())
			Expect(rec.updates).To(BeEmpty())
		})

		It("ignores a second call by default", func() {
			Expect(ctrl.Initialize(square)).To(Succeed())
			Expect(ctrl.Initialize(dynamo.Field{Width: 300, Height: 300, BallSize: 10})).To(Succeed())

			f, _ := ctrl.Field()
			Expect(f).To(Equal(square))
			Expect(rec.updates).To(HaveLen(1))
		})

		It("rejects conflicting dimensions under ReinitReject", func() {
			ctrl = NewController(Options{Reinit: ReinitReject})
			Expect(ctrl.Initialize(square)).To(Succeed())

			Expect(ctrl.Initialize(square)).To(Succeed())
			Expect(ctrl.Initialize(dynamo.Field{Width: 300, Height: 300, BallSize: 10})).
				To(MatchError(dynamo.ErrAlreadyInitialized))

			f, _ := ctrl.Field()
			Expect(f).To(Equal(square))
		})

		It("starts over under ReinitReplace", func() {
			ctrl = NewController(Options{Reinit: ReinitReplace})
			rec = &recorder{}
			ctrl.Subscribe(rec)

			Expect(ctrl.Initialize(square)).To(Succeed())
			Expect(ctrl.OnSample(sample(0, 0, 0))).To(Succeed())

			wide := dynamo.Field{Width: 300, Height: 100, BallSize: 10}
			Expect(ctrl.Initialize(wide)).To(Succeed())

			p, _ := ctrl.Position()
			Expect(p).To(Equal(dynamo.Position{X: 145, Y: 45}))

			// The previous sample time was dropped with the old ball.
			Expect(ctrl.OnSample(sample(1e9, 10, 0))).To(Succeed())
			Expect(rec.causes()).To(Equal([]dynamo.Cause{dynamo.CauseInit, dynamo.CauseInit}))
		})
	})

	Context("OnSample", func() {
		BeforeEach(func() {
			Expect(ctrl.Initialize(square)).To(Succeed())
		})

		It("only records the first timestamp", func() {
			Expect(ctrl.OnSample(sample(0, 10, 0))).To(Succeed())
			Expect(rec.causes()).To(Equal([]dynamo.Cause{dynamo.CauseInit}))
		})

		It("derives dt from consecutive timestamps", func() {
			Expect(ctrl.OnSample(sample(0, 10, 0))).To(Succeed())
			Expect(ctrl.OnSample(sample(500_000_000, 10, 0))).To(Succeed())

			// First real advance is the ball's own bootstrap step.
			p, _ := ctrl.Position()
			Expect(p).To(Equal(dynamo.Position{X: 45, Y: 45}))

			Expect(ctrl.OnSample(sample(1_000_000_000, 10, 0))).To(Succeed())

			snap, ok := ctrl.Snapshot()
			Expect(ok).To(BeTrue())
			Expect(snap.Position.X).To(BeNumerically("~", 45+0.5*10*0.25, 1e-9))
			Expect(snap.Position.Y).To(Equal(45.0))
			Expect(snap.Velocity.X).To(BeNumerically("~", 5, 1e-9))
		})

		It("keeps the published position equal to the ball", func() {
			t := int64(0)
			for i := 0; i < 50; i++ {
				Expect(ctrl.OnSample(sample(t, float64(i*7%23)-11, float64(i*5%17)-8))).To(Succeed())
				t += 16_000_000

				p, _ := ctrl.Position()
				snap, _ := ctrl.Snapshot()
				Expect(p).To(Equal(snap.Position))
			}
		})

		It("reports wall contacts", func() {
			Expect(ctrl.OnSample(sample(0, -1000, 0))).To(Succeed())
			Expect(ctrl.OnSample(sample(1e9, -1000, 0))).To(Succeed())
			Expect(ctrl.OnSample(sample(2e9, -1000, 0))).To(Succeed())

			last := rec.updates[len(rec.updates)-1]
			Expect(last.Contact).To(Equal(dynamo.ContactLeft))
			Expect(last.Position.X).To(Equal(0.0))
			Expect(last.Time).To(Equal(int64(2e9)))
		})

		It("passes NaN through unless strict", func() {
			Expect(ctrl.OnSample(sample(0, math.NaN(), 0))).To(Succeed())

			strict := NewController(Options{Strict: true})
			Expect(strict.Initialize(square)).To(Succeed())
			Expect(strict.OnSample(sample(0, math.Inf(1), 0))).To(MatchError(dynamo.ErrInvalidSample))
		})
	})

	Context("Reset", func() {
		BeforeEach(func() {
			Expect(ctrl.Initialize(square)).To(Succeed())
			for i := int64(0); i < 10; i++ {
				Expect(ctrl.OnSample(sample(i*100_000_000, 30, -20))).To(Succeed())
			}
		})

		It("re-centres and publishes", func() {
			ctrl.Reset()

			snap, _ := ctrl.Snapshot()
			Expect(snap.Position).To(Equal(dynamo.Position{X: 45, Y: 45}))
			Expect(snap.Velocity).To(Equal(dynamo.Vec2{}))
			Expect(snap.Acceleration).To(Equal(dynamo.Vec2{}))
			Expect(rec.updates[len(rec.updates)-1].Cause).To(Equal(dynamo.CauseReset))
		})

		It("clears the previous sample time", func() {
			ctrl.Reset()
			n := len(rec.updates)

			Expect(ctrl.OnSample(sample(5e9, 30, -20))).To(Succeed())
			Expect(rec.updates).To(HaveLen(n))

			Expect(ctrl.OnSample(sample(6e9, 30, -20))).To(Succeed())
			Expect(rec.updates).To(HaveLen(n + 1))
			p, _ := ctrl.Position()
			Expect(p).To(Equal(dynamo.Position{X: 45, Y: 45}))
		})
	})

	Context("Subscribe", func() {
		It("stops delivering after cancel", func() {
			other := &recorder{}
			cancel := ctrl.Subscribe(other)
			Expect(ctrl.Initialize(square)).To(Succeed())
			cancel()
			cancel()
			ctrl.Reset()

			Expect(other.causes()).To(Equal([]dynamo.Cause{dynamo.CauseInit}))
			Expect(rec.causes()).To(Equal([]dynamo.Cause{dynamo.CauseInit, dynamo.CauseReset}))
		})
	})

	It("serialises concurrent callers", func() {
		Expect(ctrl.Initialize(square)).To(Succeed())

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					_ = ctrl.OnSample(sample(int64(i)*10_000_000, float64(g-4)*50, float64(4-g)*50))
					if i%50 == 0 {
						ctrl.Reset()
					}
				}
			}(g)
		}
		wg.Wait()

		p, _ := ctrl.Position()
		Expect(p.X).To(BeNumerically(">=", 0))
		Expect(p.X).To(BeNumerically("<=", square.MaxX()))
		Expect(p.Y).To(BeNumerically(">=", 0))
		Expect(p.Y).To(BeNumerically("<=", square.MaxY()))
	})
})
