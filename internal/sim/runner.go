package sim

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// Runner drains a sample source into a Controller and records the track.
type Runner struct {
	ctrl      *Controller
	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

func NewRunner(ctrl *Controller) *Runner {
	return &Runner{
		ctrl:      ctrl,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
}

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

// Run feeds samples until the source returns io.EOF or ctx is done. Samples
// rejected by a strict controller are collected in Result.Errors and the run
// continues. A partial result is returned alongside any error.
func (r *Runner) Run(ctx context.Context, src dynamo.Source) (*Result, error) {
	field, ok := r.ctrl.Field()
	if !ok {
		return nil, fmt.Errorf("run: %w", dynamo.ErrNotInitialized)
	}

	result := &Result{
		Field:      field,
		Times:      make([]float64, 0, 256),
		Positions:  make([]dynamo.Position, 0, 256),
		Velocities: make([]dynamo.Vec2, 0, 256),
		Metrics:    make(map[string]float64),
		Errors:     make([]error, 0),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	var (
		start   int64
		started bool
		now     float64
	)

	record := func(u dynamo.Update) {
		switch u.Cause {
		case dynamo.CauseSample:
			now = float64(u.Time-start) / dynamo.NanosPerSecond
			result.StepsTaken++
			if u.Contact != 0 {
				result.Contacts += u.Contact.Count()
			}
		case dynamo.CauseReset:
			result.Resets++
		}
		result.Times = append(result.Times, now)
		result.Positions = append(result.Positions, u.Position)
		result.Velocities = append(result.Velocities, u.Velocity)

		for _, m := range r.metrics {
			m.Observe(u)
		}
		for _, o := range r.observers {
			o.OnUpdate(u)
		}
	}
	cancel := r.ctrl.Subscribe(dynamo.ObserverFunc(record))
	defer cancel()

	if p, ok := r.ctrl.Position(); ok {
		result.Times = append(result.Times, 0)
		result.Positions = append(result.Positions, p)
		result.Velocities = append(result.Velocities, dynamo.Vec2{})
	}

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			r.collectMetrics(result)
			return result, ctx.Err()
		default:
		}

		s, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.collectMetrics(result)
			return result, fmt.Errorf("read sample %d: %w", i, err)
		}

		if !started {
			start, started = s.Time, true
		}
		result.Samples++

		if s.Reset {
			r.ctrl.Reset()
		}
		if err := r.ctrl.OnSample(s); err != nil {
			result.Errors = append(result.Errors, &dynamo.SampleError{Index: i, Time: s.Time, Wrapped: err})
		}
	}

	r.collectMetrics(result)
	return result, nil
}

func (r *Runner) collectMetrics(result *Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
