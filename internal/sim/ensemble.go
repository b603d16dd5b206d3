package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/tiltball/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an Ensemble. Source is called once, from
// the goroutine that runs the job.
type Job struct {
	Name   string
	Field  dynamo.Field
	Source func() (dynamo.Source, error)
}

// Ensemble runs several jobs concurrently, each with its own Controller.
type Ensemble struct {
	opts    Options
	metrics func() []dynamo.Metric
	limit   int
}

// NewEnsemble builds an ensemble; metrics, when non-nil, is called once per
// job so that metric state is never shared between goroutines.
func NewEnsemble(opts Options, metrics func() []dynamo.Metric) *Ensemble {
	return &Ensemble{opts: opts, metrics: metrics, limit: 4}
}

func (e *Ensemble) SetLimit(n int) { e.limit = n }

func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			ctrl := NewController(e.opts)
			if err := ctrl.Initialize(job.Field); err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}

			src, err := job.Source()
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}

			r := NewRunner(ctrl)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					r.AddMetric(m)
				}
			}

			res, err := r.Run(ctx, src)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
