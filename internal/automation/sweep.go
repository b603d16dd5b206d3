package automation

import (
	"context"
	"sort"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/metrics"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/sim"
)

// Sweep runs one scenario across several fields at once.
type Sweep struct {
	Scenario *Scenario
	Fields   map[string]dynamo.Field
	Adapter  sensor.GravityAdapter
	RateHz   float64
	Options  sim.Options
}

// SweepResult holds the outcome for one field.
type SweepResult struct {
	Name    string
	Field   dynamo.Field
	Final   dynamo.Position
	Result  *sim.Result
	Metrics map[string]float64
}

// RunSweep executes the sweep; results are ordered by field name.
func RunSweep(ctx context.Context, sweep *Sweep) ([]SweepResult, error) {
	names := make([]string, 0, len(sweep.Fields))
	for name := range sweep.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]sim.Job, len(names))
	for i, name := range names {
		jobs[i] = sim.Job{
			Name:  name,
			Field: sweep.Fields[name],
			Source: func() (dynamo.Source, error) {
				return sensor.Adapt(sweep.Scenario.Source(sweep.RateHz), sweep.Adapter), nil
			},
		}
	}

	results, err := sim.NewEnsemble(sweep.Options, metrics.Default).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(results))
	for i, res := range results {
		final, _ := res.Final()
		out[i] = SweepResult{
			Name:    names[i],
			Field:   res.Field,
			Final:   final,
			Result:  res,
			Metrics: res.Metrics,
		}
	}
	return out, nil
}
