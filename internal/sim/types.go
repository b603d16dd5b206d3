package sim

import (
	"fmt"
	"strings"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// ReinitPolicy decides what Initialize does once a ball already exists.
type ReinitPolicy int

const (
	// ReinitIgnore keeps the existing ball whatever the new dimensions are.
	ReinitIgnore ReinitPolicy = iota
	// ReinitReject keeps the existing ball and fails on differing dimensions.
	ReinitReject
	// ReinitReplace discards the existing ball and starts over in the new field.
	ReinitReplace
)

var reinitNames = []string{"ignore", "reject", "replace"}

func (p ReinitPolicy) String() string {
	if p < 0 || int(p) >= len(reinitNames) {
		return fmt.Sprintf("ReinitPolicy(%d)", int(p))
	}
	return reinitNames[p]
}

func ParseReinitPolicy(s string) (ReinitPolicy, error) {
	for i, name := range reinitNames {
		if strings.EqualFold(s, name) {
			return ReinitPolicy(i), nil
		}
	}
	return ReinitIgnore, fmt.Errorf("unknown reinit policy: %s (available: %s)", s, strings.Join(reinitNames, ", "))
}

type Options struct {
	Reinit ReinitPolicy
	// Strict surfaces samples before Initialize and NaN/Inf accelerations
	// as errors instead of absorbing them.
	Strict bool
}

type Result struct {
	Field      dynamo.Field
	Times      []float64
	Positions  []dynamo.Position
	Velocities []dynamo.Vec2
	Contacts   int
	Resets     int
	Samples    int
	StepsTaken int
	Metrics    map[string]float64
	Errors     []error
}

// Final returns the last recorded position, or false for an empty run.
func (r *Result) Final() (dynamo.Position, bool) {
	if len(r.Positions) == 0 {
		return dynamo.Position{}, false
	}
	return r.Positions[len(r.Positions)-1], true
}
