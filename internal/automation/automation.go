package automation

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/san-kum/tiltball/internal/sensor"
	"gopkg.in/yaml.v3"
)

// Segment kinds.
const (
	KindHold   = "hold"
	KindCircle = "circle"
	KindShake  = "shake"
	KindJitter = "jitter"
)

// Scenario defines a scripted sequence of device tilts.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Seed        int64     `yaml:"seed"`
	Segments    []Segment `yaml:"segments"`
}

// Segment is a stretch of time with one tilt pattern. Gravity is in device
// coordinates (m/s²), before any scaling or axis inversion.
type Segment struct {
	Kind     string  `yaml:"kind"`
	Duration float64 `yaml:"duration"`
	GX       float64 `yaml:"gx"`
	GY       float64 `yaml:"gy"`
	// Magnitude and Period drive circle, shake and jitter segments.
	Magnitude float64 `yaml:"magnitude"`
	Period    float64 `yaml:"period"`
	// Reset asks for a simulation reset when the segment starts.
	Reset bool `yaml:"reset"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if scenario.Name == "" {
		scenario.Name = path
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("scenario %s: no segments", s.Name)
	}
	for i, seg := range s.Segments {
		if seg.Duration <= 0 {
			return fmt.Errorf("scenario %s segment %d: duration must be positive, got %f", s.Name, i+1, seg.Duration)
		}
		switch seg.Kind {
		case "", KindHold:
		case KindCircle, KindShake, KindJitter:
			if seg.Period <= 0 {
				return fmt.Errorf("scenario %s segment %d: %s needs a positive period", s.Name, i+1, seg.Kind)
			}
		default:
			return fmt.Errorf("scenario %s segment %d: unknown kind %q", s.Name, i+1, seg.Kind)
		}
	}
	return nil
}

// Duration is the total scripted time in seconds.
func (s *Scenario) Duration() float64 {
	total := 0.0
	for _, seg := range s.Segments {
		total += seg.Duration
	}
	return total
}

// Tilt returns the scenario as a sensor.TiltFunc. Past the last segment the
// last segment's pattern continues. Each call returns an independent
// function with its own jitter stream.
func (s *Scenario) Tilt() sensor.TiltFunc {
	starts := make([]float64, len(s.Segments))
	acc := 0.0
	for i, seg := range s.Segments {
		starts[i] = acc
		acc += seg.Duration
	}

	rng := rand.New(rand.NewSource(s.Seed))
	var jx, jy float64
	lastJitter := -1

	return func(t, dt float64) (float64, float64, bool) {
		i := sort.Search(len(starts), func(k int) bool { return starts[k] > t }) - 1
		if i < 0 {
			i = 0
		}
		seg := s.Segments[i]
		local := t - starts[i]

		reset := false
		for k, st := range starts {
			if s.Segments[k].Reset && st <= t && st > t-dt {
				reset = true
			}
		}

		switch seg.Kind {
		case KindCircle:
			phase := 2 * math.Pi * local / seg.Period
			return seg.GX + seg.Magnitude*math.Cos(phase), seg.GY + seg.Magnitude*math.Sin(phase), reset
		case KindShake:
			sign := 1.0
			if int(math.Floor(2*local/seg.Period))%2 == 1 {
				sign = -1
			}
			return seg.GX + sign*seg.Magnitude, seg.GY, reset
		case KindJitter:
			tick := int(math.Floor(local / seg.Period))
			if tick != lastJitter {
				jx = (rng.Float64()*2 - 1) * seg.Magnitude
				jy = (rng.Float64()*2 - 1) * seg.Magnitude
				lastJitter = tick
			}
			return seg.GX + jx, seg.GY + jy, reset
		default:
			return seg.GX, seg.GY, reset
		}
	}
}

// Source returns a clocked reading source covering the whole scenario.
func (s *Scenario) Source(rateHz float64) *sensor.Synthetic {
	return sensor.NewSynthetic(s.Tilt(), rateHz, s.Duration(), 0)
}

const earth = 9.81

// Builtin scenarios, in device gravity units.
var Builtin = map[string]*Scenario{
	"roll-right": {
		Name:        "roll-right",
		Description: "tilt right, then back to flat",
		Segments: []Segment{
			{Kind: KindHold, Duration: 3, GX: -3, GY: 0},
			{Kind: KindHold, Duration: 2, GX: 0, GY: 0},
		},
	},
	"corner": {
		Name:        "corner",
		Description: "roll into the bottom-right corner, reset, then the top-left",
		Segments: []Segment{
			{Kind: KindHold, Duration: 4, GX: -5, GY: 5},
			{Kind: KindHold, Duration: 4, GX: 5, GY: -5, Reset: true},
		},
	},
	"circle": {
		Name:        "circle",
		Description: "sweep the tilt around a full circle every 4s",
		Segments: []Segment{
			{Kind: KindCircle, Duration: 12, Magnitude: 4, Period: 4},
		},
	},
	"shake": {
		Name:        "shake",
		Description: "shake left and right while upright",
		Segments: []Segment{
			{Kind: KindShake, Duration: 6, GY: earth, Magnitude: 6, Period: 0.5},
		},
	},
	"drop": {
		Name:        "drop",
		Description: "hold upright so the ball falls to the bottom",
		Segments: []Segment{
			{Kind: KindHold, Duration: 3, GY: earth},
		},
	},
	"jitter": {
		Name:        "jitter",
		Description: "noisy sensor around flat",
		Seed:        7,
		Segments: []Segment{
			{Kind: KindJitter, Duration: 8, Magnitude: 2, Period: 0.1},
		},
	},
}

// GetScenario returns a builtin scenario by name, or loads name as a file.
func GetScenario(name string) (*Scenario, error) {
	if s, ok := Builtin[name]; ok {
		return s, nil
	}
	if _, err := os.Stat(name); err == nil {
		return LoadScenario(name)
	}
	return nil, fmt.Errorf("unknown scenario: %s (available: %v)", name, ListScenarios())
}

func ListScenarios() []string {
	names := make([]string, 0, len(Builtin))
	for name := range Builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
