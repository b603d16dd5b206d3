package analysis

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sim"
)

type sampleList struct {
	samples []dynamo.Sample
	i       int
}

func (s *sampleList) Next(ctx context.Context) (dynamo.Sample, error) {
	if s.i >= len(s.samples) {
		return dynamo.Sample{}, io.EOF
	}
	s.i++
	return s.samples[s.i-1], nil
}

func TestResampleUniform(t *testing.T) {
	times := []float64{0, 1, 2}
	values := []float64{0, 10, 30}

	got := Resample(times, values, 2)
	want := []float64{0, 5, 10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d: expected %g, got %g", i, want[i], got[i])
		}
	}
}

func TestResampleDuplicateTimes(t *testing.T) {
	// A reset records a second point at the same time.
	times := []float64{0, 1, 1, 2}
	values := []float64{0, 90, 45, 45}

	got := Resample(times, values, 1)
	if got[1] != 45 {
		t.Errorf("expected the later value at a duplicate time, got %g", got[1])
	}
}

func TestResampleNonMonotonic(t *testing.T) {
	times := []float64{0, 1, 2, -4}
	values := []float64{45, 50, 60, 10}

	got := Resample(times, values, 1)
	want := []float64{10, 18.75, 27.5, 36.25, 45, 50, 60}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d: expected %g, got %g", i, want[i], got[i])
		}
	}
	if times[3] != -4 || values[3] != 10 {
		t.Error("input slices were reordered")
	}
}

func TestResampleRunWithBackwardTimestamp(t *testing.T) {
	ctrl := sim.NewController(sim.Options{})
	if err := ctrl.Initialize(dynamo.Field{Width: 100, Height: 100, BallSize: 10}); err != nil {
		t.Fatal(err)
	}
	src := &sampleList{}
	for _, ts := range []int64{5e9, 6e9, 7e9, 1e9} {
		src.samples = append(src.samples, dynamo.Sample{Time: ts, AccX: 10})
	}

	res, err := sim.NewRunner(ctrl).Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	xs := make([]float64, len(res.Positions))
	for i, p := range res.Positions {
		xs[i] = p.X
	}

	got := Resample(res.Times, xs, 50)
	lo, hi := res.Times[0], res.Times[0]
	for _, ts := range res.Times {
		lo, hi = min(lo, ts), max(hi, ts)
	}
	if want := int(math.Floor((hi-lo)*50)) + 1; len(got) != want {
		t.Errorf("expected %d samples over the full span, got %d", want, len(got))
	}
}

func TestPowerSpectrumPadsToPowerOfTwo(t *testing.T) {
	data := make([]float64, 300)
	for i := range data {
		data[i] = math.Sin(float64(i))
	}
	if got := len(PowerSpectrum(data)); got != 256 {
		t.Errorf("expected 256 bins from a 512-point transform, got %d", got)
	}
}

func TestDominantFrequencyPadded(t *testing.T) {
	const rate = 50.0
	data := make([]float64, 400)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 2 * float64(i) / rate)
	}

	// 400 samples pad to 512, so bins are rate/512 Hz apart.
	peak := Dominant(data, rate)
	if math.Abs(peak.Frequency-2) > rate/512 {
		t.Errorf("expected about 2 Hz, got %g", peak.Frequency)
	}
}

func TestResampleEmpty(t *testing.T) {
	if Resample(nil, nil, 50) != nil {
		t.Error("expected nil for empty input")
	}
	if Resample([]float64{0}, []float64{1}, 0) != nil {
		t.Error("expected nil for zero rate")
	}
}

func TestDominantFrequency(t *testing.T) {
	const rate = 50.0
	data := make([]float64, 512)
	for i := range data {
		ts := float64(i) / rate
		data[i] = 300 + 100*math.Sin(2*math.Pi*0.5*ts)
	}

	peak := Dominant(data, rate)
	if math.Abs(peak.Frequency-0.5) > 1e-9 {
		t.Errorf("expected 0.5 Hz, got %g", peak.Frequency)
	}
	if math.Abs(peak.Period-2) > 1e-9 {
		t.Errorf("expected 2s period, got %g", peak.Period)
	}
}

func TestDominantFlat(t *testing.T) {
	data := []float64{45, 45, 45, 45, 45, 45, 45, 45}
	if p := Dominant(data, 50); p != (Peak{}) {
		t.Errorf("expected no peak, got %+v", p)
	}
}

func TestPlotScreenY(t *testing.T) {
	field := dynamo.Field{Width: 100, Height: 100, BallSize: 10}
	points := []Point{{0, 0}, {50, 50}, {100, 100}}

	out := Plot(points, FieldBounds(field), 11, 11, true)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 rows, got %d", len(lines))
	}
	if []rune(lines[0])[0] != 'S' {
		t.Errorf("expected start in the top-left, got %q", lines[0])
	}
	if []rune(lines[10])[10] != 'E' {
		t.Errorf("expected end in the bottom-right, got %q", lines[10])
	}
	if []rune(lines[5])[5] != '•' {
		t.Errorf("expected midpoint marked, got %q", lines[5])
	}
}

func TestPlotPhaseAxes(t *testing.T) {
	points := []Point{{-1, -1}, {1, 1}}
	out := Plot(points, BoundsOf(points), 21, 11, false)
	if !strings.Contains(out, "│") || !strings.Contains(out, "─") {
		t.Errorf("expected axes through the origin:\n%s", out)
	}
	start, end := -1, -1
	for i, line := range strings.Split(out, "\n") {
		if strings.ContainsRune(line, 'S') {
			start = i
		}
		if strings.ContainsRune(line, 'E') {
			end = i
		}
	}
	if end < 0 || start < 0 || end >= start {
		t.Errorf("expected the end point above the start:\n%s", out)
	}
}
