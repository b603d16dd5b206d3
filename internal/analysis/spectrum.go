package analysis

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

// Peak is the strongest non-DC component of a signal.
type Peak struct {
	Frequency float64
	Period    float64
	Power     float64
}

// Resample linearly interpolates values, taken at times in seconds, onto a
// uniform grid at rate Hz starting at the earliest time. Samples are put in
// time order first; when two share a time the later one wins, so reset
// jumps stay sharp.
func Resample(times, values []float64, rate float64) []float64 {
	n := min(len(times), len(values))
	if n == 0 || rate <= 0 {
		return nil
	}
	times, values = inTimeOrder(times[:n], values[:n])
	t0 := times[0]
	span := times[n-1] - t0
	out := make([]float64, int(math.Floor(span*rate))+1)

	j := 0
	for i := range out {
		t := t0 + float64(i)/rate
		for j+1 < n && times[j+1] <= t {
			j++
		}
		if j+1 >= n || times[j+1] == times[j] {
			out[i] = values[j]
			continue
		}
		f := (t - times[j]) / (times[j+1] - times[j])
		out[i] = values[j] + f*(values[j+1]-values[j])
	}
	return out
}

// inTimeOrder returns the samples sorted by time, keeping the original
// order among equal times. Ordered input is returned as is.
func inTimeOrder(times, values []float64) ([]float64, []float64) {
	if sort.Float64sAreSorted(times) {
		return times, values
	}
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })

	ts := make([]float64, len(idx))
	vs := make([]float64, len(idx))
	for i, k := range idx {
		ts[i], vs[i] = times[k], values[k]
	}
	return ts, vs
}

// PowerSpectrum returns the magnitude of the first half of the DFT of data
// with its mean removed, zero-padded to the next power of two.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	size := 1
	for size < len(data) {
		size *= 2
	}
	centred := make([]float64, size)
	for i, v := range data {
		centred[i] = v - mean
	}

	spectrum := fft.FFTReal(centred)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// Dominant finds the strongest oscillation in data sampled at rate Hz, to
// within one bin of the padded spectrum. A signal without any variation
// yields the zero Peak.
func Dominant(data []float64, rate float64) Peak {
	ps := PowerSpectrum(data)
	best, idx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, idx = ps[i], i
		}
	}
	if idx == 0 || best < 1e-9 {
		return Peak{}
	}
	freq := float64(idx) * rate / float64(2*len(ps))
	return Peak{Frequency: freq, Period: 1 / freq, Power: best}
}
