package analysis

import (
	"math"
	"sort"
)

// DefaultStride is the walking step length assumed by dead reckoning, in metres.
const DefaultStride = 0.8

// Integrate accumulates acceleration sampled every dt seconds into velocity
// and distance by running sums.
func Integrate(acc []float64, dt float64) (vel, dist []float64) {
	vel = make([]float64, len(acc))
	dist = make([]float64, len(acc))
	var v, d float64
	for i, a := range acc {
		v += a * dt
		d += v * dt
		vel[i], dist[i] = v, d
	}
	return vel, dist
}

func Magnitude(x, y, z []float64) []float64 {
	n := min(len(x), len(y), len(z))
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
	}
	return out
}

// MeanInterval is the average spacing of times, or 0 with fewer than two.
func MeanInterval(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	return (times[len(times)-1] - times[0]) / float64(len(times)-1)
}

// MovingAverage is a centred rolling mean over window samples. Index i
// averages data[i-window/2 : i+(window-1)/2+1]; positions without a full
// window are NaN, as is any window holding a NaN.
func MovingAverage(data []float64, window int) []float64 {
	out := make([]float64, len(data))
	if window < 1 {
		window = 1
	}
	before, after := window/2, (window-1)/2
	for i := range data {
		lo, hi := i-before, i+after
		if lo < 0 || hi >= len(data) {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range data[lo : hi+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// FindPeaks returns the indices of local maxima at least height tall. A flat
// top counts once, at its middle. When peaks lie closer than distance
// samples the tallest survives.
func FindPeaks(data []float64, height float64, distance int) []int {
	var peaks []int
	for i := 1; i < len(data)-1; {
		if !(data[i-1] < data[i]) {
			i++
			continue
		}
		ahead := i + 1
		for ahead < len(data)-1 && data[ahead] == data[i] {
			ahead++
		}
		if data[ahead] < data[i] {
			peaks = append(peaks, (i+ahead-1)/2)
		}
		i = ahead
	}

	tall := peaks[:0]
	for _, p := range peaks {
		if data[p] >= height {
			tall = append(tall, p)
		}
	}
	if distance <= 1 || len(tall) < 2 {
		return tall
	}

	order := make([]int, len(tall))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return data[tall[order[a]]] < data[tall[order[b]]] })

	keep := make([]bool, len(tall))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && tall[j]-tall[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(tall) && tall[k]-tall[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(tall))
	for i, p := range tall {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// StepOptions tunes step detection on acceleration magnitude.
type StepOptions struct {
	Window      float64 // smoothing window, seconds
	MinInterval float64 // shortest time between steps, seconds
	Height      float64 // smoothed magnitude a step must reach, m/s²
}

// DefaultStepOptions suits a phone held while walking: gravity alone reads
// about 9.8 so a step peak has to clear 10.5.
func DefaultStepOptions() StepOptions {
	return StepOptions{Window: 0.2, MinInterval: 0.3, Height: 10.5}
}

// DetectSteps finds footfalls as peaks of the smoothed magnitude. It returns
// the sample index of each step and the smoothed series, with the edges the
// window could not cover set to zero.
func DetectSteps(times, magnitude []float64, opts StepOptions) (steps []int, smooth []float64) {
	n := min(len(times), len(magnitude))
	dt := MeanInterval(times[:n])
	if dt <= 0 {
		return nil, make([]float64, n)
	}

	smooth = MovingAverage(magnitude[:n], max(1, int(opts.Window/dt)))
	for i, v := range smooth {
		if math.IsNaN(v) {
			smooth[i] = 0
		}
	}
	return FindPeaks(smooth, opts.Height, max(1, int(opts.MinInterval/dt))), smooth
}

// Heading integrates yaw rate in rad/s into a heading in radians, zero at
// the first sample.
func Heading(times, gyroZ []float64) []float64 {
	n := min(len(times), len(gyroZ))
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + gyroZ[i]*(times[i]-times[i-1])
	}
	return out
}

// Trajectory dead-reckons a walk from the origin, one stride per step along
// the heading at that step. The result starts with the origin.
func Trajectory(heading []float64, steps []int, stride float64) []Point {
	path := make([]Point, 1, len(steps)+1)
	for _, idx := range steps {
		if idx < 0 || idx >= len(heading) {
			continue
		}
		last := path[len(path)-1]
		h := heading[idx]
		path = append(path, Point{
			X: last.X + stride*math.Cos(h),
			Y: last.Y + stride*math.Sin(h),
		})
	}
	return path
}
