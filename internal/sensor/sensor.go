// Package sensor turns raw gravity readings into simulation samples.
//
// Everything specific to the device lives here: axis inversion, scaling
// from m/s² to field units and the on-disk recording format. The physics
// package never sees a raw reading.
package sensor

import (
	"context"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// Reading is a raw gravity reading in device coordinates (m/s²).
type Reading struct {
	Time  int64
	GX    float64
	GY    float64
	Reset bool
}

// ReadingSource produces readings in time order and io.EOF when drained.
type ReadingSource interface {
	NextReading(ctx context.Context) (Reading, error)
}

// GravityAdapter maps device gravity to field acceleration. With a device
// held upright, tilting its right side down gives a negative GX while the
// ball should roll towards +X, hence InvertX.
type GravityAdapter struct {
	Scale   float64
	InvertX bool
	InvertY bool
}

func (a GravityAdapter) Sample(r Reading) dynamo.Sample {
	ax, ay := r.GX*a.Scale, r.GY*a.Scale
	if a.InvertX {
		ax = -ax
	}
	if a.InvertY {
		ay = -ay
	}
	return dynamo.Sample{Time: r.Time, AccX: ax, AccY: ay, Reset: r.Reset}
}

type adapted struct {
	src     ReadingSource
	adapter GravityAdapter
}

// Adapt exposes a ReadingSource as a dynamo.Source.
func Adapt(src ReadingSource, a GravityAdapter) dynamo.Source {
	return &adapted{src: src, adapter: a}
}

func (s *adapted) Next(ctx context.Context) (dynamo.Sample, error) {
	r, err := s.src.NextReading(ctx)
	if err != nil {
		return dynamo.Sample{}, err
	}
	return s.adapter.Sample(r), nil
}
