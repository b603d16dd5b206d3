// Package audio plays a short tone whenever the ball hits a wall. Each wall
// has its own pitch and harder hits are louder.
package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/san-kum/tiltball/internal/dynamo"
)

const (
	SampleRate = 44100
	BufferSize = 512

	// decay is the amplitude time constant of a tone, in seconds.
	decay     = 0.08
	maxVoices = 16
	cutoff    = 2400.0
	// fullSpeed is the impact speed (units/s) that plays at full volume.
	fullSpeed = 1500.0
)

var wallPitch = map[dynamo.Contact]float64{
	dynamo.ContactLeft:   220.00,
	dynamo.ContactRight:  329.63,
	dynamo.ContactTop:    440.00,
	dynamo.ContactBottom: 164.81,
}

type voice struct {
	freq float64
	amp  float64
	age  float64
	pan  float64
}

// Processor is a dynamo.Observer that turns wall contacts into tones.
type Processor struct {
	Stream *portaudio.Stream

	mu      sync.Mutex
	voices  []voice
	lastVel dynamo.Vec2
	filter  [2]float64

	Active bool
}

func NewProcessor() *Processor {
	return &Processor{voices: make([]voice, 0, maxVoices)}
}

func (a *Processor) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, a.ProcessAudio)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audio: start stream: %w", err)
	}
	a.Stream = stream
	a.Active = true
	return nil
}

func (a *Processor) Stop() {
	if a.Stream != nil {
		a.Stream.Stop()
		a.Stream.Close()
		a.Stream = nil
	}
	if a.Active {
		portaudio.Terminate()
	}
	a.Active = false
}

// OnUpdate queues a tone per wall touched. Loudness comes from the velocity
// the ball carried into the wall, which the collision itself zeroes.
func (a *Processor) OnUpdate(u dynamo.Update) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if u.Cause != dynamo.CauseSample {
		a.lastVel = u.Velocity
		return
	}
	for flag, freq := range wallPitch {
		if !u.Contact.Has(flag) {
			continue
		}
		speed := math.Abs(a.lastVel.X)
		pan := -0.8
		switch flag {
		case dynamo.ContactRight:
			pan = 0.8
		case dynamo.ContactTop, dynamo.ContactBottom:
			speed, pan = math.Abs(a.lastVel.Y), 0
		}
		if speed == 0 {
			continue
		}
		if len(a.voices) >= maxVoices {
			a.voices = a.voices[1:]
		}
		a.voices = append(a.voices, voice{freq: freq, amp: math.Min(speed/fullSpeed, 1), pan: pan})
	}
	a.lastVel = u.Velocity
}

// Voices returns the number of tones still sounding.
func (a *Processor) Voices() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.voices)
}

// Triangle wave, softer than a square.
func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4.0*math.Abs(p-0.5) - 1.0
}

// One-pole low pass.
func lpf(sample, cutoff, dt, state float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	return state + alpha*(sample-state)
}

// ProcessAudio is the portaudio callback; it can also be driven directly.
func (a *Processor) ProcessAudio(out [][]float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dt := 1.0 / SampleRate
	for i := range out[0] {
		var l, r float64
		for k := range a.voices {
			v := &a.voices[k]
			env := v.amp * math.Exp(-v.age/decay)
			s := triangle(v.age*v.freq) * env
			l += s * (1 - v.pan) / 2
			r += s * (1 + v.pan) / 2
			v.age += dt
		}
		a.filter[0] = lpf(l, cutoff, dt, a.filter[0])
		a.filter[1] = lpf(r, cutoff, dt, a.filter[1])
		out[0][i] = float32(a.filter[0])
		if len(out) > 1 {
			out[1][i] = float32(a.filter[1])
		}
	}

	// Drop tones below -60 dB.
	live := a.voices[:0]
	for _, v := range a.voices {
		if v.amp*math.Exp(-v.age/decay) > 1e-3 {
			live = append(live, v)
		}
	}
	a.voices = live
}
