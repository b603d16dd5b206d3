package audio

import (
	"math"
	"testing"

	"github.com/san-kum/tiltball/internal/dynamo"
)

func buffers(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func peak(buf []float32) float64 {
	m := 0.0
	for _, v := range buf {
		m = math.Max(m, math.Abs(float64(v)))
	}
	return m
}

func TestSilentWithoutContacts(t *testing.T) {
	p := NewProcessor()
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Velocity: dynamo.Vec2{X: 500}})

	out := buffers(BufferSize)
	p.ProcessAudio(out)
	if peak(out[0]) != 0 || peak(out[1]) != 0 {
		t.Error("expected silence")
	}
}

func TestWallHitPlaysPannedTone(t *testing.T) {
	p := NewProcessor()
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Velocity: dynamo.Vec2{X: 800}})
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Contact: dynamo.ContactRight})

	if p.Voices() != 1 {
		t.Fatalf("expected one tone, got %d", p.Voices())
	}

	out := buffers(BufferSize)
	p.ProcessAudio(out)
	left, right := peak(out[0]), peak(out[1])
	if right == 0 || right <= left {
		t.Errorf("expected the right wall to sound on the right, left=%g right=%g", left, right)
	}
}

func TestRestingContactIsSilent(t *testing.T) {
	p := NewProcessor()
	// Resting against the wall: the velocity into it is already zero.
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Contact: dynamo.ContactBottom})
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Contact: dynamo.ContactBottom})
	if p.Voices() != 0 {
		t.Errorf("expected no tone for a resting ball, got %d", p.Voices())
	}
}

func TestTonesDecay(t *testing.T) {
	p := NewProcessor()
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Velocity: dynamo.Vec2{Y: fullSpeed * 2}})
	p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Contact: dynamo.ContactBottom})

	out := buffers(BufferSize)
	// -60 dB at full volume takes decay*ln(1000) ≈ 0.55s.
	for i := 0; i < SampleRate/BufferSize; i++ {
		p.ProcessAudio(out)
	}
	if p.Voices() != 0 {
		t.Errorf("expected tones to finish within a second, %d left", p.Voices())
	}
}

func TestVoiceLimit(t *testing.T) {
	p := NewProcessor()
	for i := 0; i < 3*maxVoices; i++ {
		p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Velocity: dynamo.Vec2{X: 100}})
		p.OnUpdate(dynamo.Update{Cause: dynamo.CauseSample, Contact: dynamo.ContactLeft})
	}
	if p.Voices() != maxVoices {
		t.Errorf("expected %d voices, got %d", maxVoices, p.Voices())
	}
}
