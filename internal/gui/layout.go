package gui

import (
	"math"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// layout maps field coordinates onto window pixels. The field is scaled
// uniformly and centred inside the area below the header.
type layout struct {
	scale  float64
	ox, oy float64
}

// fitWindow picks a window size that shows field at the largest whole
// scale that fits within maxW by maxH, leaving room for the HUD.
func fitWindow(field dynamo.Field, maxW, maxH int32) (w, h int32, l layout) {
	availW := float64(maxW - 2*margin)
	availH := float64(maxH - 2*margin - hudHeight)
	scale := math.Min(availW/field.Width, availH/field.Height)
	if scale >= 1 {
		scale = math.Floor(scale)
	}
	if scale <= 0 {
		scale = 1
	}
	fw, fh := field.Width*scale, field.Height*scale
	w = int32(math.Ceil(fw)) + 2*margin
	h = int32(math.Ceil(fh)) + 2*margin + hudHeight
	w = max(w, minWidth)
	l = layout{
		scale: scale,
		ox:    (float64(w) - fw) / 2,
		oy:    float64(hudHeight + margin),
	}
	return w, h, l
}

func (l layout) point(p dynamo.Position) (x, y float32) {
	return float32(l.ox + p.X*l.scale), float32(l.oy + p.Y*l.scale)
}

// ballCentre returns the pixel centre and radius of a ball whose top-left
// corner sits at p.
func (l layout) ballCentre(field dynamo.Field, p dynamo.Position) (x, y, r float32) {
	half := field.BallSize / 2
	x, y = l.point(dynamo.Position{X: p.X + half, Y: p.Y + half})
	return x, y, float32(half * l.scale)
}

func (l layout) fieldCentre(field dynamo.Field) (x, y float64) {
	return l.ox + field.Width*l.scale/2, l.oy + field.Height*l.scale/2
}

// mouseTilt turns a drag offset from the field centre into device gravity.
// Dragging towards a wall rolls the ball towards it; an offset of radius
// pixels or more is a full tilt.
func mouseTilt(dx, dy, radius float64) (gx, gy float64) {
	if radius <= 0 {
		return 0, 0
	}
	gx = clampTilt(-dx / radius * maxTilt)
	gy = clampTilt(dy / radius * maxTilt)
	return gx, gy
}

// keyTilt eases the current tilt towards the direction held on the keys.
// With nothing held the device levels out again.
func keyTilt(gx, gy float64, left, right, up, down bool, dt float64) (float64, float64) {
	tx, ty := 0.0, 0.0
	if left {
		tx += maxTilt
	}
	if right {
		tx -= maxTilt
	}
	if up {
		ty -= maxTilt
	}
	if down {
		ty += maxTilt
	}
	k := math.Min(1, dt*tiltRate)
	return gx + (tx-gx)*k, gy + (ty-gy)*k
}

func clampTilt(v float64) float64 {
	return max(-maxTilt, min(maxTilt, v))
}
