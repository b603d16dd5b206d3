package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/tiltball/internal/dynamo"
)

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	a.drawField()
	a.drawTrail()
	a.drawBall()
	if a.dragging {
		a.drawDrag()
	}
	a.DrawHUD()

	rl.EndDrawing()
}

func (a *App) drawField() {
	x, y := a.layout.point(dynamo.Position{})
	w, h := float32(a.Field.Width*a.layout.scale), float32(a.Field.Height*a.layout.scale)
	rl.DrawRectangleLinesEx(rl.NewRectangle(x-2, y-2, w+4, h+4), 2, ColWall)

	// Light up the walls the ball is touching.
	c := a.last.Contact
	if c.Has(dynamo.ContactLeft) {
		rl.DrawLineEx(rl.NewVector2(x-2, y), rl.NewVector2(x-2, y+h), 4, ColHit)
	}
	if c.Has(dynamo.ContactRight) {
		rl.DrawLineEx(rl.NewVector2(x+w+2, y), rl.NewVector2(x+w+2, y+h), 4, ColHit)
	}
	if c.Has(dynamo.ContactTop) {
		rl.DrawLineEx(rl.NewVector2(x, y-2), rl.NewVector2(x+w, y-2), 4, ColHit)
	}
	if c.Has(dynamo.ContactBottom) {
		rl.DrawLineEx(rl.NewVector2(x, y+h+2), rl.NewVector2(x+w, y+h+2), 4, ColHit)
	}
}

func (a *App) drawTrail() {
	n := len(a.trail)
	for i, p := range a.trail {
		x, y, r := a.layout.ballCentre(a.Field, p)
		alpha := float32(i+1) / float32(n+1) * 0.5
		rl.DrawCircleV(rl.NewVector2(x, y), r*0.3, rl.Fade(ColTrail, alpha))
	}
}

func (a *App) drawBall() {
	x, y, r := a.layout.ballCentre(a.Field, a.last.Position)
	col := ColBall
	if a.last.Contact != 0 {
		col = ColHit
	}
	rl.DrawCircleV(rl.NewVector2(x, y), r, col)
}

// drawDrag shows the tilt vector while the mouse is held.
func (a *App) drawDrag() {
	cx, cy := a.layout.fieldCentre(a.Field)
	m := rl.GetMousePosition()
	rl.DrawLineEx(rl.NewVector2(float32(cx), float32(cy)), m, 1, ColTextDim)
	rl.DrawCircleLines(int32(cx), int32(cy), 4, ColTextDim)
}

func (a *App) DrawHUD() {
	rl.DrawText(a.Title, margin, 14, 20, ColBall)
	rl.DrawText(a.Field.String(), margin+rl.MeasureText(a.Title, 20)+12, 18, 14, ColText)

	status := a.status()
	col := ColBall
	switch status {
	case "PAUSED":
		col = ColTextDim
	case "ERROR":
		col = ColHit
	}
	rl.DrawText(status, a.width-margin-rl.MeasureText(status, 16), 16, 16, col)

	rl.DrawText(a.readout(), margin, 38, 12, ColText)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), margin, a.height-16, 10, ColTextDim)
	keys := "[ARROWS/DRAG] TILT  [0] LEVEL  [SPACE] PAUSE  [R] RESET  [Q] QUIT"
	rl.DrawText(keys, a.width-margin-rl.MeasureText(keys, 10), a.height-16, 10, ColTextDim)
}
