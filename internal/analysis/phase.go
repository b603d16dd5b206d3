package analysis

import (
	"strings"

	"github.com/san-kum/tiltball/internal/dynamo"
)

type Point struct{ X, Y float64 }

type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// FieldBounds spans the whole field, so a track plot shows the walls.
func FieldBounds(f dynamo.Field) Bounds {
	return Bounds{MaxX: f.Width, MaxY: f.Height}
}

// BoundsOf fits the points with 10% padding on each side.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{MaxX: 1, MaxY: 1}
	}
	b := Bounds{MinX: points[0].X, MaxX: points[0].X, MinY: points[0].Y, MaxY: points[0].Y}
	for _, p := range points {
		b.MinX, b.MaxX = min(b.MinX, p.X), max(b.MaxX, p.X)
		b.MinY, b.MaxY = min(b.MinY, p.Y), max(b.MaxY, p.Y)
	}

	rangeX, rangeY := b.MaxX-b.MinX, b.MaxY-b.MinY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.MinX -= rangeX * 0.1
	b.MaxX += rangeX * 0.1
	b.MinY -= rangeY * 0.1
	b.MaxY += rangeY * 0.1
	return b
}

// Plot renders points as ASCII. With screenY the Y axis grows downwards as
// it does on the field; otherwise up, with axes drawn through zero.
func Plot(points []Point, b Bounds, width, height int, screenY bool) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	rangeX, rangeY := b.MaxX-b.MinX, b.MaxY-b.MinY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	cell := func(x, y float64) (int, int) {
		col := int((x - b.MinX) / rangeX * float64(width-1))
		row := int((y - b.MinY) / rangeY * float64(height-1))
		if !screenY {
			row = height - 1 - row
		}
		return col, row
	}

	if !screenY {
		if b.MinX <= 0 && b.MaxX >= 0 {
			col, _ := cell(0, b.MinY)
			for row := 0; row < height; row++ {
				canvas[row][col] = '│'
			}
		}
		if b.MinY <= 0 && b.MaxY >= 0 {
			_, row := cell(b.MinX, 0)
			for col := 0; col < width; col++ {
				canvas[row][col] = '─'
			}
		}
	}

	for i, p := range points {
		col, row := cell(p.X, p.Y)
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		switch i {
		case 0:
			canvas[row][col] = 'S'
		case len(points) - 1:
			canvas[row][col] = 'E'
		default:
			if canvas[row][col] != 'S' {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
