package viz

import (
	"strings"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// Braille cells hold a 2x4 block of dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille raster. A canvas of cols x rows cells addresses
// (2*cols) x (4*rows) dots.
type Canvas struct {
	cols, rows int
	cells      []rune
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{cols: cols, rows: rows, cells: make([]rune, cols*rows)}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return c.cols * 2, c.rows * 4 }

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBlank
	}
}

// Set lights the dot at (x, y); dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return
	}
	c.cells[(y/4)*c.cols+x/2] |= dotBits[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return false
	}
	return c.cells[(y/4)*c.cols+x/2]&dotBits[y%4][x%2] != 0
}

// Line draws with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Rect outlines the box with corners (x0, y0) and (x1, y1) inclusive.
func (c *Canvas) Rect(x0, y0, x1, y1 int) {
	c.Line(x0, y0, x1, y0)
	c.Line(x1, y0, x1, y1)
	c.Line(x1, y1, x0, y1)
	c.Line(x0, y1, x0, y0)
}

// Disc fills a circle of radius r around (cx, cy).
func (c *Canvas) Disc(cx, cy, r int) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				c.Set(cx+x, cy+y)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.rows * (c.cols*3 + 1))
	for r := 0; r < c.rows; r++ {
		b.WriteString(string(c.cells[r*c.cols : (r+1)*c.cols]))
		if r < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// projection maps field units onto canvas dots, keeping the field's aspect
// ratio and leaving one dot for the wall outline.
type projection struct {
	field  dynamo.Field
	scale  float64
	ox, oy int
}

func newProjection(field dynamo.Field, c *Canvas) projection {
	w, h := c.Dots()
	sx := float64(w-2) / field.Width
	sy := float64(h-2) / field.Height
	scale := min(sx, sy)
	return projection{
		field: field,
		scale: scale,
		ox:    (w - int(field.Width*scale)) / 2,
		oy:    (h - int(field.Height*scale)) / 2,
	}
}

func (p projection) point(x, y float64) (int, int) {
	return p.ox + int(x*p.scale), p.oy + int(y*p.scale)
}

// walls outlines the field.
func (p projection) walls(c *Canvas) {
	x1, y1 := p.point(p.field.Width, p.field.Height)
	c.Rect(p.ox-1, p.oy-1, x1, y1)
}

// ball draws the ball whose top-left corner sits at pos.
func (p projection) ball(c *Canvas, pos dynamo.Position) {
	half := p.field.BallSize / 2
	cx, cy := p.point(pos.X+half, pos.Y+half)
	r := int(half * p.scale)
	if r < 1 {
		r = 1
	}
	c.Disc(cx, cy, r)
}

// trail marks past ball centres.
func (p projection) trail(c *Canvas, path []dynamo.Position) {
	half := p.field.BallSize / 2
	for _, pos := range path {
		c.Set(p.point(pos.X+half, pos.Y+half))
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
