// Package export renders stored runs into shareable formats.
package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/storage"
)

type SVGOptions struct {
	// Width of the image in pixels; the height follows the field's aspect.
	Width       int
	Background  string
	Wall        string
	Stroke      string
	Ball        string
	MarkContact bool
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:       360,
		Background:  "#0a0a0a",
		Wall:        "#444466",
		Stroke:      "#00ffff",
		Ball:        "#ff00ff",
		MarkContact: true,
	}
}

// TrackSVG draws the field, the path of the ball centre and the ball at its
// final position. Reset jumps (two points at the same time) start a new
// subpath instead of drawing a line across the field.
func TrackSVG(w io.Writer, field dynamo.Field, track *storage.Track, opts SVGOptions) error {
	if err := field.Validate(); err != nil {
		return err
	}
	if opts.Width <= 0 {
		opts.Width = DefaultSVGOptions().Width
	}
	scale := float64(opts.Width) / field.Width
	width, height := float64(opts.Width), field.Height*scale
	half := field.BallSize / 2

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<rect x="0.5" y="0.5" width="%.1f" height="%.1f" fill="none" stroke="%s"/>
`, width, height, width, height, opts.Background, width-1, height-1, opts.Wall)

	if n := len(track.Positions); n > 0 {
		bw.WriteString(`<path fill="none" stroke="` + opts.Stroke + `" stroke-width="1.5" d="`)
		for i, p := range track.Positions {
			x, y := (p.X+half)*scale, (p.Y+half)*scale
			cmd := "L"
			if i == 0 || (i < len(track.Times) && track.Times[i] == track.Times[i-1]) {
				cmd = "M"
			}
			if i > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%s%.1f,%.1f", cmd, x, y)
		}
		bw.WriteString("\"/>\n")

		if opts.MarkContact {
			for _, p := range track.Positions {
				if touching(field, p) {
					fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"1.5\" fill=\"%s\"/>\n",
						(p.X+half)*scale, (p.Y+half)*scale, opts.Wall)
				}
			}
		}

		last := track.Positions[n-1]
		fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\"/>\n",
			(last.X+half)*scale, (last.Y+half)*scale, half*scale, opts.Ball)
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func touching(f dynamo.Field, p dynamo.Position) bool {
	return p.X <= 0 || p.Y <= 0 || p.X >= f.MaxX() || p.Y >= f.MaxY()
}
