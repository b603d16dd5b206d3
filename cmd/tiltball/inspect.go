package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tiltball/internal/analysis"
	"github.com/san-kum/tiltball/internal/export"
	"github.com/san-kum/tiltball/internal/storage"
	"github.com/san-kum/tiltball/internal/viz"
	"github.com/spf13/cobra"
)

// analysisRate is the resampling rate used before spectral analysis.
const analysisRate = 50.0

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

// loadRun fetches a run's metadata and track, failing on an empty track.
func loadRun(cmd *cobra.Command, runID string) (*storage.RunMetadata, *storage.Track, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	track, err := st.LoadTrack(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(track.Times) == 0 {
		return nil, nil, fmt.Errorf("run %s has no data", runID)
	}
	return meta, track, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tTIME\tDURATION\tFIELD\tSTEPS\tRESETS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\t%d\t%d\n",
			run.ID,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Field,
			run.Steps,
			run.Resets,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("field: %s\n", meta.Field)
	fmt.Printf("samples: %d\n\n", len(track.Times))

	xs := make([]float64, len(track.Positions))
	ys := make([]float64, len(track.Positions))
	speeds := make([]float64, len(track.Velocities))
	for i, p := range track.Positions {
		xs[i], ys[i] = p.X, p.Y
	}
	for i, v := range track.Velocities {
		speeds[i] = v.Norm()
	}

	series := []struct {
		data    []float64
		caption string
	}{
		{xs, "x position"},
		{ys, "y position"},
		{speeds, "speed"},
	}
	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func traceRun(cmd *cobra.Command, args []string) error {
	meta, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	if play {
		return viz.Run(viz.NewPlayback(meta.ID, meta.Field, track, theme))
	}

	points := make([]analysis.Point, len(track.Positions))
	half := meta.Field.BallSize / 2
	for i, p := range track.Positions {
		points[i] = analysis.Point{X: p.X + half, Y: p.Y + half}
	}

	fmt.Printf("trace: %s (%s)\n\n", meta.ID, meta.Field)
	fmt.Println(analysis.Plot(points, analysis.FieldBounds(meta.Field), 60, 24, true))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	points := make([]analysis.Point, len(track.Velocities))
	for i, v := range track.Velocities {
		points[i] = analysis.Point{X: v.X, Y: v.Y}
	}
	b := analysis.BoundsOf(points)

	fmt.Printf("phase portrait: %s\n", meta.ID)
	fmt.Printf("vx: [%.1f, %.1f]  vy: [%.1f, %.1f]\n\n", b.MinX, b.MaxX, b.MinY, b.MaxY)
	fmt.Println(analysis.Plot(points, b, 60, 24, false))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	xs := make([]float64, len(track.Positions))
	ys := make([]float64, len(track.Positions))
	for i, p := range track.Positions {
		xs[i], ys[i] = p.X, p.Y
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("duration: %.2fs  resampled at %.0f hz\n\n", meta.Duration, analysisRate)

	for _, axis := range []struct {
		name string
		data []float64
	}{{"x", xs}, {"y", ys}} {
		data := analysis.Resample(track.Times, axis.data, analysisRate)
		if len(data) < 4 {
			return fmt.Errorf("run %s is too short to analyse", meta.ID)
		}
		ps := analysis.PowerSpectrum(data)
		plotData := ps[:max(2, len(ps)/4)]

		graph := asciigraph.Plot(plotData,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", axis.name)),
		)
		fmt.Println(graph)

		peak := analysis.Dominant(data, analysisRate)
		if peak.Frequency == 0 {
			fmt.Printf("%s: no oscillation\n\n", axis.name)
			continue
		}
		fmt.Printf("%s: dominant frequency %.3f hz, period %.3f s\n\n", axis.name, peak.Frequency, peak.Period)
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"time", "x", "y", "vx", "vy"}); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for i := range track.Times {
		p, v := track.Positions[i], track.Velocities[i]
		row := []string{format(track.Times[i]), format(p.X), format(p.Y), format(v.X), format(v.Y)}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, track)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, track, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return export.TrackSVG(out, meta.Field, track, export.DefaultSVGOptions())
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
