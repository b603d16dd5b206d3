package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tiltball/internal/analysis"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/spf13/cobra"
)

type imuFlags struct {
	truth, noisy string
	steps        analysis.StepOptions
	stride       float64
}

func newIMUCmd() *cobra.Command {
	f := &imuFlags{steps: analysis.DefaultStepOptions()}

	imuCmd := &cobra.Command{
		Use:   "imu",
		Short: "Analyse phone motion logs",
	}

	driftCmd := &cobra.Command{
		Use:   "drift <csv>",
		Short: "Double-integrate clean and noisy acceleration and compare",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return imuDrift(cmd.OutOrStdout(), args[0], f)
		},
	}
	driftCmd.Flags().StringVar(&f.truth, "truth", "acceleration", "clean acceleration column")
	driftCmd.Flags().StringVar(&f.noisy, "noisy", "noisyacceleration", "noisy acceleration column")

	stepsCmd := &cobra.Command{
		Use:   "steps <csv>",
		Short: "Count footfalls in acceleration magnitude",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return imuSteps(cmd.OutOrStdout(), args[0], f)
		},
	}

	headingCmd := &cobra.Command{
		Use:   "heading <csv>",
		Short: "Integrate gyro_z into heading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return imuHeading(cmd.OutOrStdout(), args[0])
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path <csv>",
		Short: "Dead-reckon the walked path from steps and heading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return imuPath(cmd.OutOrStdout(), args[0], f)
		},
	}
	pathCmd.Flags().Float64Var(&f.stride, "stride", analysis.DefaultStride, "step length in metres")

	for _, c := range []*cobra.Command{stepsCmd, pathCmd} {
		c.Flags().Float64Var(&f.steps.Height, "height", f.steps.Height, "smoothed magnitude a step must reach (m/s²)")
		c.Flags().Float64Var(&f.steps.Window, "window", f.steps.Window, "smoothing window (s)")
		c.Flags().Float64Var(&f.steps.MinInterval, "min-interval", f.steps.MinInterval, "shortest time between steps (s)")
	}

	imuCmd.AddCommand(driftCmd, stepsCmd, headingCmd, pathCmd)
	return imuCmd
}

func readIMU(path string) (*sensor.IMULog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return sensor.ReadIMU(file)
}

func imuDrift(w io.Writer, path string, f *imuFlags) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	table, err := sensor.ReadTable(file)
	if err != nil {
		return err
	}
	if table.Len() < 2 {
		return errors.New("need at least two samples")
	}
	times, err := table.Column("timestamp", "t")
	if err != nil {
		return err
	}
	truth, err := table.Column(f.truth)
	if err != nil {
		return err
	}
	noisy, err := table.Column(f.noisy)
	if err != nil {
		return err
	}

	dt := times[1] - times[0]
	_, clean := analysis.Integrate(truth, dt)
	_, drifted := analysis.Integrate(noisy, dt)

	fmt.Fprintln(w, asciigraph.PlotMany([][]float64{clean, drifted},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("distance (clean, noisy)"),
	))
	last := len(clean) - 1
	fmt.Fprintf(w, "final distance (clean): %.4f m\n", clean[last])
	fmt.Fprintf(w, "final distance (noisy): %.4f m\n", drifted[last])
	fmt.Fprintf(w, "drift: %.4f m\n", drifted[last]-clean[last])
	return nil
}

func detect(log *sensor.IMULog, opts analysis.StepOptions) ([]int, []float64) {
	mag := analysis.Magnitude(log.AccelX, log.AccelY, log.AccelZ)
	return analysis.DetectSteps(log.Times, mag, opts)
}

func imuSteps(w io.Writer, path string, f *imuFlags) error {
	log, err := readIMU(path)
	if err != nil {
		return err
	}
	steps, smooth := detect(log, f.steps)

	if len(smooth) > 1 {
		fmt.Fprintln(w, asciigraph.Plot(smooth,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("smoothed acceleration magnitude"),
		))
	}
	fmt.Fprintf(w, "steps: %d\n", len(steps))
	for i, idx := range steps {
		fmt.Fprintf(w, "  %3d  t=%.2fs  %.2f m/s²\n", i+1, log.Times[idx], smooth[idx])
	}
	return nil
}

func imuHeading(w io.Writer, path string) error {
	log, err := readIMU(path)
	if err != nil {
		return err
	}
	if !log.HasGyro() {
		return fmt.Errorf("%s has no gyro_z column", path)
	}

	heading := analysis.Heading(log.Times, log.GyroZ)
	degrees := make([]float64, len(heading))
	for i, h := range heading {
		degrees[i] = h * 180 / math.Pi
	}
	if len(degrees) > 1 {
		fmt.Fprintln(w, asciigraph.Plot(degrees,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("heading (deg)"),
		))
	}
	fmt.Fprintf(w, "total turn: %.1f°\n", degrees[len(degrees)-1])
	return nil
}

func imuPath(w io.Writer, path string, f *imuFlags) error {
	log, err := readIMU(path)
	if err != nil {
		return err
	}
	if !log.HasGyro() {
		return fmt.Errorf("%s has no gyro_z column", path)
	}

	steps, _ := detect(log, f.steps)
	heading := analysis.Heading(log.Times, log.GyroZ)
	points := analysis.Trajectory(heading, steps, f.stride)
	end := points[len(points)-1]

	fmt.Fprintf(w, "steps: %d  stride: %.2f m\n", len(steps), f.stride)
	fmt.Fprintf(w, "end: (%.2f, %.2f) m  straight-line %.2f m\n\n", end.X, end.Y, math.Hypot(end.X, end.Y))
	fmt.Fprintln(w, analysis.Plot(points, analysis.BoundsOf(points), 60, 24, false))
	return nil
}
