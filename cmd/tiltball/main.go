package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/san-kum/tiltball/internal/automation"
	"github.com/san-kum/tiltball/internal/config"
	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/gui"
	"github.com/san-kum/tiltball/internal/metrics"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/server"
	"github.com/san-kum/tiltball/internal/sim"
	"github.com/san-kum/tiltball/internal/storage"
	"github.com/san-kum/tiltball/internal/tui"
	"github.com/san-kum/tiltball/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	envFile    string
	preset     string
	width      float64
	height     float64
	ballSize   float64
	scale      float64
	rateHz     float64
	duration   float64
	reinit     string
	strict     bool

	// run / replay
	runName   string
	watch     bool
	frameRate int
	noSave    bool

	outFile string
	theme   string
	sound   bool
	preInit bool
	play    bool
	fields  []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd registers every tiltball command and its flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tiltball",
		Short:         "tilt-driven ball simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&envFile, "env", ".env", "dotenv file with TILTBALL_* overrides")
	pf.StringVar(&preset, "preset", "", "field preset")
	pf.Float64Var(&width, "width", config.DefaultWidth, "field width")
	pf.Float64Var(&height, "height", config.DefaultHeight, "field height")
	pf.Float64Var(&ballSize, "size", config.DefaultBallSize, "ball size")
	pf.Float64Var(&scale, "scale", config.DefaultScale, "gravity to acceleration factor")
	pf.Float64Var(&rateHz, "rate", config.DefaultRateHz, "synthetic sample rate (Hz)")
	pf.Float64Var(&duration, "time", 0, "synthetic duration in seconds (default: scenario length)")
	pf.StringVar(&reinit, "reinit", "ignore", "repeated initialize policy (ignore|replace|reject)")
	pf.BoolVar(&strict, "strict", false, "report rejected samples as errors")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario or the configured source and save the track",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&runName, "name", "", "run name")
	runCmd.Flags().BoolVar(&watch, "watch", false, "draw ASCII frames while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --watch")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	replayCmd := &cobra.Command{
		Use:   "replay <csv>",
		Short: "feed a recorded sensor log through the simulator",
		Args:  cobra.ExactArgs(1),
		RunE:  replayLog,
	}
	replayCmd.Flags().StringVar(&runName, "name", "", "run name")
	replayCmd.Flags().BoolVar(&watch, "watch", false, "draw ASCII frames in real time")
	replayCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --watch")
	replayCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	recordCmd := &cobra.Command{
		Use:   "record [scenario]",
		Short: "write a scenario's sensor readings as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  recordScenario,
	}
	recordCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "tilt the ball with the keyboard in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "colour theme ("+strings.Join(viz.ThemeNames(), "|")+")")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "tilt the ball in a desktop window",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	guiCmd.Flags().BoolVar(&sound, "sound", false, "play a tone on wall hits")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "accept samples from a device over websocket",
		Args:  cobra.NoArgs,
		RunE:  runServer,
	}
	serveCmd.Flags().BoolVar(&preInit, "init", false, "initialize with the configured field before any client connects")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "run one scenario across several field presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringSliceVar(&fields, "fields", nil, "presets to compare (default all)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot <run_id>",
		Short: "plot position and speed over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	traceCmd := &cobra.Command{
		Use:   "trace <run_id>",
		Short: "draw the ball's path inside the field",
		Args:  cobra.ExactArgs(1),
		RunE:  traceRun,
	}
	traceCmd.Flags().BoolVar(&play, "play", false, "replay the track interactively")
	traceCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "colour theme for --play")

	phaseCmd := &cobra.Command{
		Use:   "phase <run_id>",
		Short: "velocity phase portrait (vx vs vy)",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <run_id>",
		Short: "frequency analysis of the position",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export <run_id>",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv <run_id>",
		Short: "export the track as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json <run_id>",
		Short: "export metadata and track as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg <run_id>",
		Short: "draw the track as an SVG image",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list field presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tWIDTH\tHEIGHT\tBALL")
			for _, name := range config.ListPresets() {
				f := config.Presets[name]
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\n", name, f.Width, f.Height, f.BallSize)
			}
			return w.Flush()
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in tilt scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLENGTH\tDESCRIPTION")
			for _, name := range automation.ListScenarios() {
				s := automation.Builtin[name]
				fmt.Fprintf(w, "%s\t%.1fs\t%s\n", name, s.Duration(), s.Description)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, replayCmd, recordCmd, liveCmd, guiCmd, serveCmd, sweepCmd,
		listCmd, plotCmd, traceCmd, phaseCmd, analyzeCmd,
		exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, scenariosCmd,
		newIMUCmd())

	return rootCmd
}

// loadConfig resolves the effective configuration. Later layers win:
// defaults, --preset, --config, environment, then explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		if err := cfg.Merge(configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("width") {
		cfg.Field.Width = width
	}
	if flags.Changed("height") {
		cfg.Field.Height = height
	}
	if flags.Changed("size") {
		cfg.Field.BallSize = ballSize
	}
	if flags.Changed("scale") {
		cfg.Source.Scale = scale
	}
	if flags.Changed("rate") {
		cfg.Source.RateHz = rateHz
	}
	if flags.Changed("time") {
		cfg.Source.Duration = duration
	}
	if flags.Changed("reinit") {
		cfg.Controller.Reinit = reinit
	}
	if flags.Changed("strict") {
		cfg.Controller.Strict = strict
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func adapterFor(cfg *config.Config) sensor.GravityAdapter {
	return sensor.GravityAdapter{
		Scale:   cfg.Source.Scale,
		InvertX: cfg.Source.InvertX,
		InvertY: cfg.Source.InvertY,
	}
}

// newController builds a controller and initializes it with the configured
// field.
func newController(cfg *config.Config) (*sim.Controller, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	ctrl := sim.NewController(opts)
	if err := ctrl.Initialize(cfg.Field); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// scenarioSource picks the scenario named by args or the config and returns
// its readings. --time overrides the scenario length.
func scenarioSource(cmd *cobra.Command, cfg *config.Config, args []string) (*automation.Scenario, *sensor.Synthetic, error) {
	name := cfg.Source.Scenario
	if len(args) > 0 {
		name = args[0]
	}
	sc, err := automation.GetScenario(name)
	if err != nil {
		return nil, nil, err
	}
	length := sc.Duration()
	if cmd.Flags().Changed("time") {
		length = cfg.Source.Duration
	}
	return sc, sensor.NewSynthetic(sc.Tilt(), cfg.Source.RateHz, length, 0), nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if len(args) == 0 && cfg.Source.Kind == config.SourceCSV {
		return replayFile(cmd, cfg, cfg.Source.Path)
	}

	sc, src, err := scenarioSource(cmd, cfg, args)
	if err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = sc.Name
	}
	return execute(cmd.Context(), cfg, storage.RunInfo{Name: name, Source: "scenario:" + sc.Name}, src)
}

func replayLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return replayFile(cmd, cfg, args[0])
}

func replayFile(cmd *cobra.Command, cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := sensor.NewCSVReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	name := runName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return execute(cmd.Context(), cfg, storage.RunInfo{Name: name, Source: "csv:" + path}, reader)
}

// execute drains src through a fresh controller, prints a summary and
// stores the run.
func execute(ctx context.Context, cfg *config.Config, info storage.RunInfo, src sensor.ReadingSource) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	info.Reinit = cfg.Controller.Reinit
	info.Strict = cfg.Controller.Strict

	runner := sim.NewRunner(ctrl)
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}

	var renderer *tui.LiveRenderer
	if watch {
		renderer = tui.NewLiveRenderer(os.Stdout, info.Name, cfg.Field, frameRate)
		renderer.Pace = true
		renderer.Start()
		defer renderer.Stop()
		runner.AddObserver(renderer)
	} else {
		fmt.Printf("running %s on %s...\n", info.Name, cfg.Field)
	}

	start := time.Now()
	result, err := runner.Run(ctx, sensor.Adapt(src, adapterFor(cfg)))
	if err != nil && result == nil {
		return err
	}
	elapsed := time.Since(start)

	if watch {
		fmt.Println()
	}
	fmt.Printf("completed in %v\n", elapsed)
	printSummary(os.Stdout, result)

	if !noSave {
		st := storage.New(cfg.DataDir)
		if serr := st.Init(); serr != nil {
			return serr
		}
		runID, serr := st.Save(info, result)
		if serr != nil {
			return serr
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return err
}

func printSummary(w io.Writer, result *sim.Result) {
	fmt.Fprintf(w, "samples: %d  steps: %d  resets: %d  contacts: %d\n",
		result.Samples, result.StepsTaken, result.Resets, result.Contacts)
	if final, ok := result.Final(); ok {
		fmt.Fprintf(w, "final position: (%.2f, %.2f)\n", final.X, final.Y)
	}
	if n := len(result.Errors); n > 0 {
		fmt.Fprintf(w, "rejected samples: %d (first: %v)\n", n, result.Errors[0])
	}
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Fprintf(w, "  %s: %.6f\n", name, result.Metrics[name])
	}
}

func recordScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	_, src, err := scenarioSource(cmd, cfg, args)
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

	w, err := sensor.NewCSVWriter(out)
	if err != nil {
		return err
	}
	n, err := sensor.Copy(context.Background(), w, src)
	if err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("wrote %d readings to %s\n", n, outFile)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}

	m := viz.NewModel(ctrl, adapterFor(cfg), "tiltball", theme)
	defer m.Close()
	return viz.Run(m)
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	return gui.Run(ctrl, adapterFor(cfg), gui.Options{Title: "tiltball", Sound: sound})
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	ctrl := sim.NewController(opts)
	if preInit {
		if err := ctrl.Initialize(cfg.Field); err != nil {
			return err
		}
	}

	logger := log.New(os.Stderr, "[tiltball] ", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server.Addr, ctrl, adapterFor(cfg), cfg.Server.BroadcastHz, logger)
	return srv.ListenAndServe(ctx)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name := cfg.Source.Scenario
	if len(args) > 0 {
		name = args[0]
	}
	sc, err := automation.GetScenario(name)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	names := fields
	if len(names) == 0 {
		names = config.ListPresets()
	}
	set := make(map[string]dynamo.Field, len(names))
	for _, n := range names {
		f, ok := config.Presets[n]
		if !ok {
			return fmt.Errorf("unknown preset: %s (available: %v)", n, config.ListPresets())
		}
		set[n] = f
	}

	results, err := automation.RunSweep(context.Background(), &automation.Sweep{
		Scenario: sc,
		Fields:   set,
		Adapter:  adapterFor(cfg),
		RateHz:   cfg.Source.RateHz,
		Options:  opts,
	})
	if err != nil {
		return err
	}

	fmt.Printf("sweep %s across %d fields\n\n", sc.Name, len(results))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tSIZE\tFINAL X\tFINAL Y\tCOLLISIONS\tPATH\tMAX SPEED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.0f\t%.1f\t%.1f\n",
			r.Name, r.Field, r.Final.X, r.Final.Y,
			r.Metrics["collisions"], r.Metrics["path_length"], r.Metrics["max_speed"])
	}
	return w.Flush()
}
