package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/flightprop/internal/config"
	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/events"
	"github.com/san-kum/flightprop/internal/metrics"
	"github.com/san-kum/flightprop/internal/models"
	"github.com/san-kum/flightprop/internal/prop"
	"github.com/san-kum/flightprop/internal/storage"
	"github.com/san-kum/flightprop/internal/tableau"
	"github.com/san-kum/flightprop/internal/viz"
)

var (
	dataDir    string
	scheme     string
	start      float64
	duration   float64
	absTol     float64
	relTol     float64
	minStep    float64
	maxStep    float64
	sample     float64
	initX      float64
	initY      float64
	initVX     float64
	initVY     float64
	initZ      float64
	initValue  float64
	impact     bool
	apex       bool
	restit     float64
	timeTol    float64
	configFile string
	preset     string
	frameRate  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flightprop",
		Short: "adaptive ODE propagation with dense output and event detection",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flightprop", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "propagate a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runPropagation,
	}
	addPropagationFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print trajectory CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model]",
		Short: "compare integration schemes on the same model",
		Args:  cobra.ExactArgs(1),
		RunE:  compareSchemes,
	}
	addPropagationFlags(compareCmd)

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "propagate with a live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addPropagationFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, compareCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPropagationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scheme, "scheme", "dopri54", "integration scheme (dopri54, bs32)")
	cmd.Flags().Float64Var(&start, "start", 0, "start time")
	cmd.Flags().Float64Var(&duration, "time", 10.0, "duration (negative for backward)")
	cmd.Flags().Float64Var(&absTol, "abstol", 1e-9, "absolute tolerance")
	cmd.Flags().Float64Var(&relTol, "reltol", 1e-9, "relative tolerance")
	cmd.Flags().Float64Var(&minStep, "min-step", 1e-12, "minimum step size")
	cmd.Flags().Float64Var(&maxStep, "max-step", 1.0, "maximum step size")
	cmd.Flags().Float64Var(&sample, "sample", 0.1, "recording interval")
	cmd.Flags().Float64Var(&initX, "x", 0, "initial x")
	cmd.Flags().Float64Var(&initY, "y", 10, "initial y / altitude")
	cmd.Flags().Float64Var(&initVX, "vx", 5, "initial vx")
	cmd.Flags().Float64Var(&initVY, "vy", 0, "initial vy")
	cmd.Flags().Float64Var(&initZ, "z", 0, "initial z (lorenz)")
	cmd.Flags().Float64Var(&initValue, "value", 1, "initial value (decay)")
	cmd.Flags().BoolVar(&impact, "impact", false, "enable ground-impact detector (ballistic)")
	cmd.Flags().BoolVar(&apex, "apex", false, "enable apex detector (ballistic)")
	cmd.Flags().Float64Var(&restit, "restitution", 0, "bounce restitution, 0 stops at impact")
	cmd.Flags().Float64Var(&timeTol, "time-tol", 1e-9, "event time tolerance")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig merges preset, config file, and CLI flags into one Config.
// Flags win over the file, the file wins over the preset.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg.Model = model
		cfg = fileCfg
	}

	if cmd.Flags().Changed("scheme") || cfg.Scheme == "" {
		cfg.Scheme = scheme
	}
	if cmd.Flags().Changed("start") {
		cfg.Start = start
	}
	if cmd.Flags().Changed("time") || cfg.Duration == 0 {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("abstol") {
		cfg.Tolerance.Abs = absTol
	}
	if cmd.Flags().Changed("reltol") {
		cfg.Tolerance.Rel = relTol
	}
	if cmd.Flags().Changed("min-step") {
		cfg.Steps.Min = minStep
	}
	if cmd.Flags().Changed("max-step") {
		cfg.Steps.Max = maxStep
	}
	if cmd.Flags().Changed("sample") {
		cfg.Sample = sample
	}
	if cmd.Flags().Changed("x") {
		cfg.InitState.X = initX
	}
	if cmd.Flags().Changed("y") {
		cfg.InitState.Y = initY
	}
	if cmd.Flags().Changed("vx") {
		cfg.InitState.VX = initVX
	}
	if cmd.Flags().Changed("vy") {
		cfg.InitState.VY = initVY
	}
	if cmd.Flags().Changed("z") {
		cfg.InitState.Z = initZ
	}
	if cmd.Flags().Changed("value") {
		cfg.InitState.Value = initValue
	}
	if cmd.Flags().Changed("impact") {
		cfg.Detectors.Impact = impact
	}
	if cmd.Flags().Changed("apex") {
		cfg.Detectors.Apex = apex
	}
	if cmd.Flags().Changed("restitution") {
		cfg.Detectors.Restitution = restit
	}
	if cmd.Flags().Changed("time-tol") {
		cfg.Detectors.TimeTol = timeTol
	}
	return cfg, nil
}

func buildEquations(cfg *config.Config) (dynamo.Equations, error) {
	switch cfg.Model {
	case "decay":
		return models.NewDecay(1.0), nil
	case "harmonic":
		return models.NewHarmonic(1.0), nil
	case "kepler":
		return models.NewKepler(1.0), nil
	case "ballistic":
		return models.NewBallistic(), nil
	case "lorenz":
		return models.NewLorenz(), nil
	default:
		return nil, fmt.Errorf("unknown model: %s", cfg.Model)
	}
}

func buildDetectors(cfg *config.Config) []events.Detector {
	if cfg.Model != "ballistic" {
		return nil
	}
	var dets []events.Detector
	if cfg.Detectors.Apex {
		dets = append(dets, &models.Apex{TimeTol: cfg.Detectors.TimeTol})
	}
	if cfg.Detectors.Impact {
		dets = append(dets, &models.GroundImpact{
			Restitution: cfg.Detectors.Restitution,
			TimeTol:     cfg.Detectors.TimeTol,
		})
	}
	return dets
}

func buildPropagator(cfg *config.Config) (*prop.Propagator, dynamo.Equations, error) {
	tab := tableau.ByName(cfg.Scheme)
	if tab == nil {
		return nil, nil, fmt.Errorf("unknown scheme: %s (available: %v)", cfg.Scheme, tableau.Names())
	}
	eqs, err := buildEquations(cfg)
	if err != nil {
		return nil, nil, err
	}
	p := prop.New(eqs, tab)
	for _, d := range buildDetectors(cfg) {
		p.AddDetector(d)
	}
	return p, eqs, nil
}

func runPropagation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	p, eqs, err := buildPropagator(cfg)
	if err != nil {
		return err
	}

	rec := prop.NewRecorder(cfg.Sample)
	p.AddHandler(rec)
	stepStats := metrics.NewStepSize()
	p.AddMetric(stepStats)
	if ham, ok := eqs.(dynamo.Hamiltonian); ok {
		p.AddMetric(metrics.NewEnergyDrift(ham))
	}

	y0 := dynamo.State(cfg.GetInitState())
	fmt.Printf("propagating %s (%s)...\n", cfg.Model, cfg.Scheme)
	begin := time.Now()

	result, err := p.Propagate(context.Background(), cfg.Start, y0, cfg.Start+cfg.Duration, cfg.Engine())
	if err != nil {
		return err
	}
	elapsed := time.Since(begin)

	runID, err := st.Save(cfg.Model, cfg.Scheme, cfg.Engine(), cfg.Start, result, rec)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("final t: %.6f\n", result.T)
	fmt.Printf("steps: %d (rejected %d), evaluations: %d\n",
		result.Stats.Steps, result.Stats.Rejected, result.Stats.Evaluations)
	for _, ev := range result.Events {
		fmt.Printf("event: detector %d fired at t=%.9f (%s)\n", ev.Detector, ev.T, ev.Action)
	}
	if len(result.Metrics) > 0 {
		fmt.Println("metrics:")
		for name, val := range result.Metrics {
			fmt.Printf("  %s: %.6e\n", name, val)
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSCHEME\tSTEPS\tEVENTS\tSTOPPED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%v\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Scheme,
			run.Steps,
			len(run.Events),
			run.Stopped,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, states, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s (%s)\n", meta.Model, meta.Scheme)
	fmt.Printf("samples: %d over [%.3f, %.3f]\n\n", len(times), times[0], times[len(times)-1])

	numVars := len(states[0])
	if numVars > 6 {
		numVars = 6
	}
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][varIdx]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("y%d vs time", varIdx)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	for _, ev := range meta.Events {
		fmt.Printf("event: detector %d at t=%.9f (%s)\n", ev.Detector, ev.T, ev.Action)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	times, states, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no trajectory recorded for %s", args[0])
	}

	fmt.Print("time")
	for i := range states[0] {
		fmt.Printf(",y%d", i)
	}
	fmt.Println()
	for i, y := range states {
		fmt.Printf("%g", times[i])
		for _, v := range y {
			fmt.Printf(",%g", v)
		}
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEME\tSTEPS\tREJECTED\tEVALS\tFINAL STATE")
	for _, name := range tableau.Names() {
		cfg.Scheme = name
		p, _, err := buildPropagator(cfg)
		if err != nil {
			return err
		}
		y0 := dynamo.State(cfg.GetInitState())
		result, err := p.Propagate(context.Background(), cfg.Start, y0, cfg.Start+cfg.Duration, cfg.Engine())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.9f\n",
			name, result.Stats.Steps, result.Stats.Rejected, result.Stats.Evaluations, result.Y[0])
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	p, _, err := buildPropagator(cfg)
	if err != nil {
		return err
	}

	feed := viz.NewFeed(frameRate)
	p.AddHandler(feed)

	go func() {
		y0 := dynamo.State(cfg.GetInitState())
		_, err := p.Propagate(context.Background(), cfg.Start, y0, cfg.Start+cfg.Duration, cfg.Engine())
		feed.Close(err)
	}()

	return viz.Run(feed, cfg.Model)
}
