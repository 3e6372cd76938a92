package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/hipert/internal/config"
	"github.com/san-kum/hipert/internal/experiment"
	"github.com/san-kum/hipert/internal/metrics"
	"github.com/san-kum/hipert/internal/pert"
	"github.com/san-kum/hipert/internal/tui"
	"github.com/san-kum/hipert/internal/viz"
)

var (
	logLevel  string
	logFormat string

	configFile string
	preset     string
	gauge      string
	integrator string
	reltol     float64
	abstol     float64
	tEnd       float64
	samples    int
	maxDepth   int

	showPattern bool
	theme       string
	live        bool
	plotVars    []int

	sweepParam  string
	sweepValues []float64
	sweepModels []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hipert",
		Short:         "assemble and integrate linear perturbation systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logFormat)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")

	assembleCmd := &cobra.Command{
		Use:   "assemble",
		Short: "assemble the system and report its ordering and bandwidth",
		Args:  cobra.NoArgs,
		RunE:  runAssemble,
	}
	addSystemFlags(assembleCmd)
	assembleCmd.Flags().BoolVar(&showPattern, "pattern", false, "print the sparsity pattern before and after reordering")
	assembleCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "colour theme ("+strings.Join(viz.ListThemes(), "|")+")")

	integrateCmd := &cobra.Command{
		Use:   "integrate",
		Short: "integrate the system and plot the potentials",
		Args:  cobra.NoArgs,
		RunE:  runIntegrate,
	}
	addSystemFlags(integrateCmd)
	addIntegrateFlags(integrateCmd)
	integrateCmd.Flags().BoolVar(&live, "live", false, "show a live view while integrating")
	integrateCmd.Flags().IntSliceVar(&plotVars, "plot", nil, "state positions to plot")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "integrate one system per parameter value, concurrently",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSystemFlags(sweepCmd)
	addIntegrateFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "k", "component parameter to vary")
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", []float64{0.1, 1, 10}, "parameter values")
	sweepCmd.Flags().StringSliceVar(&sweepModels, "models", nil, "restrict to components of these models")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGAUGE\tINTEG\tCOMPONENTS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				comps := make([]string, len(cfg.Components))
				for i, c := range cfg.Components {
					comps[i] = fmt.Sprintf("%d:%s", c.ID, c.Model)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, cfg.Gauge, cfg.Integrator, strings.Join(comps, " "))
			}
			return w.Flush()
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			fmt.Printf("gravity:     %s\n", strings.Join(reg.ListGravity(), ", "))
			fmt.Printf("components:  %s\n", strings.Join(reg.ListComponents(), ", "))
			fmt.Printf("backgrounds: %s\n", strings.Join(reg.ListBackgrounds(), ", "))
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	configCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	rootCmd.AddCommand(assembleCmd, integrateCmd, sweepCmd, presetsCmd, modelsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSystemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&gauge, "gauge", config.DefaultGauge, "gauge (synchronous|newtonian|const-curv)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", config.DefaultMaxDepth, "placeholder expansion cap")
}

func addIntegrateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator backend (bdf|rk45)")
	cmd.Flags().Float64Var(&reltol, "reltol", config.DefaultRelTol, "relative tolerance")
	cmd.Flags().Float64Var(&abstol, "abstol", config.DefaultAbsTol, "absolute tolerance")
	cmd.Flags().Float64Var(&tEnd, "t-end", config.DefaultTEnd, "final time")
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "number of output samples")
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch format {
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig layers the preset, the config file and the explicitly set
// flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("gauge") {
		cfg.Gauge = gauge
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = maxDepth
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("reltol") {
		cfg.RelTol = reltol
	}
	if flags.Changed("abstol") {
		cfg.AbsTol = abstol
	}
	if flags.Changed("t-end") {
		cfg.TEnd = tEnd
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
	}
	return cfg, nil
}

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sys, err := experiment.Build(cfg, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}
	defer sys.Close()

	upper, lower := sys.Bandwidth()
	uo, lo := sys.OriginalBandwidth()
	fmt.Println(viz.Summary(sys.Variables(), upper, lower, uo, lo))

	if showPattern {
		before, after, err := sys.SparsityPattern()
		if err != nil {
			return err
		}
		th := viz.GetTheme(theme)
		fmt.Println()
		fmt.Println(viz.Title.Render("original ordering"))
		fmt.Print(viz.RenderPattern(before, th))
		fmt.Println()
		fmt.Println(viz.Title.Render("reverse Cuthill-McKee"))
		fmt.Print(viz.RenderPattern(after, th))
	}
	return nil
}

func runIntegrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, experiment.NewRegistry(), slog.Default())
	if err := exp.Setup(); err != nil {
		return err
	}
	sys := exp.System()
	defer sys.Close()
	ms := metrics.Defaults()
	for _, m := range ms {
		exp.AddObserver(m)
	}

	start := time.Now()
	var result *experiment.Result
	if live {
		result, err = tui.Run(ctx, exp, fmt.Sprintf("%s / %s", cfg.Gauge, cfg.Integrator), cfg.Samples, cfg.TEnd)
	} else {
		fmt.Printf("integrating %d variables with %s...\n", sys.Len(), cfg.Integrator)
		result, err = exp.Run(ctx)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d (rejected %d, failures %d)\n", result.Stats.Steps, result.Stats.Rejected, result.Stats.Failures)
	fmt.Printf("rhs evaluations: %d, jacobians: %d\n", result.Stats.RHSEvals, result.Stats.JacEvals)
	for _, m := range ms {
		fmt.Printf("%s: %.6g\n", m.Name(), m.Value())
	}
	fmt.Println()
	fmt.Println(viz.Plot([][]float64{result.Phi, result.Psi}, "phi, psi", 80, 12))

	for _, p := range plotVars {
		if p < 0 || p >= sys.Len() {
			return fmt.Errorf("plot position %d out of range [0, %d)", p, sys.Len())
		}
		v := variableAt(result.Vars, p)
		fmt.Println()
		fmt.Println(viz.Plot([][]float64{result.Series(p)}, describe(v), 80, 10))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepValues) == 0 {
		return fmt.Errorf("no sweep values")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfgs := experiment.Vary(base, sweepParam, sweepValues, sweepModels...)
	start := time.Now()
	results, err := experiment.Sweep(ctx, cfgs, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}
	fmt.Printf("%d runs completed in %v\n\n", len(results), time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tREJECTED\tPHI(T_END)\tGROWTH\n", strings.ToUpper(sweepParam))
	phis := make([][]float64, len(results))
	for i, r := range results {
		g := metrics.NewGrowth()
		for j, t := range r.Times {
			g.OnSample(experiment.Sample{Index: j, T: t, Y: r.States[j]})
		}
		last := r.Phi[len(r.Phi)-1]
		fmt.Fprintf(w, "%g\t%d\t%d\t%.6g\t%.6g\n", sweepValues[i], r.Stats.Steps, r.Stats.Rejected, last, g.Value())
		phis[i] = r.Phi
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.Plot(phis, "phi per run", 80, 12))
	return nil
}

func variableAt(vars []pert.Variable, pos int) pert.Variable {
	for _, v := range vars {
		if v.Index == pos {
			return v
		}
	}
	return pert.Variable{Index: pos}
}

func describe(v pert.Variable) string {
	if v.Owner == pert.GravityOwner {
		return fmt.Sprintf("y[%d] gravity var %d", v.Index, v.Local)
	}
	return fmt.Sprintf("y[%d] component %d var %d", v.Index, v.Owner, v.Local)
}
