package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/san-kum/circuitsim/internal/analysis"
	"github.com/san-kum/circuitsim/internal/chart"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/experiment"
	"github.com/san-kum/circuitsim/internal/export"
	"github.com/san-kum/circuitsim/internal/metrics"
	"github.com/san-kum/circuitsim/internal/storage"
	"github.com/san-kum/circuitsim/internal/transient"
	"github.com/san-kum/circuitsim/internal/tui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const circuitFile = "circuit.yaml"

var (
	dataDir  string
	logLevel string
	logger   *log.Logger

	configFile  string
	preset      string
	h           float64
	tmax        float64
	solver      string
	probes      []string
	csvPath     string
	chartPath   string
	precision   int
	printMatrix bool
	noSave      bool

	outPath string
	raw     bool
	levels  int
	width   int
	height  int
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "circuitsim",
		Short: "transient circuit simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive(logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".circuitsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a transient simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	circuitFlags(runCmd)
	runCmd.Flags().StringVar(&csvPath, "csv", "", "stream probes to a CSV file")
	runCmd.Flags().StringVar(&chartPath, "chart", "", "render probes to an image (png, svg, pdf)")
	runCmd.Flags().IntVar(&precision, "precision", config.DefaultPrecision, "CSV decimal places")
	runCmd.Flags().BoolVar(&printMatrix, "print-matrix", false, "print the stamped system matrix")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run probes in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&probes, "probe", nil, "probes to plot (default: stored probes)")
	plotCmd.Flags().IntVar(&width, "width", 80, "graph width")
	plotCmd.Flags().IntVar(&height, "height", 10, "graph height")

	chartCmd := &cobra.Command{
		Use:   "chart [run_id]",
		Short: "render run probes to an image",
		Args:  cobra.ExactArgs(1),
		RunE:  chartRun,
	}
	chartCmd.Flags().StringSliceVar(&probes, "probe", nil, "probes to draw (default: stored probes)")
	chartCmd.Flags().StringVarP(&outPath, "out", "o", "chart.png", "output file")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringSliceVar(&probes, "probe", nil, "probes to export (default: stored probes)")
	exportCSVCmd.Flags().IntVar(&precision, "precision", config.DefaultPrecision, "decimal places")
	exportCSVCmd.Flags().BoolVar(&raw, "raw", false, "export every stored unknown without recompiling the circuit")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringSliceVar(&probes, "probe", nil, "probes to export (default: stored probes)")
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export one probe trajectory as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringSliceVar(&probes, "probe", nil, "probe to draw (default: first stored probe)")
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list built-in circuits, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a simulation with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	circuitFlags(liveCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a probe",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&probes, "probe", nil, "probe to analyze (default: first stored probe)")

	convergeCmd := &cobra.Command{
		Use:   "converge [preset]",
		Short: "step-halving convergence study",
		Args:  cobra.MaximumNArgs(1),
		RunE:  convergeStudy,
	}
	circuitFlags(convergeCmd)
	convergeCmd.Flags().IntVar(&levels, "levels", 4, "number of step sizes")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark the linear solvers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchSolvers,
	}
	circuitFlags(benchCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, chartCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, exportCmd, presetsCmd, liveCmd, analyzeCmd, convergeCmd, benchCmd)
	rootCmd.AddCommand(studyCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogger() error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "circuitsim",
		Level:  level,
	})
	return nil
}

// circuitFlags registers the flags that select and tune a circuit.
func circuitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a built-in circuit")
	cmd.Flags().Float64Var(&h, "h", config.DefaultH, "time step (s)")
	cmd.Flags().Float64Var(&tmax, "tmax", config.DefaultTMax, "simulated time (s)")
	cmd.Flags().StringVar(&solver, "solver", config.DefaultSolver, "linear solver (lu, inverse)")
	cmd.Flags().StringSliceVar(&probes, "probe", nil, "probe expressions, e.g. v(out), i(L1), v(a,b)")
}

// resolveConfig loads a config file or a preset and applies changed flags on top.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := preset
	if len(args) > 0 {
		name = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case name != "":
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	default:
		return nil, fmt.Errorf("no circuit given: pass a preset name or --config")
	}

	flags := cmd.Flags()
	if flags.Changed("h") {
		cfg.H = h
	}
	if flags.Changed("tmax") {
		cfg.TMax = tmax
	}
	if flags.Changed("solver") {
		cfg.Solver = solver
	}
	if flags.Changed("probe") {
		cfg.Probes = probes
	}
	if flags.Lookup("csv") != nil && flags.Changed("csv") {
		cfg.Output.CSV = csvPath
	}
	if flags.Lookup("chart") != nil && flags.Changed("chart") {
		cfg.Output.Chart = chartPath
	}
	if flags.Lookup("precision") != nil && flags.Changed("precision") {
		cfg.Output.Precision = precision
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}

	var opts []transient.Option
	for _, m := range metrics.Defaults(exp.Probes()) {
		opts = append(opts, transient.WithMetric(m))
	}

	var csvSink *export.CSVSink
	if cfg.Output.CSV != "" {
		f, err := os.Create(cfg.Output.CSV)
		if err != nil {
			return err
		}
		defer f.Close()
		csvSink, err = export.NewCSVSink(f, export.ProbeColumns(exp.Probes()), cfg.Output.Precision)
		if err != nil {
			return err
		}
		opts = append(opts, transient.WithSink(csvSink))
	}

	var recorder *chart.Recorder
	if cfg.Output.Chart != "" {
		recorder = chart.NewRecorder(exp.Probes())
		opts = append(opts, transient.WithSink(recorder))
	}

	if err := exp.Setup(!noSave, opts...); err != nil {
		return err
	}

	if printMatrix {
		d := exp.Driver()
		if err := d.Build(); err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("G") + " " + labelStyle.Render(strings.Join(exp.Layout().Names(), " ")))
		fmt.Println(d.Matrix())
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if csvSink != nil {
		if err := csvSink.Flush(); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		logger.Info("csv written", "path", cfg.Output.CSV, "rows", csvSink.Rows())
	}
	if recorder != nil {
		if err := chart.Save(cfg.Output.Chart, cfg.Name, recorder.Series(), 16, 10); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		logger.Info("chart written", "path", cfg.Output.Chart)
	}

	runID := ""
	if !noSave {
		if runID, err = saveRun(exp, result); err != nil {
			return err
		}
	}

	fmt.Println(titleStyle.Render(cfg.Name))
	printField("completed in", elapsed.String())
	if runID != "" {
		printField("run id", runID)
	}
	printField("steps", fmt.Sprintf("%d", result.StepsTaken))
	if result.SinkErrors > 0 {
		printField("sink errors", fmt.Sprintf("%d", result.SinkErrors))
	}
	fmt.Println("\n" + titleStyle.Render("metrics"))
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printField(name, fmt.Sprintf("%.6g", result.Metrics[name]))
	}
	return nil
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-22s", label+":")), valueStyle.Render(value))
}

func saveRun(exp *experiment.Experiment, result *transient.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	runID, err := st.Save(exp.Metadata(result), result)
	if err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(st.Dir(runID), circuitFile), exp.Config()); err != nil {
		return "", fmt.Errorf("save circuit: %w", err)
	}
	return runID, nil
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
	fmt.Fprintln(w, "ID\tCIRCUIT\tTIME\tTMAX\tH\tSOLVER\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gs\t%gs\t%s\t%d\n",
			run.ID,
			run.Circuit,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TMax,
			run.H,
			run.Solver,
			run.Steps,
		)
	}

	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()

	if len(args) == 1 {
		cfg, err := registry.Preset(args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tELEMENTS\tUNKNOWNS\tSTEPS\tPROBES")
	for _, name := range registry.ListPresets() {
		e, err := registry.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", e.Name, e.Elements, e.Unknowns, e.Steps, strings.Join(e.Probes, " "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nsolvers: %s\nelement kinds: %s\n",
		strings.Join(registry.ListSolvers(), ", "),
		strings.Join(registry.ListKinds(), ", "))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return tui.RunLive(cfg, logger)
}

func convergeStudy(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	probe := exp.Probes()[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, err := analysis.Convergence(ctx, exp.Circuit(), probe, exp.TransientConfig(false), levels)
	if err != nil {
		return err
	}

	fmt.Printf("convergence of %s for %s\n\n", probe.Name, cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "H\tSTEPS\tFINAL\tMAX DIFF\tORDER")
	for _, p := range points {
		fmt.Fprintf(w, "%g\t%d\t%.6g\t%.3e\t%.2f\n", p.H, p.Steps, p.Final, p.MaxDiff, p.Order)
	}
	return w.Flush()
}

func benchSolvers(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()
	steps := []float64{cfg.H, cfg.H / 10}

	fmt.Printf("benchmarking %s\n\n", cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tH\tSTEPS\tTIME\tSTEPS/SEC\tFINAL")

	for _, method := range registry.ListSolvers() {
		for _, step := range steps {
			runCfg := *cfg
			runCfg.Solver = method
			runCfg.H = step
			exp, err := experiment.New(&runCfg, logger)
			if err != nil {
				return err
			}
			if err := exp.Setup(false); err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			if err != nil {
				var simErr *transient.SimulationError
				if errors.As(err, &simErr) {
					fmt.Fprintf(w, "%s\t%g\t-\tfailed at step %d\t-\t-\n", method, step, simErr.Step)
					continue
				}
				return err
			}
			elapsed := time.Since(start)

			final := exp.Probes()[0].Value(result.Final)
			fmt.Fprintf(w, "%s\t%g\t%d\t%v\t%.0f\t%.6g\n",
				method, step, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds(), final)
		}
	}
	return w.Flush()
}
