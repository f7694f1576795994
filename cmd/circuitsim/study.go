package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/circuitsim/internal/automation"
	"github.com/san-kum/circuitsim/internal/experiment"
	"github.com/san-kum/circuitsim/internal/optim"
	"github.com/spf13/cobra"
)

var (
	element   string
	from      float64
	to        float64
	points    int
	logSweep  bool
	metric    string
	workerN   int
	tolerance float64
	trials    int
	seed      int64
	grid      []string
	target    float64
)

func studyCommands() []*cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of circuits",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep one element value and compare metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	circuitFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&element, "element", "", "element to sweep")
	sweepCmd.Flags().Float64Var(&from, "from", 1, "first value")
	sweepCmd.Flags().Float64Var(&to, "to", 10, "last value")
	sweepCmd.Flags().IntVar(&points, "points", 5, "number of values")
	sweepCmd.Flags().BoolVar(&logSweep, "log", false, "space values geometrically")
	sweepCmd.Flags().StringVar(&metric, "metric", "", "metric to report (default: final of the first probe)")
	sweepCmd.Flags().IntVar(&workerN, "workers", 0, "parallel runs (default: GOMAXPROCS)")
	_ = sweepCmd.MarkFlagRequired("element")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "component tolerance analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	circuitFlags(mcCmd)
	mcCmd.Flags().Float64Var(&tolerance, "tolerance", 0.05, "relative tolerance of R, L and C")
	mcCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	mcCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	mcCmd.Flags().StringVar(&metric, "metric", "", "metric to summarize (default: final of the first probe)")
	mcCmd.Flags().IntVar(&workerN, "workers", 0, "parallel runs (default: GOMAXPROCS)")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search element values against a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	circuitFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "element values, e.g. R1=1,2,5 (repeatable)")
	tuneCmd.Flags().StringVar(&metric, "metric", "", "metric to optimize (default: final of the first probe)")
	tuneCmd.Flags().Float64Var(&target, "target", 0, "approach this metric value instead of minimizing")
	_ = tuneCmd.MarkFlagRequired("grid")

	return []*cobra.Command{batchCmd, sweepCmd, mcCmd, tuneCmd}
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(scenario.Name))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tCIRCUIT\tSTEPS\tCSV")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, r.Circuit, r.Result.StepsTaken, r.CSV)
	}
	return w.Flush()
}

// defaultMetric is the final value of the first probe.
func defaultMetric(exp *experiment.Experiment) string {
	if metric != "" {
		return metric
	}
	return "final:" + exp.Probes()[0].Name
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	name := defaultMetric(exp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:     cfg,
		Element:  element,
		Min:      from,
		Max:      to,
		NumSteps: points,
		Log:      logSweep,
		Workers:  workerN,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("sweep of %s on %s\n\n", element, cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(element), strings.ToUpper(name))
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%g\terror: %v\n", r.Value, r.Err)
			continue
		}
		fmt.Fprintf(w, "%g\t%.6g\n", r.Value, r.Metrics[name])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	name := defaultMetric(exp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:      cfg,
		Tolerance: tolerance,
		NumTrials: trials,
		Seed:      seed,
		Workers:   workerN,
	}, logger)
	if err != nil {
		return err
	}

	s := automation.Summarize(results, name)
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s ±%g%%", cfg.Name, tolerance*100)))
	printField("trials", strconv.Itoa(len(results)))
	printField("stable", strconv.Itoa(s.Stable))
	printField("unstable", strconv.Itoa(s.Unstable))
	printField(name+" mean", fmt.Sprintf("%.6g", s.Mean))
	printField(name+" stddev", fmt.Sprintf("%.6g", s.StdDev))
	printField(name+" range", fmt.Sprintf("[%.6g, %.6g]", s.Min, s.Max))
	return nil
}

// parseGrid reads NAME=v1,v2,... specs.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want NAME=v1,v2", spec)
		}
		var vals []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	name := defaultMetric(exp)

	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	search := optim.NewGridSearch(names, ranges)

	objective := optim.Minimize(name)
	goal := "minimize " + name
	if cmd.Flags().Changed("target") {
		objective = optim.Target(name, target)
		goal = fmt.Sprintf("%s -> %g", name, target)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("grid search", "points", search.Size(), "goal", goal)
	best, score, err := search.Search(ctx, cfg, objective)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(goal))
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printField(k, fmt.Sprintf("%g", best[k]))
	}
	printField("score", fmt.Sprintf("%.6g", score))
	return nil
}
