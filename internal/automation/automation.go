package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/experiment"
	"github.com/san-kum/circuitsim/internal/export"
	"github.com/san-kum/circuitsim/internal/transient"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of circuit runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep selects a circuit by preset or config file and overrides parts of it.
type ScenarioStep struct {
	Preset string             `yaml:"preset,omitempty"`
	Config string             `yaml:"config,omitempty"`
	H      float64            `yaml:"h,omitempty"`
	TMax   float64            `yaml:"tmax,omitempty"`
	Solver string             `yaml:"solver,omitempty"`
	Probes []string           `yaml:"probes,omitempty"`
	Values map[string]float64 `yaml:"values,omitempty"`
	SaveAs string             `yaml:"save_as,omitempty"`
}

type StepResult struct {
	Circuit string
	CSV     string
	Result  *transient.Result
}

// LoadScenario loads a scenario from a YAML file. Relative config and
// save_as paths are taken relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range scenario.Steps {
		s := &scenario.Steps[i]
		if s.Config != "" && !filepath.IsAbs(s.Config) {
			s.Config = filepath.Join(dir, s.Config)
		}
		if s.SaveAs != "" && !filepath.IsAbs(s.SaveAs) {
			s.SaveAs = filepath.Join(dir, s.SaveAs)
		}
	}
	return &scenario, nil
}

func (s ScenarioStep) build(registry *experiment.Registry) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		preset, err := registry.Preset(s.Preset)
		if err != nil {
			return nil, err
		}
		cfg = preset
	default:
		return nil, fmt.Errorf("step needs a preset or a config file")
	}

	if s.H > 0 {
		cfg.H = s.H
	}
	if s.TMax > 0 {
		cfg.TMax = s.TMax
	}
	if s.Solver != "" {
		cfg.Solver = s.Solver
	}
	if len(s.Probes) > 0 {
		cfg.Probes = s.Probes
	}
	for name, v := range s.Values {
		if err := cfg.SetValue(name, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes all steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *log.Logger) ([]StepResult, error) {
	logger = orDiscard(logger)
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.build(registry)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("running step", "step", i+1, "of", len(scenario.Steps), "circuit", cfg.Name)

		result, err := runStep(ctx, cfg, step.SaveAs, logger)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Circuit: cfg.Name, CSV: step.SaveAs, Result: result})
	}

	return results, nil
}

func runStep(ctx context.Context, cfg *config.Config, csvPath string, logger *log.Logger) (*transient.Result, error) {
	if csvPath == "" {
		return experiment.RunMetrics(ctx, cfg, logger)
	}

	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sink, err := export.NewCSVSink(f, export.ProbeColumns(exp.Probes()), cfg.Output.Precision)
	if err != nil {
		return nil, err
	}
	if err := exp.Setup(false, transient.WithSink(sink)); err != nil {
		return nil, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return nil, err
	}
	return result, sink.Flush()
}

// ParameterSweep runs a circuit across a range of values of one element
type ParameterSweep struct {
	Base     *config.Config
	Element  string
	Min      float64
	Max      float64
	NumSteps int
	// Log spaces the values geometrically, for decade sweeps of R, L or C.
	Log      bool
	Workers  int
}

// SweepResult holds the outcome of one sweep point
type SweepResult struct {
	Value   float64
	Final   transient.State
	Metrics map[string]float64
	Err     error
}

// Values lists the element values the sweep visits.
func (s *ParameterSweep) Values() ([]float64, error) {
	if s.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", s.NumSteps)
	}
	vals := make([]float64, s.NumSteps)
	if s.Log {
		if s.Min <= 0 || s.Max <= 0 {
			return nil, fmt.Errorf("log sweep bounds must be positive")
		}
		floats.LogSpan(vals, s.Min, s.Max)
	} else {
		floats.Span(vals, s.Min, s.Max)
	}
	return vals, nil
}

// RunSweep executes the sweep points concurrently. A point that fails to
// simulate keeps its error in SweepResult.Err; only cancellation and invalid
// sweep definitions abort the whole sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep, logger *log.Logger) ([]SweepResult, error) {
	logger = orDiscard(logger)
	vals, err := sweep.Values()
	if err != nil {
		return nil, err
	}
	if _, err := sweep.Base.Value(sweep.Element); err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(vals))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(sweep.Workers))
	for i, v := range vals {
		g.Go(func() error {
			cfg := sweep.Base.Clone()
			if err := cfg.SetValue(sweep.Element, v); err != nil {
				return err
			}
			result, err := experiment.RunMetrics(ctx, cfg, nil)
			results[i] = SweepResult{Value: v, Err: err}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("sweep point failed", sweep.Element, v, "err", err)
				return nil
			}
			results[i].Final = result.Final
			results[i].Metrics = result.Metrics
			logger.Debug("sweep point", sweep.Element, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloConfig perturbs element values within a relative tolerance.
type MonteCarloConfig struct {
	Base      *config.Config
	Tolerance float64
	// Elements to perturb; empty means every resistor, capacitor and inductor.
	Elements  []string
	NumTrials int
	Seed      int64
	Workers   int
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID int
	Values  map[string]float64
	Final   transient.State
	Metrics map[string]float64
	Stable  bool // finished with a bounded solution
}

// stableBound is the magnitude beyond which a solution counts as runaway.
const stableBound = 1e6

// RunMonteCarlo draws every trial's values from one seeded source up front, so
// results are reproducible regardless of scheduling, then runs trials concurrently.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger *log.Logger) ([]MonteCarloResult, error) {
	logger = orDiscard(logger)
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("monte carlo needs at least 1 trial")
	}
	if cfg.Tolerance < 0 || cfg.Tolerance >= 1 {
		return nil, fmt.Errorf("tolerance must be in [0, 1), got %g", cfg.Tolerance)
	}

	elements := cfg.Elements
	if len(elements) == 0 {
		elements = passives(cfg.Base)
	}
	nominal := make(map[string]float64, len(elements))
	for _, name := range elements {
		v, err := cfg.Base.Value(name)
		if err != nil {
			return nil, err
		}
		nominal[name] = v
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	trials := make([]map[string]float64, cfg.NumTrials)
	for i := range trials {
		trials[i] = make(map[string]float64, len(elements))
		for _, name := range elements {
			trials[i][name] = nominal[name] * (1 + (rng.Float64()-0.5)*2*cfg.Tolerance)
		}
	}

	results := make([]MonteCarloResult, cfg.NumTrials)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(cfg.Workers))
	for i, values := range trials {
		g.Go(func() error {
			run := cfg.Base.Clone()
			for name, v := range values {
				if err := run.SetValue(name, v); err != nil {
					return err
				}
			}
			result, err := experiment.RunMetrics(ctx, run, nil)
			results[i] = MonteCarloResult{TrialID: i, Values: values}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Debug("trial failed", "trial", i, "err", err)
				return nil
			}
			results[i].Final = result.Final
			results[i].Metrics = result.Metrics
			results[i].Stable = bounded(result.Final)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloStats summarizes one metric over the stable trials.
type MonteCarloStats struct {
	Stable   int
	Unstable int
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
}

func Summarize(results []MonteCarloResult, metric string) MonteCarloStats {
	var s MonteCarloStats
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Stable {
			s.Unstable++
			continue
		}
		s.Stable++
		if v, ok := r.Metrics[metric]; ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		s.Mean, s.StdDev, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	return s
}

func passives(cfg *config.Config) []string {
	var names []string
	for _, ec := range cfg.Elements {
		switch circuit.Kind(strings.ToLower(ec.Kind)) {
		case circuit.Resistor, circuit.Capacitor, circuit.Inductor:
			names = append(names, ec.Name)
		}
	}
	return names
}

func bounded(x transient.State) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.Abs(v) > stableBound {
			return false
		}
	}
	return len(x) > 0
}

func workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}
