package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/metrics"
	"github.com/san-kum/circuitsim/internal/storage"
	"github.com/san-kum/circuitsim/internal/transient"
)

// Experiment binds a validated configuration to its compiled circuit and a
// transient driver.
type Experiment struct {
	cfg    *config.Config
	ckt    *circuit.Circuit
	probes []circuit.Probe
	driver *transient.Driver
	logger *log.Logger
}

func New(cfg *config.Config, logger *log.Logger) (*Experiment, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ckt, err := cfg.Circuit()
	if err != nil {
		return nil, err
	}
	probes, err := ckt.Layout().Probes(cfg.Probes)
	if err != nil {
		return nil, err
	}
	return &Experiment{
		cfg:    cfg,
		ckt:    ckt,
		probes: probes,
		logger: logger.With("circuit", cfg.Name),
	}, nil
}

func (e *Experiment) Config() *config.Config     { return e.cfg }
func (e *Experiment) Circuit() *circuit.Circuit  { return e.ckt }
func (e *Experiment) Probes() []circuit.Probe    { return e.probes }
func (e *Experiment) Driver() *transient.Driver  { return e.driver }
func (e *Experiment) Layout() *circuit.Layout    { return e.ckt.Layout() }
func (e *Experiment) Logger() *log.Logger        { return e.logger }

func (e *Experiment) TransientConfig(record bool) transient.Config {
	return transient.Config{H: e.cfg.H, TMax: e.cfg.TMax, Solver: e.cfg.Solver, Record: record}
}

// Setup creates the driver. Sinks and metrics are attached through opts.
func (e *Experiment) Setup(record bool, opts ...transient.Option) error {
	opts = append([]transient.Option{transient.WithLogger(e.logger)}, opts...)
	d, err := transient.New(e.ckt, e.TransientConfig(record), opts...)
	if err != nil {
		return err
	}
	e.driver = d
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*transient.Result, error) {
	if e.driver == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	e.logger.Info("simulating", "unknowns", e.ckt.Size(), "h", e.cfg.H, "tmax", e.cfg.TMax, "solver", e.cfg.Solver)
	return e.driver.Run(ctx)
}

// Metadata describes a finished run for the run store.
func (e *Experiment) Metadata(result *transient.Result) storage.RunMetadata {
	probes := make([]string, len(e.probes))
	for i, p := range e.probes {
		probes[i] = p.Name
	}
	return storage.RunMetadata{
		Circuit:    e.cfg.Name,
		H:          e.cfg.H,
		TMax:       e.cfg.TMax,
		Solver:     e.cfg.Solver,
		Steps:      result.StepsTaken,
		Unknowns:   e.ckt.Layout().Names(),
		Probes:     probes,
		SinkErrors: result.SinkErrors,
		Metrics:    result.Metrics,
	}
}

// RunMetrics runs cfg without recording and reports the default probe metrics.
func RunMetrics(ctx context.Context, cfg *config.Config, logger *log.Logger) (*transient.Result, error) {
	exp, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	var opts []transient.Option
	for _, m := range metrics.Defaults(exp.Probes()) {
		opts = append(opts, transient.WithMetric(m))
	}
	if err := exp.Setup(false, opts...); err != nil {
		return nil, err
	}
	return exp.driver.Run(ctx)
}
