package transient

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/san-kum/circuitsim/internal/linalg"
)

// Driver runs the fixed-step transient loop over a System.
//
// Lifecycle: Uninitialized -Build-> MatrixBuilt -Start-> Running -Step...-> Done.
// Run performs the whole sequence. A Driver is not safe for concurrent use.
type Driver struct {
	sys     System
	cfg     Config
	solver  linalg.Solver
	logger  *log.Logger
	sinks   []Sink
	metrics []Metric

	phase    Phase
	g        *linalg.Matrix
	b        *linalg.Vector
	x, next  *linalg.Vector
	step     int
	steps    int
	prepared bool
	failed   error

	sinkErrors int
}

type Option func(*Driver)

func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func WithSink(s Sink) Option {
	return func(d *Driver) { d.sinks = append(d.sinks, s) }
}

func WithMetric(m Metric) Option {
	return func(d *Driver) { d.metrics = append(d.metrics, m) }
}

// New validates cfg and returns a driver in the Uninitialized phase.
func New(sys System, cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if sys.Size() <= 0 {
		return nil, fmt.Errorf("%w: system has no unknowns", ErrInvalidConfig)
	}
	solver, err := linalg.NewSolver(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	d := &Driver{
		sys:    sys,
		cfg:    cfg,
		solver: solver,
		logger: log.New(io.Discard),
		steps:  cfg.Steps(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Driver) AddSink(s Sink)     { d.sinks = append(d.sinks, s) }
func (d *Driver) AddMetric(m Metric) { d.metrics = append(d.metrics, m) }

func (d *Driver) Phase() Phase { return d.phase }

// Steps is the total number of solves the run performs.
func (d *Driver) Steps() int { return d.steps }

// StepIndex is the number of completed steps.
func (d *Driver) StepIndex() int { return d.step }

// Time is the time of the next step.
func (d *Driver) Time() float64 { return float64(d.step) * d.cfg.H }

func (d *Driver) Solver() linalg.Solver { return d.solver }

// Matrix returns a copy of the stamped system matrix, or nil before Build.
func (d *Driver) Matrix() *linalg.Matrix {
	if d.g == nil {
		return nil
	}
	return d.g.Clone()
}

// State returns a copy of the current solution, or nil before Start.
func (d *Driver) State() State {
	if d.x == nil || d.phase < Running {
		return nil
	}
	return State(d.x.Data())
}

// Build stamps the system matrix once.
func (d *Driver) Build() error {
	if d.phase != Uninitialized {
		return fmt.Errorf("%w: build in phase %s", ErrInvalidTransition, d.phase)
	}
	n := d.sys.Size()
	d.g = linalg.NewMatrix(n, n)
	d.b = linalg.NewVector(n)
	d.x = linalg.NewVector(n)
	d.next = linalg.NewVector(n)
	if err := d.sys.StampMatrix(d.g, d.cfg.H); err != nil {
		return fmt.Errorf("stamp matrix: %w", err)
	}
	d.phase = MatrixBuilt
	d.logger.Debug("matrix built", "unknowns", n, "h", d.cfg.H, "steps", d.steps)
	return nil
}

// Start enters Running at t = 0 from a zero state.
func (d *Driver) Start() error {
	if d.phase != MatrixBuilt {
		return fmt.Errorf("%w: start in phase %s", ErrInvalidTransition, d.phase)
	}
	d.x.Initialize(0)
	d.step = 0
	d.phase = Running
	for _, m := range d.metrics {
		m.Reset()
	}
	return nil
}

// Step advances one time step. The solver is prepared lazily on the first
// step, so a singular matrix is reported as a failure of step 0.
func (d *Driver) Step(ctx context.Context) error {
	if d.failed != nil {
		return d.failed
	}
	if d.phase != Running {
		return fmt.Errorf("%w: step in phase %s", ErrInvalidTransition, d.phase)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t := d.Time()
	if !d.prepared {
		if err := d.solver.Prepare(d.g); err != nil {
			return d.fail(t, fmt.Errorf("%w: %w", ErrIllPosed, err))
		}
		d.prepared = true
		if lu, ok := d.solver.(*linalg.LUSolver); ok {
			d.logger.Debug("factorized", "cond", lu.Cond())
		}
	}

	d.b.Initialize(0)
	if err := d.sys.StampExcitation(d.b, d.x, t, d.cfg.H); err != nil {
		return d.fail(t, err)
	}
	if err := d.solver.Solve(d.next, d.b); err != nil {
		return d.fail(t, fmt.Errorf("%w: %w", ErrIllPosed, err))
	}

	x := State(d.next.Data())
	if !x.IsValid() {
		return d.fail(t, ErrNonFinite)
	}
	d.x, d.next = d.next, d.x

	d.emit(t, x)
	d.step++
	if d.step >= d.steps {
		d.phase = Done
	}
	return nil
}

func (d *Driver) fail(t float64, err error) error {
	d.failed = &SimulationError{Step: d.step, Time: t, Wrapped: err}
	return d.failed
}

// emit hands each sink its own copy of x. Sink failures are logged and counted.
func (d *Driver) emit(t float64, x State) {
	for _, m := range d.metrics {
		m.Observe(t, x)
	}
	for i, s := range d.sinks {
		snapshot := x
		if i < len(d.sinks)-1 {
			snapshot = x.Clone()
		}
		if err := s.OnStep(t, snapshot); err != nil {
			d.sinkErrors++
			d.logger.Warn("sink failed", "step", d.step, "t", t, "err", err)
		}
	}
}

// Run builds, starts and steps the driver to Done. On cancellation it
// returns the partial result together with ctx.Err().
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.phase == Uninitialized {
		if err := d.Build(); err != nil {
			return nil, err
		}
	}
	if d.phase == MatrixBuilt {
		if err := d.Start(); err != nil {
			return nil, err
		}
	}

	result := &Result{Metrics: make(map[string]float64)}
	if d.cfg.Record {
		result.Times = make([]float64, 0, d.steps-d.step)
		result.States = make([]State, 0, d.steps-d.step)
		d.sinks = append(d.sinks, SinkFunc(func(t float64, x State) error {
			result.Times = append(result.Times, t)
			result.States = append(result.States, x)
			return nil
		}))
		defer func() { d.sinks = d.sinks[:len(d.sinks)-1] }()
	}

	var runErr error
	for d.phase == Running {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}
		if err := d.Step(ctx); err != nil {
			runErr = err
			break
		}
	}

	result.StepsTaken = d.step
	result.SinkErrors = d.sinkErrors
	result.Final = d.State()
	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	d.logger.Debug("run finished", "steps", d.step, "phase", d.phase, "sink_errors", d.sinkErrors)
	return result, runErr
}
