package transient

import (
	"fmt"
	"math"

	"github.com/san-kum/circuitsim/internal/linalg"
)

// State is a snapshot of the solution vector.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every entry is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is the stamping side of an MNA problem.
type System interface {
	Size() int
	StampMatrix(g *linalg.Matrix, h float64) error
	StampExcitation(b, prev *linalg.Vector, t, h float64) error
}

// Sink receives every completed step in increasing time order. x is owned by
// the sink.
type Sink interface {
	OnStep(t float64, x State) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(t float64, x State) error

func (f SinkFunc) OnStep(t float64, x State) error { return f(t, x) }

// Metric is a sink that reduces the run to one number.
type Metric interface {
	Name() string
	Observe(t float64, x State)
	Value() float64
	Reset()
}

// Phase is the lifecycle position of a Driver.
type Phase int

const (
	Uninitialized Phase = iota
	MatrixBuilt
	Running
	Done
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case MatrixBuilt:
		return "matrix-built"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type Config struct {
	H      float64
	TMax   float64
	Solver string
	// Record keeps every emitted state in the Result.
	Record bool
}

// Steps is the number of solves: ceil(TMax/H), tolerant of round-off in the ratio.
func (c Config) Steps() int {
	return int(math.Ceil(c.TMax/c.H - 1e-9))
}

func (c Config) validate() error {
	if !(c.H > 0) || math.IsInf(c.H, 0) {
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidConfig, c.H)
	}
	if !(c.TMax > 0) || math.IsInf(c.TMax, 0) {
		return fmt.Errorf("%w: tmax must be positive, got %g", ErrInvalidConfig, c.TMax)
	}
	if c.H > c.TMax {
		return fmt.Errorf("%w: step %g exceeds tmax %g", ErrInvalidConfig, c.H, c.TMax)
	}
	return nil
}

type Result struct {
	Times      []float64
	States     []State
	Final      State
	StepsTaken int
	SinkErrors int
	Metrics    map[string]float64
}
