package transient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a bad step size or end time.
	ErrInvalidConfig = errors.New("transient: invalid configuration")

	// ErrInvalidTransition indicates an operation not allowed in the current phase.
	ErrInvalidTransition = errors.New("transient: invalid phase transition")

	// ErrIllPosed indicates the system matrix cannot be solved (singular or near-singular).
	ErrIllPosed = errors.New("transient: ill-posed system")

	// ErrNonFinite indicates the solution contains NaN or Inf.
	ErrNonFinite = errors.New("transient: non-finite solution")
)

// SimulationError wraps a failure with the step at which it happened.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
