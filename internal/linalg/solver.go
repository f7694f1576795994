package linalg

import "fmt"

const (
	MethodLU      = "lu"
	MethodInverse = "inverse"
)

// Solver solves A*x = b repeatedly for a fixed A.
type Solver interface {
	// Prepare performs the one-time work for a. The matrix must not change afterwards.
	Prepare(a *Matrix) error
	// Solve stores the solution for b in dst.
	Solve(dst, b *Vector) error
	Name() string
}

// NewSolver returns the solver registered under method.
func NewSolver(method string) (Solver, error) {
	switch method {
	case "", MethodLU:
		return &LUSolver{}, nil
	case MethodInverse:
		return &InverseSolver{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Methods lists the accepted solver names.
func Methods() []string { return []string{MethodLU, MethodInverse} }

// LUSolver factorizes once and performs forward/back substitution per solve.
type LUSolver struct {
	lu *LU
}

func (s *LUSolver) Name() string { return MethodLU }

func (s *LUSolver) Prepare(a *Matrix) error {
	lu, err := a.Factorize()
	if err != nil {
		return err
	}
	s.lu = lu
	return nil
}

func (s *LUSolver) Solve(dst, b *Vector) error {
	if s.lu == nil {
		return ErrNotPrepared
	}
	return s.lu.Solve(dst, b)
}

// Cond reports the condition estimate of the prepared matrix, or 0 before Prepare.
func (s *LUSolver) Cond() float64 {
	if s.lu == nil {
		return 0
	}
	return s.lu.Cond()
}

// InverseSolver forms the explicit inverse once and multiplies per solve.
type InverseSolver struct {
	inv *Matrix
}

func (s *InverseSolver) Name() string { return MethodInverse }

func (s *InverseSolver) Prepare(a *Matrix) error {
	inv, err := a.Inverse()
	if err != nil {
		return err
	}
	s.inv = inv
	return nil
}

func (s *InverseSolver) Solve(dst, b *Vector) error {
	if s.inv == nil {
		return ErrNotPrepared
	}
	if dst == b {
		return s.inv.MulVecTo(dst, b.Clone())
	}
	return s.inv.MulVecTo(dst, b)
}
