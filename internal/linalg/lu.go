package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PivotTolerance is the relative threshold below which a pivot of U is
// treated as zero: |u_ii| < PivotTolerance * max|a_ij|.
const PivotTolerance = 1e-12

// LU is the factorization P*A = L*U of a square matrix, computed once and
// reused for any number of right-hand sides.
type LU struct {
	n  int
	lu mat.LU
}

// Factorize computes the LU factorization of m with partial pivoting.
// It returns ErrNonSquare for a rectangular matrix and ErrSingular when a
// pivot is negligible relative to the largest entry of m.
func (m *Matrix) Factorize() (*LU, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: %dx%d", ErrNonSquare, m.rows, m.cols)
	}
	scale := m.MaxAbs()
	if scale == 0 {
		return nil, fmt.Errorf("%w: zero matrix", ErrSingular)
	}

	f := &LU{n: m.rows}
	f.lu.Factorize(m.data)

	var u mat.TriDense
	f.lu.UTo(&u)
	for i := 0; i < m.rows; i++ {
		if p := math.Abs(u.At(i, i)); p < PivotTolerance*scale {
			return nil, fmt.Errorf("%w: pivot %d is %.3g (scale %.3g)", ErrSingular, i, p, scale)
		}
	}
	return f, nil
}

// Size returns the order of the factorized matrix.
func (f *LU) Size() int { return f.n }

// Cond returns the estimated condition number in the 1-norm.
func (f *LU) Cond() float64 { return f.lu.Cond() }

// Solve computes x such that A*x = b and stores it in dst. dst and b may
// be the same vector.
func (f *LU) Solve(dst, b *Vector) error {
	if b.Len() != f.n || dst.Len() != f.n {
		return fmt.Errorf("%w: order %d, rhs %d, dst %d", ErrDimensionMismatch, f.n, b.Len(), dst.Len())
	}
	if err := f.lu.SolveVecTo(dst.data, false, b.data); err != nil {
		return conditionError(err)
	}
	return nil
}

func conditionError(err error) error {
	var cond mat.Condition
	if errors.As(err, &cond) {
		return fmt.Errorf("%w: condition number %.3g", ErrSingular, float64(cond))
	}
	return err
}
