package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense rows x cols matrix. The zero value is not usable; create
// one with NewMatrix.
type Matrix struct {
	rows, cols int
	data       *mat.Dense
}

// NewMatrix returns a zeroed rows x cols matrix. It panics with
// ErrInvalidDimensions when either dimension is not positive.
func NewMatrix(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: mat.NewDense(rows, cols, nil)}
}

// NewMatrixFrom builds a matrix from row slices. All rows must have the same length.
func NewMatrixFrom(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrInvalidDimensions
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), m.cols)
		}
		m.data.SetRow(i, row)
	}
	return m, nil
}

func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// Initialize sets every element to v.
func (m *Matrix) Initialize(v float64) {
	if v == 0 {
		m.data.Zero()
		return
	}
	raw := m.data.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			row[j] = v
		}
	}
}

func (m *Matrix) At(i, j int) float64 {
	m.check(i, j)
	return m.data.At(i, j)
}

func (m *Matrix) Set(i, j int, v float64) {
	m.check(i, j)
	m.data.Set(i, j, v)
}

// Add accumulates delta into element (i, j).
func (m *Matrix) Add(i, j int, delta float64) {
	m.check(i, j)
	m.data.Set(i, j, m.data.At(i, j)+delta)
}

func (m *Matrix) check(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Errorf("%w: (%d,%d) in %dx%d matrix", ErrIndexOutOfRange, i, j, m.rows, m.cols))
	}
}

func (m *Matrix) Clone() *Matrix {
	return &Matrix{rows: m.rows, cols: m.cols, data: mat.DenseCopyOf(m.data)}
}

// MaxAbs returns the largest absolute element value.
func (m *Matrix) MaxAbs() float64 {
	maxAbs := 0.0
	raw := m.data.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}
	return maxAbs
}

// MulVec returns m * v.
func (m *Matrix) MulVec(v *Vector) (*Vector, error) {
	dst := NewVector(m.rows)
	if err := m.MulVecTo(dst, v); err != nil {
		return nil, err
	}
	return dst, nil
}

// MulVecTo stores m * v in dst without allocating. dst must not alias v.
func (m *Matrix) MulVecTo(dst, v *Vector) error {
	if v.Len() != m.cols {
		return fmt.Errorf("%w: %dx%d matrix times vector of length %d", ErrDimensionMismatch, m.rows, m.cols, v.Len())
	}
	if dst.Len() != m.rows {
		return fmt.Errorf("%w: destination length %d, want %d", ErrDimensionMismatch, dst.Len(), m.rows)
	}
	dst.data.MulVec(m.data, v.data)
	return nil
}

// Inverse returns a new matrix holding the inverse of m. The receiver is not
// modified. Singularity is judged by the same pivot rule as Factorize.
func (m *Matrix) Inverse() (*Matrix, error) {
	lu, err := m.Factorize()
	if err != nil {
		return nil, err
	}
	inv := NewMatrix(m.rows, m.cols)
	eye := mat.NewDiagDense(m.rows, nil)
	for i := 0; i < m.rows; i++ {
		eye.SetDiag(i, 1)
	}
	if err := lu.lu.SolveTo(inv.data, false, eye); err != nil {
		return nil, conditionError(err)
	}
	return inv, nil
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%.6g", mat.Formatted(m.data, mat.Squeeze()))
}
