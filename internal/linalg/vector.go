package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Vector is a dense column vector of fixed length.
type Vector struct {
	n    int
	data *mat.VecDense
}

// NewVector returns a zeroed vector of length n. It panics with
// ErrInvalidDimensions when n is not positive.
func NewVector(n int) *Vector {
	if n <= 0 {
		panic(fmt.Errorf("%w: length %d", ErrInvalidDimensions, n))
	}
	return &Vector{n: n, data: mat.NewVecDense(n, nil)}
}

// NewVectorFrom copies values into a new vector.
func NewVectorFrom(values []float64) *Vector {
	v := NewVector(len(values))
	for i, x := range values {
		v.data.SetVec(i, x)
	}
	return v
}

func (v *Vector) Len() int { return v.n }

// Initialize sets every element to x.
func (v *Vector) Initialize(x float64) {
	if x == 0 {
		v.data.Zero()
		return
	}
	for i := 0; i < v.n; i++ {
		v.data.SetVec(i, x)
	}
}

func (v *Vector) At(i int) float64 {
	v.check(i)
	return v.data.AtVec(i)
}

func (v *Vector) Set(i int, x float64) {
	v.check(i)
	v.data.SetVec(i, x)
}

// Add accumulates delta into element i.
func (v *Vector) Add(i int, delta float64) {
	v.check(i)
	v.data.SetVec(i, v.data.AtVec(i)+delta)
}

func (v *Vector) check(i int) {
	if i < 0 || i >= v.n {
		panic(fmt.Errorf("%w: %d in vector of length %d", ErrIndexOutOfRange, i, v.n))
	}
}

func (v *Vector) Clone() *Vector {
	c := NewVector(v.n)
	c.data.CopyVec(v.data)
	return c
}

// CopyFrom overwrites v with the contents of src.
func (v *Vector) CopyFrom(src *Vector) error {
	if src.n != v.n {
		return fmt.Errorf("%w: copy length %d into %d", ErrDimensionMismatch, src.n, v.n)
	}
	v.data.CopyVec(src.data)
	return nil
}

// Data returns a copy of the vector contents.
func (v *Vector) Data() []float64 {
	out := make([]float64, v.n)
	for i := range out {
		out[i] = v.data.AtVec(i)
	}
	return out
}

// Norm returns the Euclidean norm.
func (v *Vector) Norm() float64 {
	return mat.Norm(v.data, 2)
}

func (v *Vector) String() string {
	return fmt.Sprintf("%.6g", mat.Formatted(v.data.T(), mat.Squeeze()))
}
