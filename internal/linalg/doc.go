// Package linalg provides the dense linear algebra used by the circuit solver.
//
// The types are thin, bounds-checked wrappers over gonum's mat package:
//
//   - [Matrix]: dense row-major matrix with accumulate-style access for stamping
//   - [Vector]: dense column vector
//   - [LU]: LU factorization with partial pivoting, factor once and solve many
//   - [Solver]: strategy used by the transient driver ("lu" or "inverse")
//
// Indexing outside the bounds of a matrix or vector is a programming error and
// panics with an error wrapping [ErrIndexOutOfRange]. Numerical problems such as
// a singular matrix are returned as errors wrapping [ErrSingular].
//
// # Example
//
//	g := linalg.NewMatrix(2, 2)
//	g.Add(0, 0, 1)
//	g.Add(1, 1, 2)
//	lu, err := g.Factorize()
//	if err != nil {
//		return err
//	}
//	x := linalg.NewVector(2)
//	err = lu.Solve(x, linalg.NewVectorFrom([]float64{1, 4}))
package linalg
