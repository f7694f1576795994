package linalg

import "errors"

var (
	// ErrIndexOutOfRange is the panic payload for an access outside the matrix or vector bounds.
	ErrIndexOutOfRange = errors.New("linalg: index out of range")

	// ErrInvalidDimensions indicates a request for a matrix or vector with a non-positive size.
	ErrInvalidDimensions = errors.New("linalg: dimensions must be positive")

	// ErrDimensionMismatch indicates operands whose shapes do not conform.
	ErrDimensionMismatch = errors.New("linalg: dimension mismatch")

	// ErrNonSquare indicates a square matrix was required.
	ErrNonSquare = errors.New("linalg: matrix is not square")

	// ErrSingular indicates a singular or numerically near-singular matrix.
	ErrSingular = errors.New("linalg: matrix is singular")

	// ErrNotPrepared indicates a solve before the solver was given a matrix.
	ErrNotPrepared = errors.New("linalg: solver not prepared")

	// ErrUnknownMethod indicates an unsupported solver method name.
	ErrUnknownMethod = errors.New("linalg: unknown solver method")
)
