package circuit

import "errors"

var (
	// ErrEmptyNetlist indicates a netlist without elements.
	ErrEmptyNetlist = errors.New("circuit: netlist has no elements")

	// ErrNoGround indicates no element is connected to the reference node.
	ErrNoGround = errors.New("circuit: no element connected to ground")

	// ErrUnknownKind indicates an element kind without a stamp.
	ErrUnknownKind = errors.New("circuit: unknown element kind")

	// ErrDuplicateName indicates two elements share a name.
	ErrDuplicateName = errors.New("circuit: duplicate element name")

	// ErrInvalidElement indicates a malformed element (name, terminals or parameters).
	ErrInvalidElement = errors.New("circuit: invalid element")

	// ErrUnknownProbe indicates a probe name that does not resolve to an unknown.
	ErrUnknownProbe = errors.New("circuit: unknown probe")

	// ErrInvalidStep indicates a non-positive step size.
	ErrInvalidStep = errors.New("circuit: step size must be positive")

	// ErrDimensionMismatch indicates a matrix or vector of the wrong size for the layout.
	ErrDimensionMismatch = errors.New("circuit: system size does not match layout")
)
