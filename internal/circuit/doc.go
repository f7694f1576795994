// Package circuit turns a netlist into Modified Nodal Analysis stamps.
//
// A [Netlist] is compiled once into a [Circuit] whose [Layout] names every
// entry of the solution vector: node voltages v(n), branch currents i(e) for
// voltage sources, VCVS, inductors and motors, and shaft speeds w(m).
// The reference node ("0" or "gnd") has index [Ground] and is never stored.
//
// Stamping is split in two. [Circuit.StampMatrix] writes the time-invariant
// system matrix for a step size h, with inductors, capacitors and motor inertia
// replaced by backward-Euler companion models. [Circuit.StampExcitation] writes
// the right-hand side for one step from source waveforms and the previous
// solution.
package circuit
