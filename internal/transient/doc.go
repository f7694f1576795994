// Package transient drives a fixed-step backward-Euler simulation of an MNA system.
//
//   - [Driver]: state machine Uninitialized -> MatrixBuilt -> Running -> Done
//   - [System]: the stamping interface implemented by a compiled circuit
//   - [Sink]: per-step consumer of (t, x); [AsyncSink] moves it off the solve loop
//   - [Metric]: sink that reduces a run to one number
//
// The system matrix is stamped once and factorized on the first step. Each
// step re-stamps the excitation vector from the previous solution, solves into
// scratch storage and swaps, so the state is never observed half-updated.
// Step k solves at t = k*h for k = 0 .. ceil(tmax/h)-1.
//
// # Example
//
//	d, err := transient.New(ckt, transient.Config{H: 1e-3, TMax: 1})
//	if err != nil {
//		return err
//	}
//	d.AddSink(csvSink)
//	result, err := d.Run(ctx)
//
// # Errors
//
// Configuration problems wrap [ErrInvalidConfig] and are returned by [New].
// Numerical failures are returned as [*SimulationError] wrapping [ErrIllPosed]
// or [ErrNonFinite]. Sink errors never stop a run; they are logged and counted
// in [Result.SinkErrors].
package transient
