// Package analysis post-processes transient results.
//
//   - [PowerSpectrum]: windowed magnitude spectrum of a sampled probe
//   - [DominantFrequency]: strongest oscillation in a probe trajectory
//   - [Convergence]: step-halving study of a probe trajectory
//
// # Step-size convergence
//
// Backward Euler is first order, so halving h should roughly halve the
// trajectory difference between levels (Order close to 1):
//
//	pts, err := analysis.Convergence(ctx, ckt, probe, transient.Config{H: 1e-3, TMax: 1}, 4)
package analysis
