package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
	"gonum.org/v1/gonum/floats"
)

// ConvergencePoint is one refinement level of a step-size study.
type ConvergencePoint struct {
	H     float64
	Steps int
	Final float64
	// MaxDiff is the largest deviation from the previous, twice coarser level,
	// compared at the end of each coarse step. NaN on the first level.
	MaxDiff float64
	// Order is log2 of the ratio of successive MaxDiff values. NaN until two
	// differences exist.
	Order float64
}

// Convergence runs sys with cfg.H, cfg.H/2, ... for the given number of
// levels and tracks how the probe trajectory changes as the step shrinks.
func Convergence(ctx context.Context, sys transient.System, probe circuit.Probe, cfg transient.Config, levels int) ([]ConvergencePoint, error) {
	if levels < 2 {
		return nil, fmt.Errorf("convergence needs at least 2 levels, got %d", levels)
	}

	points := make([]ConvergencePoint, 0, levels)
	var coarse []float64
	for level := 0; level < levels; level++ {
		runCfg := cfg
		runCfg.H = cfg.H / math.Pow(2, float64(level))

		series := make([]float64, 0, runCfg.Steps())
		d, err := transient.New(sys, runCfg, transient.WithSink(transient.SinkFunc(func(t float64, x transient.State) error {
			series = append(series, probe.Value(x))
			return nil
		})))
		if err != nil {
			return nil, err
		}
		if _, err := d.Run(ctx); err != nil {
			return nil, fmt.Errorf("h=%g: %w", runCfg.H, err)
		}

		pt := ConvergencePoint{
			H:       runCfg.H,
			Steps:   len(series),
			Final:   series[len(series)-1],
			MaxDiff: math.NaN(),
			Order:   math.NaN(),
		}
		if coarse != nil {
			a, b := aligned(coarse, series)
			pt.MaxDiff = floats.Distance(a, b, math.Inf(1))
			if prev := points[level-1].MaxDiff; !math.IsNaN(prev) && pt.MaxDiff > 0 {
				pt.Order = math.Log2(prev / pt.MaxDiff)
			}
		}
		points = append(points, pt)
		coarse = series
	}
	return points, nil
}

// aligned pairs coarse sample k with fine sample 2k+1; both end at time 2(k+1)h.
func aligned(coarse, fine []float64) ([]float64, []float64) {
	n := min(len(coarse), len(fine)/2)
	a := make([]float64, n)
	b := make([]float64, n)
	for k := 0; k < n; k++ {
		a[k] = coarse[k]
		b[k] = fine[2*k+1]
	}
	return a, b
}
