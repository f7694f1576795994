package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/experiment"
)

var ErrNoFeasiblePoint = errors.New("optim: no grid point simulated successfully")

// Objective scores a run from its metrics; lower is better.
type Objective func(metrics map[string]float64) float64

// Minimize scores by the metric itself.
func Minimize(metric string) Objective {
	return func(m map[string]float64) float64 {
		v, ok := m[metric]
		if !ok {
			return math.Inf(1)
		}
		return v
	}
}

// Target scores by the distance of the metric from a target value.
func Target(metric string, target float64) Objective {
	return func(m map[string]float64) float64 {
		v, ok := m[metric]
		if !ok {
			return math.Inf(1)
		}
		return math.Abs(v - target)
	}
}

// GridSearch tries every combination of element values.
type GridSearch struct {
	elements []string
	ranges   [][]float64
}

func NewGridSearch(elements []string, ranges [][]float64) *GridSearch {
	return &GridSearch{elements: elements, ranges: ranges}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs base at every grid point and returns the best element values
// and their score. Points that fail to simulate are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, objective Objective) (map[string]float64, float64, error) {
	if len(g.elements) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d elements for %d ranges", len(g.elements), len(g.ranges))
	}
	for _, name := range g.elements {
		if _, err := base.Value(name); err != nil {
			return nil, 0, err
		}
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, objective, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoFeasiblePoint
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.elements) {
		cfg := base.Clone()
		for name, v := range current {
			if err := cfg.SetValue(name, v); err != nil {
				return err
			}
		}

		result, err := experiment.RunMetrics(ctx, cfg, nil)
		if err != nil {
			return ctx.Err()
		}

		val := objective(result.Metrics)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	name := g.elements[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val

		if err := g.searchRecursive(ctx, depth+1, next, base, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
