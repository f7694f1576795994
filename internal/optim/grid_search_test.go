package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/circuitsim/internal/config"
)

func TestGridSearchTarget(t *testing.T) {
	base := config.GetPreset("rc")
	g := NewGridSearch([]string{"R1"}, [][]float64{{0.1, 1, 10}})
	if g.Size() != 3 {
		t.Fatalf("expected 3 grid points, got %d", g.Size())
	}

	// v(out) at t = 1 s is close to 1 - 1/e only for a 1 s time constant.
	best, score, err := g.Search(context.Background(), base, Target("final:v(out)", 0.632))
	if err != nil {
		t.Fatal(err)
	}
	if best["R1"] != 1 {
		t.Errorf("expected R1 = 1, got %v", best)
	}
	if score > 0.01 {
		t.Errorf("expected score below 0.01, got %f", score)
	}
	if v, _ := base.Value("R1"); v != 1 {
		t.Errorf("search modified the base config, R1 = %g", v)
	}
}

func TestGridSearchTwoElements(t *testing.T) {
	base := config.GetPreset("rc")
	base.TMax = 0.1
	g := NewGridSearch([]string{"R1", "C1"}, [][]float64{{1, 2}, {0.5, 1}})
	best, _, err := g.Search(context.Background(), base, Minimize("final:v(out)"))
	if err != nil {
		t.Fatal(err)
	}
	// slowest charge: largest R and C
	if best["R1"] != 2 || best["C1"] != 1 {
		t.Errorf("expected R1 = 2, C1 = 1, got %v", best)
	}
}

func TestGridSearchErrors(t *testing.T) {
	base := config.GetPreset("rc")
	if _, _, err := NewGridSearch([]string{"R9"}, [][]float64{{1}}).Search(context.Background(), base, Minimize("x")); !errors.Is(err, config.ErrUnknownElement) {
		t.Errorf("expected ErrUnknownElement, got %v", err)
	}
	if _, _, err := NewGridSearch([]string{"R1"}, nil).Search(context.Background(), base, Minimize("x")); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	// every point has a negative resistance and fails validation
	if _, _, err := NewGridSearch([]string{"R1"}, [][]float64{{-1, -2}}).Search(context.Background(), base, Minimize("x")); !errors.Is(err, ErrNoFeasiblePoint) {
		t.Errorf("expected ErrNoFeasiblePoint, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewGridSearch([]string{"R1"}, [][]float64{{1}}).Search(ctx, base, Minimize("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestObjectives(t *testing.T) {
	m := map[string]float64{"peak:v(a)": 3}
	if got := Minimize("peak:v(a)")(m); got != 3 {
		t.Errorf("expected 3, got %f", got)
	}
	if got := Target("peak:v(a)", 5)(m); got != 2 {
		t.Errorf("expected 2, got %f", got)
	}
	if got := Target("missing", 5)(m); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf for a missing metric, got %f", got)
	}
}
