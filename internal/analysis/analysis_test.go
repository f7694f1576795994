package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
)

func TestDominantFrequency(t *testing.T) {
	const h = 1e-4
	values := make([]float64, 1000)
	for i := range values {
		values[i] = 2 + math.Sin(2*math.Pi*50*float64(i)*h)
	}

	s, err := DominantFrequency(values, h)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.BinWidth-10) > 1e-9 {
		t.Errorf("expected bin width 10 Hz, got %f", s.BinWidth)
	}
	if math.Abs(s.Dominant-50) > s.BinWidth/2 {
		t.Errorf("expected dominant frequency 50 Hz, got %f", s.Dominant)
	}
	if len(s.Power) != 500 {
		t.Errorf("expected 500 spectrum bins, got %d", len(s.Power))
	}
}

func TestDominantFrequencyTooShort(t *testing.T) {
	if _, err := DominantFrequency([]float64{1, 2}, 0.1); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
}

func TestConvergenceFirstOrder(t *testing.T) {
	ckt, err := (&circuit.Netlist{Elements: []circuit.Element{
		{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"in", "0"}, Value: 1},
		{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"in", "out"}, Value: 1},
		{Name: "C1", Kind: circuit.Capacitor, Nodes: []string{"out", "0"}, Value: 1},
	}}).Compile()
	if err != nil {
		t.Fatal(err)
	}
	probe, err := ckt.Layout().Probe("v(out)")
	if err != nil {
		t.Fatal(err)
	}

	pts, err := Convergence(context.Background(), ckt, probe, transient.Config{H: 0.01, TMax: 1}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(pts))
	}
	if !math.IsNaN(pts[0].MaxDiff) || !math.IsNaN(pts[1].Order) {
		t.Error("expected NaN difference on the first level and NaN order on the second")
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].H != pts[i-1].H/2 {
			t.Errorf("level %d: expected h %g, got %g", i, pts[i-1].H/2, pts[i].H)
		}
		if i >= 2 && pts[i].MaxDiff >= pts[i-1].MaxDiff {
			t.Errorf("level %d: difference %g did not shrink from %g", i, pts[i].MaxDiff, pts[i-1].MaxDiff)
		}
	}
	if order := pts[3].Order; order < 0.7 || order > 1.3 {
		t.Errorf("expected first-order convergence, got order %f", order)
	}
}

func TestConvergenceLevels(t *testing.T) {
	if _, err := Convergence(context.Background(), nil, circuit.Probe{}, transient.Config{}, 1); err == nil {
		t.Error("expected error for a single level")
	}
}
