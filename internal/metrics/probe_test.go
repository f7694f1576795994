package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
)

func firstNodeProbe(t *testing.T) circuit.Probe {
	t.Helper()
	ckt, err := (&circuit.Netlist{Elements: []circuit.Element{
		{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
	}}).Compile()
	if err != nil {
		t.Fatal(err)
	}
	p, err := ckt.Layout().Probe("v(a)")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func feed(m transient.Metric, values ...float64) {
	for i, v := range values {
		m.Observe(float64(i), transient.State{v})
	}
}

func TestProbeMetrics(t *testing.T) {
	p := firstNodeProbe(t)
	tests := []struct {
		metric transient.Metric
		name   string
		values []float64
		want   float64
	}{
		{NewFinal(p), "final:v(a)", []float64{1, 3, 2}, 2},
		{NewPeak(p), "peak:v(a)", []float64{1, -4, 2}, 4},
		{NewMean(p), "mean:v(a)", []float64{1, 2, 3, 6}, 3},
		{NewMonotonic(p), "monotonic:v(a)", []float64{0, 0.5, 0.5, 0.9}, 1},
		{NewMonotonic(p), "monotonic:v(a)", []float64{0, 0.5, 0.4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric.Name() != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, tt.metric.Name())
			}
			feed(tt.metric, tt.values...)
			if got := tt.metric.Value(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}

			tt.metric.Reset()
			feed(tt.metric, 5)
			if tt.metric.Value() != 5 && tt.metric.Value() != 1 {
				t.Errorf("reset did not clear state, got %f", tt.metric.Value())
			}
		})
	}
}

func TestMeanEmpty(t *testing.T) {
	if v := NewMean(firstNodeProbe(t)).Value(); v != 0 {
		t.Errorf("expected 0 for no samples, got %f", v)
	}
}

func TestDefaults(t *testing.T) {
	p := firstNodeProbe(t)
	ms := Defaults([]circuit.Probe{p, p})
	if len(ms) != 6 {
		t.Errorf("expected 6 metrics, got %d", len(ms))
	}
}
