package transient

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/linalg"
)

func compile(t *testing.T, elems ...circuit.Element) *circuit.Circuit {
	t.Helper()
	c, err := (&circuit.Netlist{Elements: elems}).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return c
}

func rcCircuit(t *testing.T) *circuit.Circuit {
	return compile(t,
		circuit.Element{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"in", "0"}, Value: 1},
		circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"in", "out"}, Value: 1},
		circuit.Element{Name: "C1", Kind: circuit.Capacitor, Nodes: []string{"out", "0"}, Value: 1},
	)
}

func probe(t *testing.T, c *circuit.Circuit, expr string) circuit.Probe {
	t.Helper()
	p, err := c.Layout().Probe(expr)
	if err != nil {
		t.Fatalf("probe %s: %v", expr, err)
	}
	return p
}

func run(t *testing.T, sys System, cfg Config, opts ...Option) *Result {
	t.Helper()
	d, err := New(sys, cfg, opts...)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestOhmsLaw(t *testing.T) {
	c := compile(t,
		circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"1", "0"}, Value: 1},
		circuit.Element{Name: "I1", Kind: circuit.CurrentSource, Nodes: []string{"1", "0"}, Value: 1},
	)
	d, err := New(c, Config{H: 0.1, TMax: 1, Record: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Build(); err != nil {
		t.Fatal(err)
	}
	if g := d.Matrix(); g.At(0, 0) != 1 {
		t.Errorf("expected G=[[1]], got %v", g)
	}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", res.StepsTaken)
	}
	for i, x := range res.States {
		if math.Abs(x[0]-1) > 1e-12 {
			t.Errorf("step %d: expected x=[1], got %v", i, x)
		}
	}
}

func TestZeroExcitation(t *testing.T) {
	c := compile(t,
		circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 2},
		circuit.Element{Name: "L1", Kind: circuit.Inductor, Nodes: []string{"a", "b"}, Value: 1e-3},
		circuit.Element{Name: "C1", Kind: circuit.Capacitor, Nodes: []string{"b", "0"}, Value: 1e-6},
		circuit.Element{Name: "M1", Kind: circuit.Machine, Nodes: []string{"b", "0"},
			Machine: &circuit.MachineParams{Ke: 0.1, Kt: 0.1, J: 0.1, B: 0.005}},
	)
	res := run(t, c, Config{H: 1e-4, TMax: 1e-2, Record: true})
	for i, x := range res.States {
		for j, v := range x {
			if v != 0 {
				t.Fatalf("step %d: x[%d] = %g, want 0", i, j, v)
			}
		}
	}
}

func TestRCCharging(t *testing.T) {
	c := rcCircuit(t)
	vout := probe(t, c, "v(out)")

	res := run(t, c, Config{H: 0.001, TMax: 1, Record: true})
	if len(res.States) != 1000 {
		t.Fatalf("expected 1000 samples, got %d", len(res.States))
	}

	prev := 0.0
	for i, x := range res.States {
		v := vout.Value(x)
		if v <= prev {
			t.Fatalf("step %d: v(out) %f not above previous %f", i, v, prev)
		}
		if v >= 1 {
			t.Fatalf("step %d: v(out) %f reached the source voltage", i, v)
		}
		prev = v
	}

	want := 1 - math.Exp(-1)
	if math.Abs(prev-want) > 1e-3 {
		t.Errorf("expected v(out) near %f at t=1, got %f", want, prev)
	}
}

func TestSteadyStateIndependentOfStep(t *testing.T) {
	c := rcCircuit(t)
	vout := probe(t, c, "v(out)")

	for _, h := range []float64{0.001, 0.002} {
		res := run(t, c, Config{H: h, TMax: 20})
		if got := vout.Value(res.Final); math.Abs(got-1) > 1e-6 {
			t.Errorf("h=%g: expected steady state 1, got %f", h, got)
		}
	}
}

func TestConvergenceAsStepShrinks(t *testing.T) {
	c := rcCircuit(t)
	vout := probe(t, c, "v(out)")
	exact := 1 - math.Exp(-1)

	prevErr := math.Inf(1)
	for _, h := range []float64{0.01, 0.005, 0.0025} {
		res := run(t, c, Config{H: h, TMax: 1})
		err := math.Abs(vout.Value(res.Final) - exact)
		if err >= 0.6*prevErr {
			t.Errorf("h=%g: error %g did not shrink from %g", h, err, prevErr)
		}
		prevErr = err
	}
}

func TestDCMotorSteadyState(t *testing.T) {
	mp := &circuit.MachineParams{Ke: 0.1, Kt: 0.1, J: 0.1, B: 0.005}
	c := compile(t,
		circuit.Element{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"va", "0"}, Value: 10},
		circuit.Element{Name: "Ra", Kind: circuit.Resistor, Nodes: []string{"va", "v2"}, Value: 0.5},
		circuit.Element{Name: "La", Kind: circuit.Inductor, Nodes: []string{"v2", "eb"}, Value: 10e-6},
		circuit.Element{Name: "M1", Kind: circuit.Machine, Nodes: []string{"eb", "0"}, Machine: mp},
	)
	res := run(t, c, Config{H: 0.001, TMax: 1})

	// steady state: w = B*Kt*i and 10 = Ra*i + Ke*w
	wantI := 10 / (0.5 + mp.Ke*mp.B*mp.Kt)
	if got := probe(t, c, "i(M1)").Value(res.Final); math.Abs(got-wantI) > 1e-6 {
		t.Errorf("expected armature current %f, got %f", wantI, got)
	}
	if got := probe(t, c, "w(M1)").Value(res.Final); math.Abs(got-mp.B*mp.Kt*wantI) > 1e-6 {
		t.Errorf("expected speed %f, got %f", mp.B*mp.Kt*wantI, got)
	}
}

func TestTimeAxis(t *testing.T) {
	c := rcCircuit(t)
	res := run(t, c, Config{H: 0.003, TMax: 0.01, Record: true})

	want := []float64{0, 0.003, 0.006, 0.009}
	if len(res.Times) != len(want) {
		t.Fatalf("expected %d times, got %v", len(want), res.Times)
	}
	for i, w := range want {
		if math.Abs(res.Times[i]-w) > 1e-15 {
			t.Errorf("t[%d]: expected %g, got %g", i, w, res.Times[i])
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	c := rcCircuit(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero step", Config{H: 0, TMax: 1}},
		{"negative step", Config{H: -0.1, TMax: 1}},
		{"zero tmax", Config{H: 0.1, TMax: 0}},
		{"nan step", Config{H: math.NaN(), TMax: 1}},
		{"step beyond tmax", Config{H: 2, TMax: 1}},
		{"unknown solver", Config{H: 0.1, TMax: 1, Solver: "jacobi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(c, tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSingularSystem(t *testing.T) {
	c := compile(t,
		circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
		circuit.Element{Name: "R2", Kind: circuit.Resistor, Nodes: []string{"b", "c"}, Value: 1},
	)
	for _, method := range linalg.Methods() {
		t.Run(method, func(t *testing.T) {
			d, err := New(c, Config{H: 0.1, TMax: 1, Solver: method})
			if err != nil {
				t.Fatal(err)
			}
			_, err = d.Run(context.Background())

			var simErr *SimulationError
			if !errors.As(err, &simErr) {
				t.Fatalf("expected SimulationError, got %v", err)
			}
			if simErr.Step != 0 || simErr.Time != 0 {
				t.Errorf("expected failure at step 0, got step %d t=%g", simErr.Step, simErr.Time)
			}
			if !errors.Is(err, ErrIllPosed) || !errors.Is(err, linalg.ErrSingular) {
				t.Errorf("expected ErrIllPosed wrapping ErrSingular, got %v", err)
			}
			if err2 := d.Step(context.Background()); err2 != err {
				t.Errorf("expected failed driver to keep returning %v, got %v", err, err2)
			}
		})
	}
}

func TestPhaseTransitions(t *testing.T) {
	d, err := New(rcCircuit(t), Config{H: 0.5, TMax: 1})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if d.Phase() != Uninitialized {
		t.Fatalf("expected uninitialized, got %s", d.Phase())
	}
	if err := d.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start before build: expected ErrInvalidTransition, got %v", err)
	}
	if err := d.Step(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("step before build: expected ErrInvalidTransition, got %v", err)
	}

	if err := d.Build(); err != nil {
		t.Fatal(err)
	}
	if d.Phase() != MatrixBuilt {
		t.Errorf("expected matrix-built, got %s", d.Phase())
	}
	if err := d.Build(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second build: expected ErrInvalidTransition, got %v", err)
	}

	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if d.Phase() != Running {
			t.Fatalf("step %d: expected running, got %s", i, d.Phase())
		}
		if err := d.Step(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if d.Phase() != Done {
		t.Errorf("expected done after %d steps, got %s", d.Steps(), d.Phase())
	}
	if err := d.Step(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("step after done: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	c := rcCircuit(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, _ := New(c, Config{H: 0.001, TMax: 1})
	res, err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", res.StepsTaken)
	}

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	d, _ = New(c, Config{H: 0.001, TMax: 1})
	calls := 0
	d.AddSink(SinkFunc(func(t float64, x State) error {
		calls++
		if calls == 10 {
			cancel()
		}
		return nil
	}))
	res, err = d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res.StepsTaken != 10 {
		t.Errorf("expected cancellation after 10 whole steps, got %d", res.StepsTaken)
	}
	if d.Phase() != Running {
		t.Errorf("expected driver left running, got %s", d.Phase())
	}
}

func TestSinkIsolation(t *testing.T) {
	c := rcCircuit(t)
	var seen []float64
	var firstValues []float64

	res := run(t, c, Config{H: 0.1, TMax: 1},
		WithSink(SinkFunc(func(t float64, x State) error {
			x[0] = 999
			return errors.New("disk full")
		})),
		WithSink(SinkFunc(func(t float64, x State) error {
			seen = append(seen, t)
			firstValues = append(firstValues, x[0])
			return nil
		})),
	)

	if res.SinkErrors != 10 {
		t.Errorf("expected 10 sink errors, got %d", res.SinkErrors)
	}
	if len(seen) != 10 {
		t.Fatalf("expected healthy sink to see 10 steps, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("times not increasing at %d: %v", i, seen)
		}
	}
	for i, v := range firstValues {
		if math.Abs(v-1) > 1e-9 {
			t.Errorf("step %d: sink observed another sink's mutation: v(in)=%f", i, v)
		}
	}
}

type countMetric struct{ n int }

func (m *countMetric) Name() string               { return "count" }
func (m *countMetric) Observe(t float64, x State) { m.n++ }
func (m *countMetric) Value() float64             { return float64(m.n) }
func (m *countMetric) Reset()                     { m.n = 0 }

func TestMetricsCollected(t *testing.T) {
	res := run(t, rcCircuit(t), Config{H: 0.25, TMax: 1}, WithMetric(&countMetric{}))
	if res.Metrics["count"] != 4 {
		t.Errorf("expected count metric 4, got %f", res.Metrics["count"])
	}
}

func BenchmarkRun(b *testing.B) {
	c, err := (&circuit.Netlist{Elements: []circuit.Element{
		{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"in", "0"}, Value: 1},
		{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"in", "out"}, Value: 1},
		{Name: "C1", Kind: circuit.Capacitor, Nodes: []string{"out", "0"}, Value: 1},
	}}).Compile()
	if err != nil {
		b.Fatal(err)
	}
	for _, method := range linalg.Methods() {
		b.Run(method, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				d, _ := New(c, Config{H: 0.001, TMax: 1, Solver: method})
				if _, err := d.Run(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
