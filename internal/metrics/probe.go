package metrics

import (
	"math"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
)

// Final is the probe value at the last step.
type Final struct {
	name  string
	probe circuit.Probe
	value float64
}

func NewFinal(p circuit.Probe) *Final {
	return &Final{name: "final:" + p.Name, probe: p}
}

func (f *Final) Name() string { return f.name }

func (f *Final) Observe(t float64, x transient.State) { f.value = f.probe.Value(x) }

func (f *Final) Value() float64 { return f.value }

func (f *Final) Reset() { f.value = 0 }

// Peak is the largest absolute probe value.
type Peak struct {
	name  string
	probe circuit.Probe
	peak  float64
}

func NewPeak(p circuit.Probe) *Peak {
	return &Peak{name: "peak:" + p.Name, probe: p}
}

func (pk *Peak) Name() string { return pk.name }

func (pk *Peak) Observe(t float64, x transient.State) {
	pk.peak = math.Max(pk.peak, math.Abs(pk.probe.Value(x)))
}

func (pk *Peak) Value() float64 { return pk.peak }

func (pk *Peak) Reset() { pk.peak = 0 }

// Mean is the arithmetic mean over all steps.
type Mean struct {
	name    string
	probe   circuit.Probe
	sum     float64
	samples int
}

func NewMean(p circuit.Probe) *Mean {
	return &Mean{name: "mean:" + p.Name, probe: p}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(t float64, x transient.State) {
	m.sum += m.probe.Value(x)
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}

// Monotonic is 1 while the probe has never decreased, 0 afterwards.
type Monotonic struct {
	name     string
	probe    circuit.Probe
	last     float64
	samples  int
	violated bool
}

func NewMonotonic(p circuit.Probe) *Monotonic {
	return &Monotonic{name: "monotonic:" + p.Name, probe: p}
}

func (m *Monotonic) Name() string { return m.name }

func (m *Monotonic) Observe(t float64, x transient.State) {
	v := m.probe.Value(x)
	if m.samples > 0 && v < m.last {
		m.violated = true
	}
	m.last = v
	m.samples++
}

func (m *Monotonic) Value() float64 {
	if m.violated {
		return 0
	}
	return 1
}

func (m *Monotonic) Reset() {
	m.last = 0
	m.samples = 0
	m.violated = false
}

// Defaults returns final, peak and mean for every probe.
func Defaults(probes []circuit.Probe) []transient.Metric {
	out := make([]transient.Metric, 0, 3*len(probes))
	for _, p := range probes {
		out = append(out, NewFinal(p), NewPeak(p), NewMean(p))
	}
	return out
}
