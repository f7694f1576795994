package config

import "sort"

func r(name, p, q string, v float64) ElementConfig {
	return ElementConfig{Name: name, Kind: "resistor", Nodes: []string{p, q}, Value: v}
}

func el(name, kind, p, q string, v float64) ElementConfig {
	return ElementConfig{Name: name, Kind: kind, Nodes: []string{p, q}, Value: v}
}

var Presets = map[string]func() *Config{
	"ohm": func() *Config {
		return &Config{
			Name: "ohm", TMax: 0.01, H: 0.001, Solver: "lu",
			Elements: []ElementConfig{
				r("R1", "1", "0", 1),
				el("I1", "isource", "1", "0", 1),
			},
			Probes: []string{"v(1)"},
		}
	},
	"rc": func() *Config {
		return &Config{
			Name: "rc", TMax: 1, H: 0.001, Solver: "lu",
			Elements: []ElementConfig{
				el("V1", "vsource", "in", "0", 1),
				r("R1", "in", "out", 1),
				el("C1", "capacitor", "out", "0", 1),
			},
			Probes: []string{"v(out)", "i(V1)"},
		}
	},
	"rl": func() *Config {
		return &Config{
			Name: "rl", TMax: 0.05, H: 0.0001, Solver: "lu",
			Elements: []ElementConfig{
				{Name: "V1", Kind: "vsource", Nodes: []string{"in", "0"}, Waveform: &WaveformConfig{Type: "step", After: 5, Delay: 0.005}},
				r("R1", "in", "a", 10),
				el("L1", "inductor", "a", "0", 0.1),
			},
			Probes: []string{"v(a)", "i(L1)"},
		}
	},
	"rlc": func() *Config {
		return &Config{
			Name: "rlc", TMax: 0.02, H: 0.00001, Solver: "lu",
			Elements: []ElementConfig{
				{Name: "V1", Kind: "vsource", Nodes: []string{"in", "0"}, Waveform: &WaveformConfig{Type: "pulse", V2: 1, Delay: 0.001, Width: 0.01}},
				r("R1", "in", "a", 5),
				el("L1", "inductor", "a", "b", 0.01),
				el("C1", "capacitor", "b", "0", 10e-6),
			},
			Probes: []string{"v(b)", "i(L1)"},
		}
	},
	"amplifier": func() *Config {
		return &Config{
			Name: "amplifier", TMax: 0.01, H: 0.00001, Solver: "lu",
			Elements: []ElementConfig{
				{Name: "V1", Kind: "vsource", Nodes: []string{"in", "0"}, Waveform: &WaveformConfig{Type: "sine", Amplitude: 0.1, Freq: 500}},
				r("Rin", "in", "0", 1000),
				{Name: "E1", Kind: "vcvs", Nodes: []string{"out", "0", "in", "0"}, Value: 20},
				r("Rl", "out", "0", 100),
			},
			Probes: []string{"v(in)", "v(out)"},
		}
	},
	// current source driving R1 in parallel with L1 + R2
	"template": func() *Config {
		return &Config{
			Name: "template", TMax: 1, H: 0.001, Solver: "lu",
			Elements: []ElementConfig{
				el("I1", "isource", "n0", "gnd", 1),
				r("R1", "n0", "gnd", 1),
				el("L1", "inductor", "n0", "n1", 0.1),
				r("R2", "n1", "gnd", 1),
			},
			Probes: []string{"v(n1)", "i(L1)"},
		}
	},
	// template circuit with C1 across the output and R3 to a voltage source
	"final": func() *Config {
		return &Config{
			Name: "final", TMax: 1, H: 0.001, Solver: "lu",
			Elements: []ElementConfig{
				el("I1", "isource", "n0", "gnd", 1),
				r("R1", "n0", "gnd", 1),
				el("L1", "inductor", "n0", "n1", 0.1),
				r("R2", "n1", "gnd", 1),
				el("C1", "capacitor", "n1", "gnd", 0.01),
				r("R3", "n1", "n3", 1),
				el("V1", "vsource", "n3", "gnd", 1),
			},
			Probes: []string{"v(n1)", "i(L1)", "i(V1)"},
		}
	},
	"dcmotor": func() *Config {
		return &Config{
			Name: "dcmotor", TMax: 1, H: 0.001, Solver: "lu",
			Elements: []ElementConfig{
				el("V1", "vsource", "va", "0", 10),
				r("Ra", "va", "v2", 0.5),
				el("La", "inductor", "v2", "eb", 10e-6),
				{Name: "M1", Kind: "motor", Nodes: []string{"eb", "0"}, Motor: &MotorConfig{Ke: 0.1, Kt: 0.1, J: 0.1, B: 0.005}},
			},
			Probes: []string{"torque(M1)", "emf(M1)", "i(M1)", "w(M1)"},
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := fn()
	cfg.Output.Precision = DefaultPrecision
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
