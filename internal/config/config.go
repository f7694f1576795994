package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/linalg"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTMax      = 1.0
	DefaultH         = 0.001
	DefaultSolver    = linalg.MethodLU
	DefaultPrecision = 6
)

var ErrUnknownElement = errors.New("config: unknown element")

type Config struct {
	Name     string          `yaml:"name"`
	TMax     float64         `yaml:"tmax"`
	H        float64         `yaml:"h"`
	Solver   string          `yaml:"solver"`
	Elements []ElementConfig `yaml:"elements"`
	Probes   []string        `yaml:"probes,omitempty"`
	Output   OutputConfig    `yaml:"output"`
}

type ElementConfig struct {
	Name     string          `yaml:"name"`
	Kind     string          `yaml:"kind"`
	Nodes    []string        `yaml:"nodes"`
	Value    float64         `yaml:"value"`
	Waveform *WaveformConfig `yaml:"waveform,omitempty"`
	Motor    *MotorConfig    `yaml:"motor,omitempty"`
}

// WaveformConfig selects a source waveform by Type; only the fields of that
// type are read.
type WaveformConfig struct {
	Type      string  `yaml:"type"`
	Offset    float64 `yaml:"offset,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	Freq      float64 `yaml:"freq,omitempty"`
	Phase     float64 `yaml:"phase,omitempty"`
	Before    float64 `yaml:"before,omitempty"`
	After     float64 `yaml:"after,omitempty"`
	Delay     float64 `yaml:"delay,omitempty"`
	V1        float64 `yaml:"v1,omitempty"`
	V2        float64 `yaml:"v2,omitempty"`
	Width     float64 `yaml:"width,omitempty"`
	Period    float64 `yaml:"period,omitempty"`
}

type MotorConfig struct {
	Ke   float64 `yaml:"ke"`
	Kt   float64 `yaml:"kt"`
	J    float64 `yaml:"j"`
	B    float64 `yaml:"b"`
	Load float64 `yaml:"load,omitempty"`
}

type OutputConfig struct {
	CSV       string `yaml:"csv,omitempty"`
	Chart     string `yaml:"chart,omitempty"`
	Precision int    `yaml:"precision,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:   "circuit",
		TMax:   DefaultTMax,
		H:      DefaultH,
		Solver: DefaultSolver,
		Output: OutputConfig{Precision: DefaultPrecision},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the run parameters and compiles the netlist.
func (c *Config) Validate() error {
	if c.H <= 0 {
		return fmt.Errorf("h must be positive, got %f", c.H)
	}
	if c.TMax <= 0 {
		return fmt.Errorf("tmax must be positive, got %f", c.TMax)
	}
	if c.H > c.TMax {
		return fmt.Errorf("h (%f) must not exceed tmax (%f)", c.H, c.TMax)
	}
	if _, err := linalg.NewSolver(c.Solver); err != nil {
		return err
	}
	if c.Output.Precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", c.Output.Precision)
	}
	ckt, err := c.Circuit()
	if err != nil {
		return err
	}
	_, err = ckt.Layout().Probes(c.Probes)
	return err
}

// Netlist converts the element list.
func (c *Config) Netlist() (*circuit.Netlist, error) {
	nl := &circuit.Netlist{}
	for _, ec := range c.Elements {
		e := circuit.Element{
			Name:  ec.Name,
			Kind:  circuit.Kind(strings.ToLower(ec.Kind)),
			Nodes: ec.Nodes,
			Value: ec.Value,
		}
		if ec.Waveform != nil {
			w, err := ec.Waveform.build()
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", ec.Name, err)
			}
			e.Waveform = w
		}
		if ec.Motor != nil {
			e.Machine = &circuit.MachineParams{
				Ke:   ec.Motor.Ke,
				Kt:   ec.Motor.Kt,
				J:    ec.Motor.J,
				B:    ec.Motor.B,
				Load: ec.Motor.Load,
			}
		}
		nl.Add(e)
	}
	return nl, nil
}

// Circuit converts and compiles the netlist.
func (c *Config) Circuit() (*circuit.Circuit, error) {
	nl, err := c.Netlist()
	if err != nil {
		return nil, err
	}
	return nl.Compile()
}

func (w *WaveformConfig) build() (circuit.Waveform, error) {
	switch strings.ToLower(w.Type) {
	case "", "dc":
		return circuit.DC(w.Offset), nil
	case "step":
		return circuit.Step{Before: w.Before, After: w.After, Delay: w.Delay}, nil
	case "sine", "sin":
		return circuit.Sine{Offset: w.Offset, Amplitude: w.Amplitude, Freq: w.Freq, Phase: w.Phase}, nil
	case "pulse":
		if w.Width < 0 || w.Period < 0 {
			return nil, fmt.Errorf("pulse width and period must not be negative")
		}
		return circuit.Pulse{V1: w.V1, V2: w.V2, Delay: w.Delay, Width: w.Width, Period: w.Period}, nil
	}
	return nil, fmt.Errorf("unknown waveform type: %s", w.Type)
}

// Clone returns a deep copy, so sweeps can modify element values freely.
func (c *Config) Clone() *Config {
	out := *c
	out.Probes = append([]string(nil), c.Probes...)
	out.Elements = make([]ElementConfig, len(c.Elements))
	for i, ec := range c.Elements {
		ec.Nodes = append([]string(nil), ec.Nodes...)
		if ec.Waveform != nil {
			w := *ec.Waveform
			ec.Waveform = &w
		}
		if ec.Motor != nil {
			m := *ec.Motor
			ec.Motor = &m
		}
		out.Elements[i] = ec
	}
	return &out
}

func (c *Config) element(name string) (*ElementConfig, error) {
	for i := range c.Elements {
		if c.Elements[i].Name == name {
			return &c.Elements[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownElement, name)
}

// Value returns the value of a named element.
func (c *Config) Value(name string) (float64, error) {
	ec, err := c.element(name)
	if err != nil {
		return 0, err
	}
	return ec.Value, nil
}

// SetValue changes the value of a named element. Motors carry no single value
// and are rejected.
func (c *Config) SetValue(name string, v float64) error {
	ec, err := c.element(name)
	if err != nil {
		return err
	}
	if circuit.Kind(strings.ToLower(ec.Kind)) == circuit.Machine {
		return fmt.Errorf("element %s: motor parameters cannot be swept", name)
	}
	ec.Value = v
	return nil
}
