package experiment

import (
	"fmt"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/linalg"
	"github.com/san-kum/circuitsim/internal/transient"
)

// Entry summarizes one built-in circuit.
type Entry struct {
	Name     string
	Elements int
	Unknowns int
	Steps    int
	Probes   []string
}

type Registry struct {
	presets map[string]func() *config.Config
	solvers []string
	kinds   []circuit.Kind
}

func NewRegistry() *Registry {
	return &Registry{
		presets: config.Presets,
		solvers: linalg.Methods(),
		kinds:   circuit.Kinds(),
	}
}

// Preset returns a fresh copy of the named circuit configuration.
func (r *Registry) Preset(name string) (*config.Config, error) {
	if _, ok := r.presets[name]; !ok {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return config.GetPreset(name), nil
}

func (r *Registry) ListPresets() []string { return config.ListPresets() }
func (r *Registry) ListSolvers() []string { return r.solvers }

func (r *Registry) ListKinds() []string {
	kinds := make([]string, len(r.kinds))
	for i, k := range r.kinds {
		kinds[i] = string(k)
	}
	return kinds
}

// Describe compiles a preset and reports its size.
func (r *Registry) Describe(name string) (Entry, error) {
	cfg, err := r.Preset(name)
	if err != nil {
		return Entry{}, err
	}
	ckt, err := cfg.Circuit()
	if err != nil {
		return Entry{}, fmt.Errorf("preset %s: %w", name, err)
	}
	probes, err := ckt.Layout().Probes(cfg.Probes)
	if err != nil {
		return Entry{}, fmt.Errorf("preset %s: %w", name, err)
	}
	e := Entry{
		Name:     name,
		Elements: len(cfg.Elements),
		Unknowns: ckt.Size(),
		Steps:    transient.Config{H: cfg.H, TMax: cfg.TMax}.Steps(),
		Probes:   make([]string, len(probes)),
	}
	for i, p := range probes {
		e.Probes[i] = p.Name
	}
	return e, nil
}
