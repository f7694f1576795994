package circuit

import (
	"fmt"
	"strings"
)

// Kind identifies an element type and selects its stamp.
type Kind string

const (
	Resistor      Kind = "resistor"
	CurrentSource Kind = "isource"
	VoltageSource Kind = "vsource"
	VCVS          Kind = "vcvs"
	Inductor      Kind = "inductor"
	Capacitor     Kind = "capacitor"
	Machine       Kind = "motor"
)

// Kinds lists every supported element kind.
func Kinds() []Kind {
	return []Kind{Resistor, CurrentSource, VoltageSource, VCVS, Inductor, Capacitor, Machine}
}

// Element is one netlist entry.
//
// Nodes holds the terminals in order: (p, q) for two-terminal elements and
// (p, q, cp, cq) for a VCVS, where cp/cq are the controlling nodes.
// Value is the resistance, current, voltage, gain, inductance or capacitance.
// Sources use Waveform when set and a DC level of Value otherwise.
type Element struct {
	Name     string
	Kind     Kind
	Nodes    []string
	Value    float64
	Waveform Waveform
	Machine  *MachineParams
}

// MachineParams describes a DC machine coupling the armature branch to the
// shaft speed: back EMF e = Ke*w, torque T = Kt*i, shaft J*dw/dt + w/B = T - Load.
type MachineParams struct {
	Ke   float64
	Kt   float64
	J    float64
	B    float64
	Load float64
}

// IsGround reports whether a node name refers to the reference node.
func IsGround(node string) bool {
	return node == "0" || strings.EqualFold(node, "gnd")
}

func (e Element) terminals() int {
	if e.Kind == VCVS {
		return 4
	}
	return 2
}

// hasBranch reports whether the element adds a branch current unknown.
func (e Element) hasBranch() bool {
	switch e.Kind {
	case VoltageSource, VCVS, Inductor, Machine:
		return true
	}
	return false
}

func (e Element) validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: element without a name", ErrInvalidElement)
	}
	if _, ok := stampers[e.Kind]; !ok {
		return fmt.Errorf("element %q: %w: %q", e.Name, ErrUnknownKind, e.Kind)
	}
	if len(e.Nodes) != e.terminals() {
		return fmt.Errorf("element %q: %w: %s needs %d nodes, got %d", e.Name, ErrInvalidElement, e.Kind, e.terminals(), len(e.Nodes))
	}
	for _, n := range e.Nodes {
		if n == "" {
			return fmt.Errorf("element %q: %w: empty node name", e.Name, ErrInvalidElement)
		}
	}
	if samePotential(e.Nodes[0], e.Nodes[1]) {
		return fmt.Errorf("element %q: %w: both terminals on node %s", e.Name, ErrInvalidElement, e.Nodes[0])
	}

	switch e.Kind {
	case Resistor, Inductor, Capacitor:
		if e.Value <= 0 {
			return fmt.Errorf("element %q: %w: %s value must be positive, got %g", e.Name, ErrInvalidElement, e.Kind, e.Value)
		}
	case Machine:
		m := e.Machine
		if m == nil {
			return fmt.Errorf("element %q: %w: motor parameters missing", e.Name, ErrInvalidElement)
		}
		if m.J <= 0 || m.B <= 0 {
			return fmt.Errorf("element %q: %w: motor J and B must be positive, got J=%g B=%g", e.Name, ErrInvalidElement, m.J, m.B)
		}
	}
	return nil
}

func samePotential(a, b string) bool {
	if IsGround(a) && IsGround(b) {
		return true
	}
	return a == b
}
