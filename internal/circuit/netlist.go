package circuit

import (
	"fmt"

	"github.com/san-kum/circuitsim/internal/linalg"
)

// Netlist is an ordered list of elements. Node indices follow the order in
// which nodes first appear.
type Netlist struct {
	Elements []Element
}

// Add appends an element and returns the netlist for chaining.
func (n *Netlist) Add(e Element) *Netlist {
	n.Elements = append(n.Elements, e)
	return n
}

// Circuit is a compiled netlist with a fixed layout.
type Circuit struct {
	layout *Layout
	stamps []stamp
}

// Compile validates the netlist and assigns solution indices: node voltages
// first, then branch currents in element order, then shaft speeds.
func (n *Netlist) Compile() (*Circuit, error) {
	if len(n.Elements) == 0 {
		return nil, ErrEmptyNetlist
	}

	seen := make(map[string]bool, len(n.Elements))
	grounded := false
	for _, e := range n.Elements {
		if err := e.validate(); err != nil {
			return nil, err
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		seen[e.Name] = true
		for _, node := range e.Nodes[:2] {
			if IsGround(node) {
				grounded = true
			}
		}
	}
	if !grounded {
		return nil, ErrNoGround
	}

	l := newLayout()
	stamps := make([]stamp, len(n.Elements))
	for i, e := range n.Elements {
		s := stamp{
			name:  e.Name,
			kind:  e.Kind,
			p:     l.node(e.Nodes[0]),
			q:     l.node(e.Nodes[1]),
			cp:    Ground,
			cq:    Ground,
			k:     Ground,
			w:     Ground,
			value: e.Value,
			wave:  e.Waveform,
		}
		if e.Kind == VCVS {
			s.cp = l.node(e.Nodes[2])
			s.cq = l.node(e.Nodes[3])
		}
		if e.Machine != nil {
			s.mach = *e.Machine
		}
		stamps[i] = s
	}
	for i, e := range n.Elements {
		if e.hasBranch() {
			stamps[i].k = l.add(CurrentName(e.Name), BranchCurrent)
		}
	}
	for i, e := range n.Elements {
		if e.Kind == Machine {
			s := &stamps[i]
			s.w = l.add(SpeedName(e.Name), ShaftSpeed)
			l.machines[e.Name] = machineSlots{armature: s.k, speed: s.w, ke: s.mach.Ke, kt: s.mach.Kt}
		}
	}

	return &Circuit{layout: l, stamps: stamps}, nil
}

func (c *Circuit) Layout() *Layout { return c.layout }

// Size is the order of the MNA system.
func (c *Circuit) Size() int { return c.layout.Size() }

// NewSystem allocates a zeroed matrix and excitation vector sized for the circuit.
func (c *Circuit) NewSystem() (*linalg.Matrix, *linalg.Vector) {
	n := c.Size()
	return linalg.NewMatrix(n, n), linalg.NewVector(n)
}

// StampMatrix adds every element's time-invariant contribution for step h
// into g. Callers zero g first; stamps only accumulate.
func (c *Circuit) StampMatrix(g *linalg.Matrix, h float64) error {
	if h <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidStep, h)
	}
	if r, cols := g.Dims(); r != c.Size() || cols != c.Size() {
		return fmt.Errorf("%w: matrix %dx%d, layout %d", ErrDimensionMismatch, r, cols, c.Size())
	}
	for i := range c.stamps {
		s := &c.stamps[i]
		if fn := stampers[s.kind].matrix; fn != nil {
			fn(s, g, h)
		}
	}
	return nil
}

// StampExcitation adds source values at time t and history terms taken from
// prev into b. Callers zero b first.
func (c *Circuit) StampExcitation(b, prev *linalg.Vector, t, h float64) error {
	if h <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidStep, h)
	}
	if b.Len() != c.Size() || prev.Len() != c.Size() {
		return fmt.Errorf("%w: rhs %d, history %d, layout %d", ErrDimensionMismatch, b.Len(), prev.Len(), c.Size())
	}
	for i := range c.stamps {
		s := &c.stamps[i]
		if fn := stampers[s.kind].excite; fn != nil {
			fn(s, b, prev, t, h)
		}
	}
	return nil
}

// Elements returns the names and kinds of the compiled elements in netlist order.
func (c *Circuit) Elements() []ElementInfo {
	out := make([]ElementInfo, len(c.stamps))
	for i, s := range c.stamps {
		out[i] = ElementInfo{Name: s.name, Kind: s.kind}
	}
	return out
}

type ElementInfo struct {
	Name string
	Kind Kind
}
