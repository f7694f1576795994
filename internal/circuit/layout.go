package circuit

import (
	"fmt"
	"strings"
)

// UnknownKind classifies an entry of the solution vector.
type UnknownKind int

const (
	NodeVoltage UnknownKind = iota
	BranchCurrent
	ShaftSpeed
)

func (k UnknownKind) String() string {
	switch k {
	case NodeVoltage:
		return "voltage"
	case BranchCurrent:
		return "current"
	case ShaftSpeed:
		return "speed"
	}
	return "unknown"
}

// Unknown is one named slot of the solution vector.
type Unknown struct {
	Name  string
	Index int
	Kind  UnknownKind
}

func VoltageName(node string) string  { return "v(" + node + ")" }
func CurrentName(elem string) string  { return "i(" + elem + ")" }
func SpeedName(machine string) string { return "w(" + machine + ")" }

// Layout binds names to indices of the solution vector. It is fixed once the
// netlist is compiled.
type Layout struct {
	unknowns []Unknown
	byName   map[string]int
	nodes    map[string]int
	machines map[string]machineSlots
}

type machineSlots struct {
	armature, speed int
	ke, kt          float64
}

func newLayout() *Layout {
	return &Layout{
		byName:   make(map[string]int),
		nodes:    make(map[string]int),
		machines: make(map[string]machineSlots),
	}
}

func (l *Layout) add(name string, kind UnknownKind) int {
	idx := len(l.unknowns)
	l.unknowns = append(l.unknowns, Unknown{Name: name, Index: idx, Kind: kind})
	l.byName[name] = idx
	return idx
}

// node returns the index of a node, allocating one on first sight. Ground is -1.
func (l *Layout) node(name string) int {
	if IsGround(name) {
		return Ground
	}
	if idx, ok := l.nodes[name]; ok {
		return idx
	}
	idx := l.add(VoltageName(name), NodeVoltage)
	l.nodes[name] = idx
	return idx
}

// Size is the number of unknowns.
func (l *Layout) Size() int { return len(l.unknowns) }

func (l *Layout) Unknowns() []Unknown {
	out := make([]Unknown, len(l.unknowns))
	copy(out, l.unknowns)
	return out
}

// Names returns the unknown names in index order.
func (l *Layout) Names() []string {
	names := make([]string, len(l.unknowns))
	for i, u := range l.unknowns {
		names[i] = u.Name
	}
	return names
}

// Index returns the slot of a named unknown.
func (l *Layout) Index(name string) (int, bool) {
	idx, ok := l.byName[name]
	return idx, ok
}

// Probe is a named linear readout of the solution vector.
type Probe struct {
	Name  string
	terms []term
}

type term struct {
	index int
	coef  float64
}

// Value evaluates the probe on a solution vector.
func (p Probe) Value(x []float64) float64 {
	v := 0.0
	for _, t := range p.terms {
		v += t.coef * x[t.index]
	}
	return v
}

// Probe resolves a probe expression. Accepted forms:
//
//	v(n)        node voltage, v(0) reads ground
//	v(a,b)      voltage of a relative to b
//	i(elem)     branch current of a source, inductor or motor
//	w(motor)    shaft speed
//	emf(motor)  back EMF Ke*w
//	torque(motor) electrical torque Kt*i
//	n           bare node name, same as v(n)
func (l *Layout) Probe(expr string) (Probe, error) {
	expr = strings.TrimSpace(expr)
	if idx, ok := l.byName[expr]; ok {
		return Probe{Name: expr, terms: []term{{idx, 1}}}, nil
	}

	fn, arg, ok := splitCall(expr)
	if !ok {
		if IsGround(expr) {
			return Probe{Name: VoltageName(expr)}, nil
		}
		if idx, ok := l.nodes[expr]; ok {
			return Probe{Name: VoltageName(expr), terms: []term{{idx, 1}}}, nil
		}
		return Probe{}, fmt.Errorf("%w: %q", ErrUnknownProbe, expr)
	}

	switch fn {
	case "v":
		parts := strings.Split(arg, ",")
		if len(parts) > 2 {
			break
		}
		p := Probe{Name: expr}
		for i, n := range parts {
			n = strings.TrimSpace(n)
			if IsGround(n) {
				continue
			}
			idx, ok := l.nodes[n]
			if !ok {
				return Probe{}, fmt.Errorf("%w: node %q in %q", ErrUnknownProbe, n, expr)
			}
			coef := 1.0
			if i == 1 {
				coef = -1
			}
			p.terms = append(p.terms, term{idx, coef})
		}
		return p, nil
	case "emf", "torque":
		m, ok := l.machines[arg]
		if !ok {
			return Probe{}, fmt.Errorf("%w: %q is not a motor", ErrUnknownProbe, arg)
		}
		if fn == "emf" {
			return Probe{Name: expr, terms: []term{{m.speed, m.ke}}}, nil
		}
		return Probe{Name: expr, terms: []term{{m.armature, m.kt}}}, nil
	}
	return Probe{}, fmt.Errorf("%w: %q", ErrUnknownProbe, expr)
}

// Probes resolves several expressions; an empty list selects every unknown.
func (l *Layout) Probes(exprs []string) ([]Probe, error) {
	if len(exprs) == 0 {
		exprs = l.Names()
	}
	probes := make([]Probe, 0, len(exprs))
	for _, e := range exprs {
		p, err := l.Probe(e)
		if err != nil {
			return nil, err
		}
		probes = append(probes, p)
	}
	return probes, nil
}

func splitCall(expr string) (fn, arg string, ok bool) {
	open := strings.IndexByte(expr, '(')
	if open <= 0 || !strings.HasSuffix(expr, ")") {
		return "", "", false
	}
	return strings.ToLower(expr[:open]), strings.TrimSpace(expr[open+1 : len(expr)-1]), true
}
