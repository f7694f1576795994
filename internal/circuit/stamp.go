package circuit

import "github.com/san-kum/circuitsim/internal/linalg"

// stamp is a compiled element: names resolved to solution indices.
type stamp struct {
	name   string
	kind   Kind
	p, q   int
	cp, cq int
	k      int // branch current
	w      int // shaft speed
	value  float64
	wave   Waveform
	mach   MachineParams
}

// stamper holds the two halves of an element's contribution. matrix runs once
// per compiled circuit and step size; excite runs every time step. Either may be nil.
type stamper struct {
	matrix func(s *stamp, g *linalg.Matrix, h float64)
	excite func(s *stamp, b, prev *linalg.Vector, t, h float64)
}

var stampers = map[Kind]stamper{
	Resistor: {
		matrix: func(s *stamp, g *linalg.Matrix, _ float64) {
			stampConductance(g, s.p, s.q, 1/s.value)
		},
	},
	CurrentSource: {
		excite: func(s *stamp, b, _ *linalg.Vector, t, _ float64) {
			stampCurrent(b, s.p, s.q, sourceValue(s.wave, s.value, t))
		},
	},
	VoltageSource: {
		matrix: func(s *stamp, g *linalg.Matrix, _ float64) {
			stampBranch(g, s.p, s.q, s.k)
		},
		excite: func(s *stamp, b, _ *linalg.Vector, t, _ float64) {
			stampRHS(b, s.k, sourceValue(s.wave, s.value, t))
		},
	},
	VCVS: {
		// v_p - v_q - A*(v_cp - v_cq) = 0
		matrix: func(s *stamp, g *linalg.Matrix, _ float64) {
			stampBranch(g, s.p, s.q, s.k)
			stampMatrix(g, s.k, s.cp, -s.value)
			stampMatrix(g, s.k, s.cq, s.value)
		},
	},
	Inductor: {
		// v_p - v_q - (L/h)*i = -(L/h)*i_prev
		matrix: func(s *stamp, g *linalg.Matrix, h float64) {
			stampBranch(g, s.p, s.q, s.k)
			stampMatrix(g, s.k, s.k, -s.value/h)
		},
		excite: func(s *stamp, b, prev *linalg.Vector, _, h float64) {
			stampRHS(b, s.k, -s.value/h*prev.At(s.k))
		},
	},
	Capacitor: {
		// i = (C/h)*(v - v_prev), the history part becomes a source from q into p
		matrix: func(s *stamp, g *linalg.Matrix, h float64) {
			stampConductance(g, s.p, s.q, s.value/h)
		},
		excite: func(s *stamp, b, prev *linalg.Vector, _, h float64) {
			stampCurrent(b, s.p, s.q, s.value/h*voltageAcross(prev, s.p, s.q))
		},
	},
	Machine: {
		// armature: v_p - v_q - Ke*w = 0
		// shaft:    (J/h + 1/B)*w - Kt*i = (J/h)*w_prev - load
		matrix: func(s *stamp, g *linalg.Matrix, h float64) {
			stampBranch(g, s.p, s.q, s.k)
			stampMatrix(g, s.k, s.w, -s.mach.Ke)
			stampMatrix(g, s.w, s.w, s.mach.J/h+1/s.mach.B)
			stampMatrix(g, s.w, s.k, -s.mach.Kt)
		},
		excite: func(s *stamp, b, prev *linalg.Vector, _, h float64) {
			stampRHS(b, s.w, s.mach.J/h*prev.At(s.w)-s.mach.Load)
		},
	},
}
