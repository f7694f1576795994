package circuit_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/linalg"
)

const h = 0.01

func stamped(elems ...circuit.Element) (*circuit.Circuit, *linalg.Matrix) {
	ckt, err := (&circuit.Netlist{Elements: elems}).Compile()
	Expect(err).NotTo(HaveOccurred())
	g, _ := ckt.NewSystem()
	Expect(ckt.StampMatrix(g, h)).To(Succeed())
	return ckt, g
}

func excite(ckt *circuit.Circuit, prev []float64, t float64) *linalg.Vector {
	_, b := ckt.NewSystem()
	Expect(ckt.StampExcitation(b, linalg.NewVectorFrom(prev), t, h)).To(Succeed())
	return b
}

var _ = Describe("Stamps", func() {
	It("adds resistor conductance symmetrically and skips ground", func() {
		_, g := stamped(
			circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "b"}, Value: 2},
			circuit.Element{Name: "R2", Kind: circuit.Resistor, Nodes: []string{"b", "0"}, Value: 4},
		)
		Expect(g.At(0, 0)).To(BeNumerically("~", 0.5, 1e-12))
		Expect(g.At(0, 1)).To(BeNumerically("~", -0.5, 1e-12))
		Expect(g.At(1, 0)).To(BeNumerically("~", -0.5, 1e-12))
		Expect(g.At(1, 1)).To(BeNumerically("~", 0.75, 1e-12))
	})

	It("accumulates parallel elements on the same nodes", func() {
		_, g := stamped(
			circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
			circuit.Element{Name: "R2", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
		)
		Expect(g.At(0, 0)).To(BeNumerically("~", 2, 1e-12))
	})

	It("injects current source current into p", func() {
		ckt, _ := stamped(
			circuit.Element{Name: "I1", Kind: circuit.CurrentSource, Nodes: []string{"a", "0"}, Value: 3},
			circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
		)
		b := excite(ckt, []float64{0}, 0)
		Expect(b.At(0)).To(BeNumerically("~", 3, 1e-12))
	})

	It("gives a voltage source a branch row and its level on the right", func() {
		ckt, g := stamped(
			circuit.Element{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"a", "0"}, Value: 5},
			circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
		)
		k, ok := ckt.Layout().Index("i(V1)")
		Expect(ok).To(BeTrue())
		Expect(g.At(0, k)).To(Equal(1.0))
		Expect(g.At(k, 0)).To(Equal(1.0))
		Expect(excite(ckt, make([]float64, ckt.Size()), 0).At(k)).To(Equal(5.0))
	})

	It("couples a VCVS branch to its controlling nodes", func() {
		ckt, g := stamped(
			circuit.Element{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"in", "0"}, Value: 1},
			circuit.Element{Name: "E1", Kind: circuit.VCVS, Nodes: []string{"out", "0", "in", "0"}, Value: 4},
			circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"out", "0"}, Value: 1},
		)
		k, _ := ckt.Layout().Index("i(E1)")
		in, _ := ckt.Layout().Index("v(in)")
		out, _ := ckt.Layout().Index("v(out)")
		Expect(g.At(k, out)).To(Equal(1.0))
		Expect(g.At(k, in)).To(Equal(-4.0))
	})

	It("turns an inductor into a branch with -L/h and history on the right", func() {
		ckt, g := stamped(
			circuit.Element{Name: "I1", Kind: circuit.CurrentSource, Nodes: []string{"0", "a"}, Value: 1},
			circuit.Element{Name: "L1", Kind: circuit.Inductor, Nodes: []string{"a", "0"}, Value: 0.5},
		)
		k, _ := ckt.Layout().Index("i(L1)")
		Expect(g.At(k, k)).To(BeNumerically("~", -50, 1e-9))

		prev := make([]float64, ckt.Size())
		prev[k] = 2
		Expect(excite(ckt, prev, h).At(k)).To(BeNumerically("~", -100, 1e-9))
	})

	It("turns a capacitor into C/h with a history current", func() {
		ckt, g := stamped(
			circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
			circuit.Element{Name: "C1", Kind: circuit.Capacitor, Nodes: []string{"a", "0"}, Value: 1e-3},
		)
		Expect(g.At(0, 0)).To(BeNumerically("~", 1+0.1, 1e-12))
		Expect(excite(ckt, []float64{2}, h).At(0)).To(BeNumerically("~", 0.2, 1e-12))
	})

	It("couples the motor armature and shaft", func() {
		ckt, g := stamped(
			circuit.Element{Name: "V1", Kind: circuit.VoltageSource, Nodes: []string{"a", "0"}, Value: 10},
			circuit.Element{Name: "M1", Kind: circuit.Machine, Nodes: []string{"a", "0"},
				Machine: &circuit.MachineParams{Ke: 0.1, Kt: 0.2, J: 0.01, B: 0.5, Load: 0.3}},
		)
		k, _ := ckt.Layout().Index("i(M1)")
		w, _ := ckt.Layout().Index("w(M1)")
		Expect(g.At(k, w)).To(BeNumerically("~", -0.1, 1e-12))
		Expect(g.At(w, k)).To(BeNumerically("~", -0.2, 1e-12))
		Expect(g.At(w, w)).To(BeNumerically("~", 0.01/h+2, 1e-9))

		prev := make([]float64, ckt.Size())
		prev[w] = 5
		Expect(excite(ckt, prev, h).At(w)).To(BeNumerically("~", 0.01/h*5-0.3, 1e-9))
	})

	It("rejects a wrongly sized system", func() {
		ckt, _ := stamped(circuit.Element{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1})
		Expect(ckt.StampMatrix(linalg.NewMatrix(2, 2), h)).To(MatchError(circuit.ErrDimensionMismatch))
		g, _ := ckt.NewSystem()
		Expect(ckt.StampMatrix(g, 0)).To(MatchError(circuit.ErrInvalidStep))
	})
})
