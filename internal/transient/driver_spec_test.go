package transient_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
)

var _ = Describe("Driver", func() {
	var (
		ckt *circuit.Circuit
		d   *transient.Driver
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		ckt, err = (&circuit.Netlist{Elements: []circuit.Element{
			{Name: "I1", Kind: circuit.CurrentSource, Nodes: []string{"a", "0"}, Value: 1},
			{Name: "R1", Kind: circuit.Resistor, Nodes: []string{"a", "0"}, Value: 1},
			{Name: "L1", Kind: circuit.Inductor, Nodes: []string{"a", "b"}, Value: 0.1},
			{Name: "R2", Kind: circuit.Resistor, Nodes: []string{"b", "0"}, Value: 1},
		}}).Compile()
		Expect(err).NotTo(HaveOccurred())

		d, err = transient.New(ckt, transient.Config{H: 0.01, TMax: 0.05})
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	It("starts uninitialized and reports the planned step count", func() {
		Expect(d.Phase()).To(Equal(transient.Uninitialized))
		Expect(d.Steps()).To(Equal(5))
		Expect(d.Matrix()).To(BeNil())
		Expect(d.State()).To(BeNil())
	})

	Context("after Build", func() {
		BeforeEach(func() {
			Expect(d.Build()).To(Succeed())
		})

		It("holds the stamped matrix", func() {
			Expect(d.Phase()).To(Equal(transient.MatrixBuilt))
			g := d.Matrix()
			Expect(g.At(0, 0)).To(BeNumerically("~", 1, 1e-12))
			Expect(g.At(2, 2)).To(BeNumerically("~", -0.1/0.01, 1e-12))
		})

		It("rejects stepping before Start", func() {
			Expect(d.Step(ctx)).To(MatchError(transient.ErrInvalidTransition))
		})

		It("runs from a cold start to Done", func() {
			Expect(d.Start()).To(Succeed())
			Expect(d.State()).To(Equal(transient.State{0, 0, 0}))

			times := []float64{}
			d.AddSink(transient.SinkFunc(func(t float64, x transient.State) error {
				times = append(times, t)
				return nil
			}))
			for d.Phase() == transient.Running {
				Expect(d.Step(ctx)).To(Succeed())
			}

			Expect(d.Phase()).To(Equal(transient.Done))
			Expect(times).To(HaveLen(5))
			for i, t := range times {
				Expect(t).To(BeNumerically("~", float64(i)*0.01, 1e-15))
			}
		})
	})

	It("lets inductor current rise towards the resistive divider value", func() {
		res, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		iL, err := ckt.Layout().Probe("i(L1)")
		Expect(err).NotTo(HaveOccurred())
		final := iL.Value(res.Final)
		Expect(final).To(BeNumerically(">", 0))
		Expect(final).To(BeNumerically("<", 0.5))
		Expect(math.IsNaN(final)).To(BeFalse())
	})
})
