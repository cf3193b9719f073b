package events_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/events"
)

// lineStep is a dense output for the trivial constant-derivative problem
// y(t) = t, so g roots can be placed exactly.
type lineStep struct {
	t0, t1 float64
}

func (s lineStep) T0() float64 { return s.t0 }
func (s lineStep) T1() float64 { return s.t1 }

func (s lineStep) Span() (float64, float64) {
	return math.Min(s.t0, s.t1), math.Max(s.t0, s.t1)
}

func (s lineStep) StateAt(t float64) (dynamo.State, error) {
	lo, hi := s.Span()
	if t < lo-1e-12 || t > hi+1e-12 {
		return nil, dynamo.ErrOutsideStep
	}
	return dynamo.State{t}, nil
}

func threshold(level, timeTol float64) *events.FuncDetector {
	return &events.FuncDetector{
		GFunc:   func(t float64, y dynamo.State) float64 { return y[0] - level },
		TimeTol: timeTol,
	}
}

var _ = Describe("EventState", func() {
	var step lineStep

	BeforeEach(func() {
		step = lineStep{t0: 0, t1: 1}
	})

	Describe("crossing detection", func() {
		It("localizes a linear crossing to within the time tolerance", func() {
			es := events.NewState(threshold(0.5, 1e-10), 0)
			es.Arm(0, dynamo.State{0})

			occ, found, err := es.Check(step, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ.T).To(BeNumerically("~", 0.5, 1e-10))
			Expect(occ.Y[0]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(occ.Increasing).To(BeTrue())
			Expect(es.Phase()).To(Equal(events.Fired))
		})

		It("reports a decreasing crossing", func() {
			det := &events.FuncDetector{
				GFunc:   func(t float64, y dynamo.State) float64 { return 0.5 - y[0] },
				TimeTol: 1e-10,
			}
			es := events.NewState(det, 0)
			es.Arm(0, dynamo.State{0})

			occ, found, err := es.Check(step, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ.Increasing).To(BeFalse())
		})

		It("localizes a backward crossing", func() {
			back := lineStep{t0: 1, t1: 0}
			es := events.NewState(threshold(0.5, 1e-10), 0)
			es.Arm(1, dynamo.State{1})

			occ, found, err := es.Check(back, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ.T).To(BeNumerically("~", 0.5, 1e-10))
		})

		It("reports no crossing when g keeps its sign", func() {
			es := events.NewState(threshold(2.0, 1e-10), 0)
			es.Arm(0, dynamo.State{0})

			_, found, err := es.Check(step, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(es.Phase()).To(Equal(events.Armed))
		})
	})

	Describe("max-check-interval sampling", func() {
		It("finds the earliest root of an oscillating g", func() {
			det := &events.FuncDetector{
				GFunc: func(t float64, y dynamo.State) float64 {
					return math.Sin(4 * math.Pi * y[0])
				},
				MaxCheck: 0.1,
				TimeTol:  1e-10,
			}
			es := events.NewState(det, 0)
			es.Arm(0.01, dynamo.State{0.01})

			occ, found, err := es.Check(lineStep{t0: 0.01, t1: 1}, 0.01, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ.T).To(BeNumerically("~", 0.25, 1e-9))
		})

		It("misses a double crossing inside one check interval", func() {
			// g dips below zero and recovers between the endpoint samples:
			// a documented consequence of the bounded-frequency assumption.
			det := &events.FuncDetector{
				GFunc: func(t float64, y dynamo.State) float64 {
					return (y[0]-0.5)*(y[0]-0.5) - 0.001
				},
				TimeTol: 1e-10,
			}
			es := events.NewState(det, 0)
			es.Arm(0, dynamo.State{0})

			_, found, err := es.Check(step, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	Describe("state machine", func() {
		It("starts armed and disables terminally", func() {
			es := events.NewState(threshold(0.5, 1e-10), 0)
			es.Arm(0, dynamo.State{0})
			Expect(es.Phase()).To(Equal(events.Armed))

			es.Disable()
			Expect(es.Phase()).To(Equal(events.Disabled))

			_, found, err := es.Check(step, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("does not re-fire on the root it was re-armed at", func() {
			es := events.NewState(threshold(0.5, 1e-10), 0)
			es.Arm(0.5, dynamo.State{0.5}) // g == 0 exactly

			_, found, err := es.Check(lineStep{t0: 0.5, t1: 1}, 0.5, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("skips a root within localization accuracy of a guarded commit", func() {
			// Re-armed a hair before the root it just fired on; the
			// residual sign must not trigger a duplicate occurrence.
			start := 0.5 - 1e-11
			es := events.NewState(threshold(0.5, 1e-10), 0)
			es.Arm(start, dynamo.State{start})
			es.Guard(start)

			_, found, err := es.Check(lineStep{t0: start, t1: 1}, start, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(es.Phase()).To(Equal(events.Armed))
		})

		It("fires on a genuine root near the start of a fresh segment", func() {
			es := events.NewState(threshold(2e-11, 1e-10), 0)
			es.Arm(0, dynamo.State{0})

			occ, found, err := es.Check(lineStep{t0: 0, t1: 1}, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ.T).To(BeNumerically("~", 2e-11, 1e-10))
		})

		It("re-arms after firing and catches the next crossing", func() {
			det := &events.FuncDetector{
				GFunc: func(t float64, y dynamo.State) float64 {
					return math.Sin(2 * math.Pi * y[0])
				},
				MaxCheck: 0.3,
				TimeTol:  1e-10,
			}
			es := events.NewState(det, 0)
			es.Arm(0.1, dynamo.State{0.1})

			occ, found, err := es.Check(lineStep{t0: 0.1, t1: 0.9}, 0.1, 0.9)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ.T).To(BeNumerically("~", 0.5, 1e-9))

			es.Arm(occ.T+0.05, dynamo.State{occ.T + 0.05})
			occ2, found, err := es.Check(lineStep{t0: occ.T + 0.05, t1: 1.4}, occ.T+0.05, 1.4)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(occ2.T).To(BeNumerically("~", 1.0, 1e-9))
		})
	})
})
