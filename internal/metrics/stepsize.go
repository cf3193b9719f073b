package metrics

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// StepSize reports the smallest committed step of a propagation, a quick
// stiffness indicator. Min/Max/Mean expose the full picture.
type StepSize struct {
	min, max, total float64
	samples         int
}

func NewStepSize() *StepSize {
	return &StepSize{min: math.Inf(1)}
}

func (s *StepSize) Name() string { return "min_step" }

func (s *StepSize) HandleStep(step dynamo.DenseOutput, isLast bool) {
	lo, hi := step.Span()
	size := hi - lo
	s.min = math.Min(s.min, size)
	s.max = math.Max(s.max, size)
	s.total += size
	s.samples++
}

func (s *StepSize) Value() float64 { return s.Min() }

func (s *StepSize) Min() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.min
}

func (s *StepSize) Max() float64 { return s.max }

func (s *StepSize) Mean() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.total / float64(s.samples)
}

func (s *StepSize) Reset() {
	s.min = math.Inf(1)
	s.max = 0
	s.total = 0
	s.samples = 0
}
