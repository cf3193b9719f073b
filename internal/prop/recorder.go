package prop

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// Recorder samples the dense output of every accepted step at a fixed
// cadence, producing an evenly spaced trajectory without constraining the
// integrator's step-size choices. A non-positive interval records only the
// committed step endpoints.
type Recorder struct {
	Interval float64

	Times  []float64
	States []dynamo.State

	primed bool
	next   float64
}

func NewRecorder(interval float64) *Recorder {
	return &Recorder{Interval: interval}
}

func (r *Recorder) Reset() {
	r.Times = r.Times[:0]
	r.States = r.States[:0]
	r.primed = false
}

func (r *Recorder) record(t float64, y dynamo.State) {
	r.Times = append(r.Times, t)
	r.States = append(r.States, y.Clone())
}

func (r *Recorder) HandleStep(step dynamo.DenseOutput, isLast bool) {
	lo, hi := step.Span()
	dir := 1.0
	start, end := lo, hi
	if step.T1() < step.T0() {
		dir = -1.0
		start, end = hi, lo
	}

	if !r.primed {
		if y, err := step.StateAt(start); err == nil {
			r.record(start, y)
		}
		r.primed = true
		r.next = start + dir*r.Interval
	}

	if r.Interval > 0 {
		for dir*(r.next-end) <= 0 {
			y, err := step.StateAt(r.next)
			if err != nil {
				break
			}
			r.record(r.next, y)
			r.next += dir * r.Interval
		}
	}

	atEnd := len(r.Times) > 0 && math.Abs(r.Times[len(r.Times)-1]-end) < 1e-15*math.Max(1, math.Abs(end))
	if (isLast || r.Interval <= 0) && !atEnd {
		if y, err := step.StateAt(end); err == nil {
			r.record(end, y)
		}
	}
}
