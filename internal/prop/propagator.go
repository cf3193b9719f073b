// Package prop drives adaptive propagation: it asks the step controller
// for accepted steps, lets every armed event detector inspect each step's
// dense output, truncates at the earliest crossing, applies the detector's
// action, and notifies step handlers. The engine is strictly sequential;
// each step depends on the committed state of the previous one.
package prop

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/events"
	"github.com/san-kum/flightprop/internal/interp"
	"github.com/san-kum/flightprop/internal/stepper"
	"github.com/san-kum/flightprop/internal/tableau"
)

type Propagator struct {
	eqs      dynamo.Equations
	tab      *tableau.Tableau
	handlers []dynamo.StepHandler
	metrics  []dynamo.Metric
	states   []*events.State
}

func New(eqs dynamo.Equations, tab *tableau.Tableau) *Propagator {
	return &Propagator{eqs: eqs, tab: tab}
}

func (p *Propagator) AddHandler(h dynamo.StepHandler) { p.handlers = append(p.handlers, h) }

func (p *Propagator) AddMetric(m dynamo.Metric) {
	p.metrics = append(p.metrics, m)
	p.handlers = append(p.handlers, m)
}

// AddDetector registers a switching-function detector. Registration order
// breaks ties when two detectors cross at the same instant.
func (p *Propagator) AddDetector(d events.Detector) {
	p.states = append(p.states, events.NewState(d, len(p.states)))
}

// Result of one propagation segment.
type Result struct {
	T       float64
	Y       dynamo.State
	Stopped bool // a detector's Stop action ended the segment early
	Stats   dynamo.Stats
	Events  []events.Occurrence
	Metrics map[string]float64
}

// Propagate advances y0 from t0 to tEnd (backward when tEnd < t0) and
// returns the final state. Fatal aborts carry the last valid time and
// state in a *dynamo.PropagationError.
func (p *Propagator) Propagate(ctx context.Context, t0 float64, y0 dynamo.State, tEnd float64, cfg dynamo.Config) (*Result, error) {
	n := p.eqs.Dim()
	if len(y0) != n {
		return nil, &dynamo.PropagationError{Time: t0, State: y0.Clone(), Detector: -1, Wrapped: dynamo.ErrDimensionMismatch}
	}
	if err := cfg.Validate(n); err != nil {
		return nil, fmt.Errorf("propagate: %w", err)
	}
	if !y0.IsValid() {
		return nil, &dynamo.PropagationError{Time: t0, State: y0.Clone(), Detector: -1, Wrapped: dynamo.ErrInvalidState}
	}

	res := &Result{T: t0, Y: y0.Clone(), Metrics: make(map[string]float64)}
	for _, m := range p.metrics {
		m.Reset()
	}

	if t0 == tEnd {
		return res, nil
	}

	dir := 1.0
	if tEnd < t0 {
		dir = -1.0
	}

	st := stepper.New(p.tab)
	t := t0
	y := y0.Clone()
	h := p.initialStep(t0, tEnd, cfg) * dir

	for _, es := range p.states {
		es.Arm(t, y)
	}

	fail := func(err error, detector int) (*Result, error) {
		res.T = t
		res.Y = y.Clone()
		res.Stats.Evaluations = st.Evaluations()
		return res, &dynamo.PropagationError{Time: t, State: y.Clone(), Detector: detector, Wrapped: err}
	}

	for dir*(t-tEnd) < 0 {
		select {
		case <-ctx.Done():
			res.T = t
			res.Y = y.Clone()
			res.Stats.Evaluations = st.Evaluations()
			return res, ctx.Err()
		default:
		}

		last := false
		if dir*(t+h-tEnd) >= 0 {
			h = tEnd - t
			last = true
		}

		// Attempt until accepted; rejections retry from the same (t, y).
		var sr stepper.Result
		for {
			if math.Abs(h) < cfg.MinStep {
				return fail(dynamo.ErrStepTooSmall, -1)
			}
			var err error
			sr, err = st.Attempt(p.eqs, t, y, h, cfg)
			if err != nil {
				return fail(err, -1)
			}
			if st.Evaluations() > cfg.MaxEvaluations {
				return fail(dynamo.ErrMaxEvaluations, -1)
			}
			if sr.Accepted {
				break
			}
			res.Stats.Rejected++
			h = sr.NextH
			last = dir*(t+h-tEnd) >= 0
			if last {
				h = tEnd - t
			}
		}
		if !sr.Y1.IsValid() {
			return fail(dynamo.ErrInvalidState, -1)
		}

		t1 := sr.T1
		if last {
			t1 = tEnd
		}
		ip := interp.New(t, h, y, sr.Y1, sr.Stages, p.tab.Dense)

		// Earliest crossing across all armed detectors; ties break by
		// registration order.
		var best events.Occurrence
		var bestState *events.State
		for _, es := range p.states {
			occ, ok, err := es.Check(ip, t, t1)
			if err != nil {
				return fail(err, es.Index())
			}
			if ok && (bestState == nil || dir*(occ.T-best.T) < 0) {
				best = occ
				bestState = es
			}
		}

		if bestState != nil {
			if err := ip.Truncate(best.T); err != nil {
				return fail(err, bestState.Index())
			}
			det := bestState.Detector()
			act := det.Action(best.T, best.Y, dir > 0, best.Increasing)
			best.Action = act
			res.Events = append(res.Events, best)

			isLast := act == events.Stop || dir*(best.T-tEnd) >= 0
			for _, hd := range p.handlers {
				hd.HandleStep(ip, isLast)
			}

			res.Stats.Steps++
			res.Stats.LastStep = math.Abs(best.T - t)

			switch act {
			case events.Stop:
				t = best.T
				y = best.Y.Clone()
				bestState.Disable()
				res.Stopped = true
				p.finish(res, t, y, st)
				return res, nil
			case events.ResetState:
				rs, ok := det.(events.StateResetter)
				if !ok {
					return fail(fmt.Errorf("detector %d: ResetState without StateResetter", bestState.Index()), bestState.Index())
				}
				yNew := rs.NewState(best.T, best.Y.Clone())
				if len(yNew) != n {
					return fail(dynamo.ErrDimensionMismatch, bestState.Index())
				}
				if !yNew.IsValid() {
					return fail(dynamo.ErrInvalidState, bestState.Index())
				}
				t = best.T
				y = yNew.Clone()
			default:
				// Continue and ResetDerivatives both commit the on-trajectory
				// event state; the untraveled remainder of the step is
				// discarded and re-integrated, never rebuilt from stale
				// stage derivatives.
				t = best.T
				y = best.Y.Clone()
			}

			// Clear sign history at the commit point so the same root is
			// not immediately re-detected after a reset. The fired detector
			// keeps a guard on its root for the next check.
			for _, es := range p.states {
				if es.Phase() != events.Disabled {
					es.Arm(t, y)
				}
			}
			bestState.Guard(t)
		} else {
			t = t1
			y = sr.Y1
			res.Stats.Steps++
			res.Stats.LastStep = math.Abs(h)
			for _, es := range p.states {
				if es.Phase() != events.Disabled {
					es.Arm(t, y)
				}
			}
			for _, hd := range p.handlers {
				hd.HandleStep(ip, last)
			}
		}

		h = sr.NextH
		if math.Abs(h) < cfg.MinStep {
			h = math.Copysign(cfg.MinStep, dir)
		}
	}

	p.finish(res, t, y, st)
	return res, nil
}

func (p *Propagator) finish(res *Result, t float64, y dynamo.State, st *stepper.Stepper) {
	res.T = t
	res.Y = y.Clone()
	res.Stats.Evaluations = st.Evaluations()
	for _, m := range p.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
}

func (p *Propagator) initialStep(t0, tEnd float64, cfg dynamo.Config) float64 {
	h := cfg.InitialStep
	if h <= 0 {
		h = math.Abs(tEnd-t0) / 100
	}
	h = math.Min(h, cfg.MaxStep)
	h = math.Max(h, cfg.MinStep)
	return h
}
