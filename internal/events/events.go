// Package events detects zero crossings of caller-supplied switching
// functions over the dense output of accepted steps, and localizes the
// earliest crossing to a configured time tolerance.
package events

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// Action tells the orchestrator what to do after a detector fires.
type Action int

const (
	// Continue commits the state at the event time and resumes.
	Continue Action = iota
	// Stop ends the propagation at the event time.
	Stop
	// ResetState replaces the state via the detector's StateResetter and
	// re-integrates the remainder of the step from the new state.
	ResetState
	// ResetDerivatives keeps the state but discards the step's stage
	// derivatives, forcing fresh evaluations from the event time.
	ResetDerivatives
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case ResetState:
		return "reset-state"
	case ResetDerivatives:
		return "reset-derivatives"
	}
	return "unknown"
}

// Detector is a switching function g(t, y) whose zero crossings mark
// discrete events.
//
// MaxCheckInterval bounds the sampling interval used to look for sign
// changes inside a step. If g changes sign twice within one interval
// without crossing at either sample, the pair is missed: a documented
// approximation inherent to the bounded-frequency assumption, controlled
// by the caller through this value.
//
// TimeTolerance is the convergence threshold for root localization.
type Detector interface {
	G(t float64, y dynamo.State) float64
	MaxCheckInterval() float64
	TimeTolerance() float64
	// Action is invoked once per crossing with the event time and state,
	// the propagation direction, and whether g was increasing through zero.
	Action(t float64, y dynamo.State, forward, increasing bool) Action
}

// StateResetter is implemented by detectors whose Action may return
// ResetState.
type StateResetter interface {
	NewState(t float64, y dynamo.State) dynamo.State
}

// Phase of the per-detector state machine.
type Phase int

const (
	Armed Phase = iota
	Localizing
	Fired
	Disabled
)

// Occurrence reports one localized crossing.
type Occurrence struct {
	T          float64
	Y          dynamo.State
	Detector   int
	Increasing bool
	Action     Action
}

// State tracks one detector's sign history across steps. Reset whenever the
// detector fires or the state vector is externally reset, so the same root
// is not immediately re-detected.
type State struct {
	det   Detector
	index int

	phase Phase
	lastT float64
	lastG float64

	guardT  float64
	guarded bool

	pendingT   float64
	pendingInc bool
}

func NewState(det Detector, index int) *State {
	return &State{det: det, index: index}
}

func (es *State) Phase() Phase       { return es.phase }
func (es *State) Detector() Detector { return es.det }
func (es *State) Index() int         { return es.index }

// Arm seeds the sign history at (t, y) and watches for the next crossing.
func (es *State) Arm(t float64, y dynamo.State) {
	es.phase = Armed
	es.lastT = t
	es.lastG = es.det.G(t, y)
	es.guarded = false
}

// Guard marks t as a just-fired root of this detector. A crossing localized
// within twice the time tolerance of it is treated as already handled, so a
// residual sign at the commit point cannot re-fire the same event. Cleared
// by the next Arm.
func (es *State) Guard(t float64) {
	es.guarded = true
	es.guardT = t
}

// Disable removes the detector for the remainder of the segment.
func (es *State) Disable() {
	es.phase = Disabled
}

// Check scans the step's dense output for a sign change of g, sampling at
// most MaxCheckInterval apart, and localizes the earliest crossing. It
// returns false when no crossing was found. Check does not advance the sign
// history: the orchestrator re-arms every live state at the committed time
// once it has chosen among all detectors. The state moves to Fired on
// success; the orchestrator then applies the action and re-arms or
// disables.
func (es *State) Check(step dynamo.DenseOutput, tStart, tEnd float64) (Occurrence, bool, error) {
	if es.phase == Disabled {
		return Occurrence{}, false, nil
	}

	span := tEnd - tStart
	if span == 0 {
		return Occurrence{}, false, nil
	}
	sub := 1
	if mci := es.det.MaxCheckInterval(); mci > 0 && math.Abs(span) > mci {
		sub = int(math.Ceil(math.Abs(span) / mci))
	}

	g := func(t float64) (float64, error) {
		y, err := step.StateAt(t)
		if err != nil {
			return 0, err
		}
		return es.det.G(t, y), nil
	}

	ta, ga := es.lastT, es.lastG
	if ta != tStart {
		ta = tStart
		var err error
		ga, err = g(ta)
		if err != nil {
			return Occurrence{}, false, err
		}
	}

	for i := 1; i <= sub; i++ {
		tb := tStart + span*float64(i)/float64(sub)
		if i == sub {
			tb = tEnd
		}
		gb, err := g(tb)
		if err != nil {
			return Occurrence{}, false, err
		}

		if ga*gb < 0 || (gb == 0 && ga != 0) {
			es.phase = Localizing
			root, err := brent(g, ta, tb, ga, gb, es.det.TimeTolerance())
			if err != nil {
				es.phase = Armed
				return Occurrence{}, false, err
			}
			// A root within localization accuracy of a just-fired commit
			// point is the crossing already handled there; re-firing it
			// would loop on the same event. Both the commit point and the
			// fresh root carry up to one tolerance of error each.
			if es.guarded && math.Abs(root-es.guardT) <= 2*es.det.TimeTolerance() {
				es.phase = Armed
				ta, ga = tb, gb
				continue
			}
			es.phase = Fired
			es.pendingT = root
			es.pendingInc = gb > ga
			y, err := step.StateAt(root)
			if err != nil {
				return Occurrence{}, false, err
			}
			return Occurrence{
				T:          root,
				Y:          y,
				Detector:   es.index,
				Increasing: es.pendingInc,
			}, true, nil
		}
		ta, ga = tb, gb
	}

	return Occurrence{}, false, nil
}
