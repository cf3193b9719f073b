package events

import "github.com/san-kum/flightprop/internal/dynamo"

// FuncDetector is a plain-record Detector: a g closure plus its action
// policy. OnEvent may be nil, in which case every crossing is a Continue.
// Reset is consulted only for ResetState actions; when nil the state is
// kept unchanged.
type FuncDetector struct {
	GFunc    func(t float64, y dynamo.State) float64
	MaxCheck float64
	TimeTol  float64
	OnEvent  func(t float64, y dynamo.State, forward, increasing bool) Action
	Reset    func(t float64, y dynamo.State) dynamo.State
}

func (d *FuncDetector) G(t float64, y dynamo.State) float64 { return d.GFunc(t, y) }
func (d *FuncDetector) MaxCheckInterval() float64           { return d.MaxCheck }
func (d *FuncDetector) TimeTolerance() float64              { return d.TimeTol }

func (d *FuncDetector) Action(t float64, y dynamo.State, forward, increasing bool) Action {
	if d.OnEvent == nil {
		return Continue
	}
	return d.OnEvent(t, y, forward, increasing)
}

func (d *FuncDetector) NewState(t float64, y dynamo.State) dynamo.State {
	if d.Reset == nil {
		return y
	}
	return d.Reset(t, y)
}
