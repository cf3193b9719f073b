package models

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/events"
)

// Ballistic is planar flight under gravity with quadratic drag, state
// (x, y, vx, vy).
type Ballistic struct {
	Gravity float64
	Drag    float64 // drag coefficient per unit mass, 0 for vacuum
}

func NewBallistic() *Ballistic {
	return &Ballistic{Gravity: 9.81}
}

func (b *Ballistic) Dim() int {
	return 4
}

func (b *Ballistic) Derivatives(t float64, y dynamo.State) dynamo.State {
	v := math.Hypot(y[2], y[3])
	return dynamo.State{
		y[2],
		y[3],
		-b.Drag * v * y[2],
		-b.Drag*v*y[3] - b.Gravity,
	}
}

// GroundImpact fires when altitude crosses zero. Restitution > 0 bounces
// (vertical velocity flipped and scaled, a discontinuous state reset);
// Restitution == 0 stops the propagation at impact.
type GroundImpact struct {
	Restitution float64
	TimeTol     float64
}

func (g *GroundImpact) G(t float64, y dynamo.State) float64 {
	return y[1]
}

func (g *GroundImpact) MaxCheckInterval() float64 { return 0.5 }

func (g *GroundImpact) TimeTolerance() float64 {
	if g.TimeTol > 0 {
		return g.TimeTol
	}
	return 1e-9
}

func (g *GroundImpact) Action(t float64, y dynamo.State, forward, increasing bool) events.Action {
	if g.Restitution > 0 {
		return events.ResetState
	}
	return events.Stop
}

func (g *GroundImpact) NewState(t float64, y dynamo.State) dynamo.State {
	out := y.Clone()
	out[1] = 0
	out[3] = -g.Restitution * y[3]
	return out
}

// Apex fires at the trajectory's highest point (vertical velocity crossing
// zero from above) and lets the propagation continue.
type Apex struct {
	TimeTol float64
}

func (a *Apex) G(t float64, y dynamo.State) float64 {
	return y[3]
}

func (a *Apex) MaxCheckInterval() float64 { return 0.5 }

func (a *Apex) TimeTolerance() float64 {
	if a.TimeTol > 0 {
		return a.TimeTol
	}
	return 1e-9
}

func (a *Apex) Action(t float64, y dynamo.State, forward, increasing bool) events.Action {
	return events.Continue
}
