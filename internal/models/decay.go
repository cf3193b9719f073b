package models

import "github.com/san-kum/flightprop/internal/dynamo"

// Decay is the test equation dy/dt = -lambda*y with the closed-form
// solution y(t) = y0 * exp(-lambda*t).
type Decay struct {
	Lambda float64
}

func NewDecay(lambda float64) *Decay {
	return &Decay{Lambda: lambda}
}

func (d *Decay) Dim() int {
	return 1
}

func (d *Decay) Derivatives(t float64, y dynamo.State) dynamo.State {
	return dynamo.State{-d.Lambda * y[0]}
}
