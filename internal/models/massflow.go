package models

import "github.com/san-kum/flightprop/internal/dynamo"

// MassFlow is a one-component auxiliary block for composite equations:
// dm/dt = -Rate while a maneuver burns. Attach it between propagation
// segments with dynamo.Composite.
type MassFlow struct {
	Rate float64
}

func NewMassFlow(rate float64) *MassFlow {
	return &MassFlow{Rate: rate}
}

func (m *MassFlow) Dim() int {
	return 1
}

func (m *MassFlow) Derivatives(t float64, y dynamo.State) dynamo.State {
	return dynamo.State{-m.Rate}
}
