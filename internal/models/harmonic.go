package models

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// Harmonic is the undamped oscillator x'' = -omega^2 x, state (x, v).
type Harmonic struct {
	Omega float64
}

func NewHarmonic(omega float64) *Harmonic {
	return &Harmonic{Omega: omega}
}

func (h *Harmonic) Dim() int {
	return 2
}

func (h *Harmonic) Derivatives(t float64, y dynamo.State) dynamo.State {
	return dynamo.State{y[1], -h.Omega * h.Omega * y[0]}
}

func (h *Harmonic) Energy(y dynamo.State) float64 {
	return 0.5*y[1]*y[1] + 0.5*h.Omega*h.Omega*y[0]*y[0]
}

// Exact returns the closed-form state at t for initial state (x0, 0).
func (h *Harmonic) Exact(x0, t float64) dynamo.State {
	return dynamo.State{
		x0 * math.Cos(h.Omega*t),
		-x0 * h.Omega * math.Sin(h.Omega*t),
	}
}
