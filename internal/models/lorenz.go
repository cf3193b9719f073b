package models

import "github.com/san-kum/flightprop/internal/dynamo"

// Lorenz is the classic chaotic attractor, state (x, y, z).
type Lorenz struct {
	Sigma float64
	Rho   float64
	Beta  float64
}

func NewLorenz() *Lorenz {
	return &Lorenz{Sigma: 10, Rho: 28, Beta: 8.0 / 3.0}
}

func (l *Lorenz) Dim() int {
	return 3
}

func (l *Lorenz) Derivatives(t float64, y dynamo.State) dynamo.State {
	return dynamo.State{
		l.Sigma * (y[1] - y[0]),
		y[0]*(l.Rho-y[2]) - y[1],
		y[0]*y[1] - l.Beta*y[2],
	}
}
