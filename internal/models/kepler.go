package models

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// Kepler is planar two-body motion around a central mass, state
// (x, y, vx, vy), gravitational parameter Mu.
type Kepler struct {
	Mu float64
}

func NewKepler(mu float64) *Kepler {
	return &Kepler{Mu: mu}
}

func (k *Kepler) Dim() int {
	return 4
}

func (k *Kepler) Derivatives(t float64, y dynamo.State) dynamo.State {
	r := math.Hypot(y[0], y[1])
	r3 := r * r * r
	return dynamo.State{
		y[2],
		y[3],
		-k.Mu * y[0] / r3,
		-k.Mu * y[1] / r3,
	}
}

func (k *Kepler) Energy(y dynamo.State) float64 {
	r := math.Hypot(y[0], y[1])
	v2 := y[2]*y[2] + y[3]*y[3]
	return 0.5*v2 - k.Mu/r
}

// Circular returns the state of a circular orbit of radius r starting on
// the +x axis, and its period.
func (k *Kepler) Circular(r float64) (dynamo.State, float64) {
	v := math.Sqrt(k.Mu / r)
	period := 2 * math.Pi * math.Sqrt(r*r*r/k.Mu)
	return dynamo.State{r, 0, 0, v}, period
}
