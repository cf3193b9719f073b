// Package metrics provides step-handler metrics accumulated over one
// propagation and reported in the result's metric map.
package metrics

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// EnergyDrift tracks the worst relative energy deviation of a Hamiltonian
// system across committed step endpoints.
type EnergyDrift struct {
	ham      dynamo.Hamiltonian
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(ham dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{ham: ham}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) HandleStep(step dynamo.DenseOutput, isLast bool) {
	lo, hi := step.Span()
	end := hi
	if step.T1() < step.T0() {
		end = lo
	}
	y, err := step.StateAt(end)
	if err != nil {
		return
	}
	energy := e.ham.Energy(y)

	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
