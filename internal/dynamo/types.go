package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Equations is the right-hand side of the ODE being propagated:
// dy/dt = Derivatives(t, y). Implementations must be pure from the
// engine's viewpoint and must return a vector of length Dim.
type Equations interface {
	Derivatives(t float64, y State) State
	Dim() int
}

// Hamiltonian is implemented by conservative systems that can report a
// total energy, used for drift metrics.
type Hamiltonian interface {
	Energy(y State) float64
}

// DenseOutput is the continuous reconstruction of one accepted step.
// StateAt is valid over the (possibly truncated) span; queries outside
// it fail rather than extrapolating past a discontinuity.
type DenseOutput interface {
	// T0 and T1 are the step's start and end times; T1 precedes T0 when
	// propagating backward.
	T0() float64
	T1() float64
	// Span returns the valid domain in time order (lo <= hi), regardless
	// of propagation direction. Truncation after an event narrows it.
	Span() (lo, hi float64)
	StateAt(t float64) (State, error)
}

// StepHandler observes accepted (possibly event-truncated) steps. The
// dense output passed in is only valid during the call.
type StepHandler interface {
	HandleStep(step DenseOutput, isLast bool)
}

// Metric is a StepHandler that accumulates a scalar over a propagation.
type Metric interface {
	StepHandler
	Name() string
	Value() float64
	Reset()
}

// Config holds tolerance and step-size bounds for one propagation.
// AbsTolVec/RelTolVec, when set, override the scalar tolerances
// per component and must match the state dimension.
type Config struct {
	InitialStep    float64
	MinStep        float64
	MaxStep        float64
	AbsTol         float64
	RelTol         float64
	AbsTolVec      []float64
	RelTolVec      []float64
	MaxEvaluations int
}

func DefaultConfig() Config {
	return Config{
		MinStep:        1e-12,
		MaxStep:        1.0,
		AbsTol:         1e-9,
		RelTol:         1e-9,
		MaxEvaluations: 1_000_000,
	}
}

// Validate checks internal consistency against the state dimension n.
func (c Config) Validate(n int) error {
	if c.MinStep <= 0 || c.MaxStep <= 0 || c.MinStep > c.MaxStep {
		return ErrConfigBounds
	}
	if c.AbsTol <= 0 && c.AbsTolVec == nil {
		return ErrConfigBounds
	}
	if c.RelTol < 0 {
		return ErrConfigBounds
	}
	if c.AbsTolVec != nil && len(c.AbsTolVec) != n {
		return ErrDimensionMismatch
	}
	if c.RelTolVec != nil && len(c.RelTolVec) != n {
		return ErrDimensionMismatch
	}
	if c.MaxEvaluations <= 0 {
		return ErrConfigBounds
	}
	return nil
}

// ErrorWeight returns absTol_i + relTol_i*scale for component i.
func (c Config) ErrorWeight(i int, scale float64) float64 {
	at := c.AbsTol
	if c.AbsTolVec != nil {
		at = c.AbsTolVec[i]
	}
	rt := c.RelTol
	if c.RelTolVec != nil {
		rt = c.RelTolVec[i]
	}
	return at + rt*scale
}

// Stats counts the work done by one propagation.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
	LastStep    float64
}
