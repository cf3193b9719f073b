// Package stepper implements the embedded-pair step controller: it attempts
// one integration step, estimates the local truncation error against mixed
// absolute/relative tolerances, and proposes the next step size. It never
// commits state; accept/advance decisions belong to the orchestrator.
package stepper

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/tableau"
)

const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 5.0
)

// Result is the outcome of one attempted step. Stages includes the trailing
// f(t1, y1) derivative and, with Y1, feeds the dense-output interpolator.
// NextH is the signed size proposed for the next attempt: shrunk after a
// rejection, grown (capped) after an acceptance.
type Result struct {
	Accepted bool
	T1       float64
	Y1       dynamo.State
	Stages   []dynamo.State
	Err      float64
	NextH    float64
}

type Stepper struct {
	tab   *tableau.Tableau
	evals int
}

func New(tab *tableau.Tableau) *Stepper {
	return &Stepper{tab: tab}
}

// Evaluations returns the cumulative derivative-evaluation count.
func (s *Stepper) Evaluations() int { return s.evals }

func (s *Stepper) derive(eqs dynamo.Equations, t float64, y dynamo.State) (dynamo.State, error) {
	dy := eqs.Derivatives(t, y)
	s.evals++
	if len(dy) != len(y) {
		return nil, dynamo.ErrDimensionMismatch
	}
	return dy, nil
}

// Attempt tries one step of signed size h from (t, y). It has no side
// effects beyond the evaluation counter: on rejection the caller retries
// from the same (t, y) with the returned NextH.
func (s *Stepper) Attempt(eqs dynamo.Equations, t float64, y dynamo.State, h float64, cfg dynamo.Config) (Result, error) {
	tb := s.tab
	n := len(y)
	k := make([]dynamo.State, tb.Stages+1)

	k1, err := s.derive(eqs, t, y)
	if err != nil {
		return Result{}, err
	}
	k[0] = k1

	ys := make(dynamo.State, n)
	for i := 1; i < tb.Stages; i++ {
		copy(ys, y)
		for j, a := range tb.A[i] {
			for c := 0; c < n; c++ {
				ys[c] += h * a * k[j][c]
			}
		}
		ki, err := s.derive(eqs, t+tb.C[i]*h, ys)
		if err != nil {
			return Result{}, err
		}
		k[i] = ki
	}

	y1 := make(dynamo.State, n)
	copy(y1, y)
	for j, b := range tb.B {
		for c := 0; c < n; c++ {
			y1[c] += h * b * k[j][c]
		}
	}

	kLast, err := s.derive(eqs, t+h, y1)
	if err != nil {
		return Result{}, err
	}
	k[tb.Stages] = kLast

	// Normalized local error: max over components of the embedded
	// difference scaled by absTol + relTol*max(|y0|,|y1|).
	errNorm := 0.0
	for c := 0; c < n; c++ {
		diff := 0.0
		for j, e := range tb.E {
			diff += e * k[j][c]
		}
		diff *= h
		scale := cfg.ErrorWeight(c, math.Max(math.Abs(y[c]), math.Abs(y1[c])))
		errNorm = math.Max(errNorm, math.Abs(diff)/scale)
	}

	res := Result{
		T1:     t + h,
		Y1:     y1,
		Stages: k,
		Err:    errNorm,
	}

	exp := -1.0 / float64(tb.ErrOrd+1)
	if errNorm <= 1 {
		res.Accepted = true
		scale := maxScale
		if errNorm > 0 {
			scale = math.Min(maxScale, safety*math.Pow(errNorm, exp))
		}
		res.NextH = clampMag(h*scale, cfg.MaxStep)
	} else {
		scale := math.Max(minScale, safety*math.Pow(errNorm, exp))
		res.NextH = h * scale
	}
	return res, nil
}

func clampMag(h, maxStep float64) float64 {
	if math.Abs(h) > maxStep {
		return math.Copysign(maxStep, h)
	}
	return h
}
