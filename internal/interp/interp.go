// Package interp builds the dense-output interpolator for one accepted
// integration step. The interpolator borrows the step's stage derivatives
// read-only; "cloning" one is copying a small value record.
package interp

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// domainSlack tolerates round-off on queries at the step boundary, as a
// fraction of the step size.
const domainSlack = 1e-10

// Interpolator evaluates the continuous extension of one accepted step
// [t0, t0+h] (h may be negative for backward propagation). It reproduces
// the step's endpoint states and endpoint derivatives to machine precision.
type Interpolator struct {
	t0, h  float64
	y0, y1 dynamo.State
	k      []dynamo.State
	dense  [][]float64
	lo, hi float64 // valid domain in time order, narrowed by Truncate
}

// New builds the interpolator for a step from t0 of signed size h, with the
// stage derivatives k (including the trailing f(t1, y1) stage) and the
// scheme's dense-output matrix.
func New(t0, h float64, y0, y1 dynamo.State, k []dynamo.State, dense [][]float64) *Interpolator {
	ip := &Interpolator{t0: t0, h: h, y0: y0, y1: y1, k: k, dense: dense}
	ip.lo = math.Min(t0, t0+h)
	ip.hi = math.Max(t0, t0+h)
	return ip
}

// Span returns the valid domain in time order.
func (ip *Interpolator) Span() (lo, hi float64) {
	return ip.lo, ip.hi
}

// T0 returns the step's start time; T1 its end time. T1 precedes T0 when
// propagating backward.
func (ip *Interpolator) T0() float64 { return ip.t0 }
func (ip *Interpolator) T1() float64 { return ip.t0 + ip.h }

// Truncate narrows the valid domain so that no query can read past tCut.
// The underlying polynomial is untouched. tCut must lie inside the current
// domain.
func (ip *Interpolator) Truncate(tCut float64) error {
	if !ip.inDomain(tCut) {
		return dynamo.ErrOutsideStep
	}
	if ip.h >= 0 {
		ip.hi = tCut
	} else {
		ip.lo = tCut
	}
	return nil
}

func (ip *Interpolator) inDomain(t float64) bool {
	slack := domainSlack * math.Abs(ip.h)
	return t >= ip.lo-slack && t <= ip.hi+slack
}

// StateAt evaluates the state at any t inside the valid domain.
func (ip *Interpolator) StateAt(t float64) (dynamo.State, error) {
	if !ip.inDomain(t) {
		return nil, dynamo.ErrOutsideStep
	}
	theta := (t - ip.t0) / ip.h
	n := len(ip.y0)
	y := make(dynamo.State, n)
	copy(y, ip.y0)
	for s, ks := range ip.k {
		// w = theta * (p0 + theta*(p1 + ...)), Horner in theta
		row := ip.dense[s]
		w := 0.0
		for j := len(row) - 1; j >= 0; j-- {
			w = row[j] + theta*w
		}
		w *= theta * ip.h
		for i := 0; i < n; i++ {
			y[i] += w * ks[i]
		}
	}
	return y, nil
}

// DerivativeAt evaluates the interpolant's time derivative at t. At the step
// endpoints this matches the equations' derivative at the committed states.
func (ip *Interpolator) DerivativeAt(t float64) (dynamo.State, error) {
	if !ip.inDomain(t) {
		return nil, dynamo.ErrOutsideStep
	}
	theta := (t - ip.t0) / ip.h
	n := len(ip.y0)
	dy := make(dynamo.State, n)
	for s, ks := range ip.k {
		row := ip.dense[s]
		// d/dt [h * sum_j p_j theta^(j+1)] = sum_j (j+1) p_j theta^j
		w := 0.0
		for j := len(row) - 1; j >= 0; j-- {
			w = float64(j+1)*row[j] + theta*w
		}
		for i := 0; i < n; i++ {
			dy[i] += w * ks[i]
		}
	}
	return dy, nil
}
