// Package tableau holds the coefficient tables for embedded Runge-Kutta
// pairs with dense output. Each scheme is a plain data record consumed by
// the generic step controller, not a type of its own.
package tableau

import "math"

// Tableau describes one explicit embedded pair. A is lower triangular with
// row i holding the i coefficients feeding stage i. E holds the embedded
// error weights over Stages+1 stage derivatives: the propagated solution's
// trailing derivative f(t1, y1) participates in both the error estimate and
// the dense output, so steppers always evaluate it. Dense holds the
// dense-output matrix: row s, column j is the coefficient of theta^(j+1)
// multiplying stage derivative s in the continuous extension
//
//	y(t0 + theta*h) = y0 + h * sum_s k_s * sum_j Dense[s][j]*theta^(j+1)
type Tableau struct {
	Name   string
	Order  int // order of the propagated (high) solution
	ErrOrd int // order of the embedded (low) solution
	Stages int

	C     []float64
	A     [][]float64
	B     []float64
	E     []float64
	Dense [][]float64
}

// ByName resolves a scheme name as used by config files and CLI flags.
func ByName(name string) *Tableau {
	switch name {
	case "dopri54", "dopri5", "rk45":
		return DormandPrince54()
	case "bs32", "rk23":
		return BogackiShampine32()
	default:
		return nil
	}
}

// Names lists the canonical scheme names.
func Names() []string {
	return []string{"dopri54", "bs32"}
}

// Check verifies the table's internal consistency: row sums of A match C,
// B sums to one, the error weights sum to zero, and the dense output
// reproduces B at theta = 1. Used by tests.
func (tb *Tableau) Check(tol float64) bool {
	for i := 1; i < tb.Stages; i++ {
		sum := 0.0
		for _, a := range tb.A[i] {
			sum += a
		}
		if math.Abs(sum-tb.C[i]) > tol {
			return false
		}
	}
	sumB := 0.0
	for _, b := range tb.B {
		sumB += b
	}
	if math.Abs(sumB-1) > tol {
		return false
	}
	sumE := 0.0
	for _, e := range tb.E {
		sumE += e
	}
	if math.Abs(sumE) > tol {
		return false
	}
	for s := 0; s < tb.Stages; s++ {
		sum := 0.0
		for _, p := range tb.Dense[s] {
			sum += p
		}
		if math.Abs(sum-tb.B[s]) > tol {
			return false
		}
	}
	// The trailing f(t1,y1) stage must vanish from the dense output at theta=1.
	if len(tb.Dense) > tb.Stages {
		sum := 0.0
		for _, p := range tb.Dense[tb.Stages] {
			sum += p
		}
		if math.Abs(sum) > tol {
			return false
		}
	}
	return true
}
