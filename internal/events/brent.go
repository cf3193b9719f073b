package events

import (
	"math"

	"github.com/san-kum/flightprop/internal/dynamo"
)

// maxBrentIter bounds root localization. A valid bracket converges in far
// fewer iterations; hitting the bound indicates a malformed switching
// function (discontinuous without a true sign change) and is fatal.
const maxBrentIter = 100

// brent finds the root of f inside the bracket [a, b] (fa, fb already
// evaluated, opposite signs) to the given tolerance on the bracket width.
// Bisection-seeded with inverse-quadratic/secant acceleration; no new
// derivative evaluations are needed since f reads the dense output.
func brent(f func(float64) (float64, error), a, b, fa, fb, tol float64) (float64, error) {
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if tol <= 0 {
		tol = 1e-12 * math.Max(math.Abs(a), math.Abs(b))
	}

	c, fc := a, fa
	d := b - a
	e := d

	for iter := 0; iter < maxBrentIter; iter++ {
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 0.5*tol + 2*math.Abs(b)*math.SmallestNonzeroFloat64
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// Secant, or inverse quadratic when a, b, c are distinct.
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		var err error
		fb, err = f(b)
		if err != nil {
			return 0, err
		}
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
	}
	return 0, dynamo.ErrRootConvergence
}
