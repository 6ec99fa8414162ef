// Package solver finds where a monotone scalar function crosses a target value.
package solver

import (
	"math"

	apperrors "gopower/internal/errors"
)

// Config holds the stopping rules. The search stops once the bracket is
// narrower than 2*RelTol*|x| + AbsTol/2 around the current estimate.
type Config struct {
	AbsTol        float64 `json:"abs_tol"`
	RelTol        float64 `json:"rel_tol"`
	MaxIterations int     `json:"max_iterations"`
}

// DefaultConfig returns the tolerances used by the analysis dispatcher
func DefaultConfig() Config {
	return Config{AbsTol: 1e-10, RelTol: 1e-12, MaxIterations: 500}
}

func (c Config) orDefault() Config {
	d := DefaultConfig()
	if c.AbsTol <= 0 {
		c.AbsTol = d.AbsTol
	}
	if c.RelTol <= 0 {
		c.RelTol = d.RelTol
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

// Bracket is an interval together with the function values at its ends.
// Solve fills FLower and FUpper.
type Bracket struct {
	Lower  float64
	Upper  float64
	FLower float64
	FUpper float64
}

// Solution is a located crossing
type Solution struct {
	X          float64
	FX         float64
	Iterations int
	Bracket    Bracket
}

// Evaluate fills the function values at both ends of b
func Evaluate(f func(float64) float64, b Bracket) (Bracket, error) {
	b.FLower = f(b.Lower)
	b.FUpper = f(b.Upper)
	if math.IsNaN(b.FLower) || math.IsNaN(b.FUpper) {
		return b, apperrors.DomainError("function is undefined at the bracket [%g, %g]", b.Lower, b.Upper)
	}
	return b, nil
}

// Straddles reports whether target lies between the bracket's end values
func (b Bracket) Straddles(target float64) bool {
	lo, hi := b.FLower-target, b.FUpper-target
	return lo == 0 || hi == 0 || (lo < 0) != (hi < 0)
}

// Solve finds x in [b.Lower, b.Upper] with f(x) = target using Brent's
// method: inverse quadratic interpolation or secant steps when they make
// progress, bisection otherwise. Iterates never leave the bracket.
//
// It fails with a BracketingFailure when f(lower) - target and
// f(upper) - target share a sign, NoConvergence when the iteration budget
// runs out, and a DomainError when f returns NaN.
func Solve(f func(float64) float64, target float64, b Bracket, cfg Config) (Solution, error) {
	cfg = cfg.orDefault()
	if !(b.Lower <= b.Upper) {
		return Solution{}, apperrors.DomainError("invalid bracket [%g, %g]", b.Lower, b.Upper)
	}

	b, err := Evaluate(f, b)
	if err != nil {
		return Solution{}, err
	}
	sol := Solution{Bracket: b}

	g := func(x float64) float64 { return f(x) - target }
	xa, xb := b.Lower, b.Upper
	fa, fb := b.FLower-target, b.FUpper-target

	switch {
	case fa == 0:
		sol.X, sol.FX = xa, b.FLower
		return sol, nil
	case fb == 0:
		sol.X, sol.FX = xb, b.FUpper
		return sol, nil
	case (fa < 0) == (fb < 0):
		return sol, apperrors.BracketingFailure("target %g is not bracketed by f(%g)=%g and f(%g)=%g",
			target, b.Lower, b.FLower, b.Upper, b.FUpper)
	}

	xc, fc := xa, fa
	d := xb - xa
	e := d

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		if (fb < 0) == (fc < 0) {
			xc, fc = xa, fa
			d = xb - xa
			e = d
		}
		// keep xb the best estimate
		if math.Abs(fc) < math.Abs(fb) {
			xa, xb, xc = xb, xc, xb
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*cfg.RelTol*math.Abs(xb) + 0.5*cfg.AbsTol
		m := 0.5 * (xc - xb)
		if math.Abs(m) <= tol || fb == 0 {
			sol.X, sol.FX, sol.Iterations = xb, fb+target, iter
			return sol, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if xa == xc {
				// secant
				p = 2 * m * s
				q = 1 - s
			} else {
				// inverse quadratic
				qq := fa / fc
				r := fb / fc
				p = s * (2*m*qq*(qq-r) - (xb-xa)*(r-1))
				q = (qq - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}

		xa, fa = xb, fb
		if math.Abs(d) > tol {
			xb += d
		} else {
			xb += math.Copysign(tol, m)
		}
		fb = g(xb)
		if math.IsNaN(fb) {
			return sol, apperrors.DomainError("function is undefined at x=%g", xb)
		}
	}

	sol.X, sol.FX, sol.Iterations = xb, fb+target, cfg.MaxIterations
	return sol, apperrors.NoConvergence("no root within %d iterations; last estimate x=%g", cfg.MaxIterations, xb)
}
