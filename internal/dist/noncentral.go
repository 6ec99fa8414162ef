package dist

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mathext"
)

// hermiteNodes is the Gauss-Hermite rule size for the normal expectations
const hermiteNodes = 96

// noncentralFCDF is P(X <= x) for X ~ F'(d1, d2, lambda):
//
//	sum_j Poisson(j; lambda/2) * I_y(d1/2 + j, d2/2),  y = d1*x / (d1*x + d2)
func noncentralFCDF(x, d1, d2, lambda float64, s Series) float64 {
	if x <= 0 {
		return 0
	}
	if math.IsInf(x, 1) {
		return 1
	}
	if lambda == 0 {
		return fCDF(x, d1, d2)
	}
	if lambda/2 > mixtureLimit {
		return noncentralFLargeLambda(x, d1, d2, lambda)
	}
	y := d1 * x / (d1*x + d2)
	yc := d2 / (d1*x + d2)
	return clamp01(mixture(d1/2, weights{mu: lambda / 2, c: 1}, betaLadder(d2/2, y, yc), s))
}

// noncentralChiSquareCDF is P(X <= x) for X ~ chi2'(k, lambda):
//
//	sum_j Poisson(j; lambda/2) * P(k/2 + j, x/2)
func noncentralChiSquareCDF(x, k, lambda float64, s Series) float64 {
	if x <= 0 {
		return 0
	}
	if math.IsInf(x, 1) {
		return 1
	}
	if lambda == 0 {
		return chiSquareCDF(x, k)
	}
	if lambda/2 > mixtureLimit {
		return clamp01(sankaranCDF(x, k, lambda))
	}
	return clamp01(mixture(k/2, weights{mu: lambda / 2, c: 1}, gammaLadder(x/2), s))
}

// noncentralTCDF is P(T <= t) for the noncentral t with nu df and shift delta,
// following Lenth (1989), Applied Statistics algorithm AS 243. For t >= 0
//
//	F(t) = Phi(-delta) + 1/2 * sum_j [ P_j I_x(j+1/2, nu/2) + Q_j I_x(j+1, nu/2) ]
//
// with x = t²/(t²+nu), P_j = Poisson(j; delta²/2) and
// Q_j = delta/sqrt(2) * exp(-delta²/2) (delta²/2)^j / Gamma(j+3/2).
// Negative t uses F(t; nu, delta) = 1 - F(-t; nu, -delta).
func noncentralTCDF(t, nu, delta float64, s Series) float64 {
	switch {
	case math.IsInf(t, 1):
		return 1
	case math.IsInf(t, -1):
		return 0
	case delta == 0:
		return tCDF(t, nu)
	case t < 0:
		return clamp01(1 - noncentralTCDF(-t, nu, -delta, s))
	}

	base := normalCDF(-delta)
	if t == 0 {
		return base
	}
	if delta*delta/2 > mixtureLimit {
		return noncentralTLargeShift(t, nu, delta)
	}

	x := t * t / (t*t + nu)
	xc := nu / (t*t + nu)
	mu := delta * delta / 2
	b := nu / 2

	p := mixture(0.5, weights{mu: mu, c: 1}, betaLadder(b, x, xc), s)
	q := mixture(1, weights{mu: mu, c: 1.5}, betaLadder(b, x, xc), s)

	return clamp01(base + 0.5*(p+delta/math.Sqrt2*q))
}

// noncentralFLargeLambda treats the numerator chi2'(d1, lambda) as normal,
// which holds once lambda dwarfs d1, and averages the survival of the
// central chi2(d2) denominator over it:
//
//	P(F <= x) = E[P(V >= d2*N/(d1*x))],  N ~ Normal(d1+lambda, 2(d1+2 lambda))
func noncentralFLargeLambda(x, d1, d2, lambda float64) float64 {
	mean := d1 + lambda
	sd := math.Sqrt(2 * (d1 + 2*lambda))
	return clamp01(expectNormal(func(z float64) float64 {
		num := mean + sd*z
		if num <= 0 {
			return 1
		}
		return chiSquareSurvival(d2*(num/(d1*x)), d2)
	}))
}

// noncentralTLargeShift conditions on the normal numerator Z for t > 0:
//
//	P(T <= t) = E[P(V >= nu*(Z+delta)²/t²)]
//
// where the inner probability is 1 whenever Z+delta <= 0. Unlike the mixture
// it needs no Poisson weights, so it holds for any finite delta.
func noncentralTLargeShift(t, nu, delta float64) float64 {
	return clamp01(expectNormal(func(z float64) float64 {
		num := z + delta
		if num <= 0 {
			return 1
		}
		r := num / t
		return chiSquareSurvival(nu*r*r, nu)
	}))
}

// sankaranCDF is Sankaran's (1963) normal approximation to (X/(k+lambda))^h
// for X ~ chi2'(k, lambda). The ratios are formed first so that huge lambda
// does not overflow.
func sankaranCDF(x, k, lambda float64) float64 {
	a := (k + lambda) / (k + 2*lambda)
	b := (k + 3*lambda) / (k + 2*lambda)
	h := 1 - 2.0/3*a*b
	p := 1 / ((k + lambda) * a)
	m := (h - 1) * (1 - 3*h)
	mean := 1 + h*p*(h-1-0.5*(2-h)*m*p)
	sd := h * math.Sqrt(2*p) * (1 + 0.5*m*p)
	return normalCDF((math.Pow(x/(k+lambda), h) - mean) / sd)
}

// expectNormal is E[f(Z)] for a standard normal Z by Gauss-Hermite quadrature
func expectNormal(f func(z float64) float64) float64 {
	g := func(u float64) float64 { return f(math.Sqrt2 * u) }
	return quad.Fixed(g, math.Inf(-1), math.Inf(1), hermiteNodes, quad.Hermite{}, 0) / math.SqrtPi
}

// betaLadder steps I_y(a, b) in its first parameter:
//
//	I_y(a+1, b) = I_y(a, b) - y^a (1-y)^b / (a B(a, b))
//
// yc is 1-y passed separately so callers can supply it without cancellation.
func betaLadder(b, y, yc float64) ladder {
	lgb, _ := math.Lgamma(b)
	logY, logYc := math.Log(y), math.Log(yc)
	return ladder{
		at: func(a float64) float64 {
			return mathext.RegIncBeta(a, b, y)
		},
		logStep: func(a float64) float64 {
			lgab, _ := math.Lgamma(a + b)
			lga1, _ := math.Lgamma(a + 1)
			return a*logY + b*logYc + lgab - lga1 - lgb
		},
	}
}

// gammaLadder steps the regularized lower incomplete gamma P(a, z):
//
//	P(a+1, z) = P(a, z) - z^a e^-z / Gamma(a+1)
func gammaLadder(z float64) ladder {
	logZ := math.Log(z)
	return ladder{
		at: func(a float64) float64 {
			return mathext.GammaIncReg(a, z)
		},
		logStep: func(a float64) float64 {
			lga1, _ := math.Lgamma(a + 1)
			return a*logZ - z - lga1
		},
	}
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
