package dist

import "math"

// Series bounds the Poisson-mixture sums used by the noncentral distributions.
// Summation stops once the bound on the neglected terms drops below Tolerance
// or MaxTerms terms have been added, whichever comes first.
type Series struct {
	Tolerance float64
	MaxTerms  int
}

// DefaultSeries is used when a Distribution carries a zero Series
var DefaultSeries = Series{Tolerance: 1e-12, MaxTerms: 100000}

func (s Series) orDefault() Series {
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultSeries.Tolerance
	}
	if s.MaxTerms <= 0 {
		s.MaxTerms = DefaultSeries.MaxTerms
	}
	return s
}

// ladder is a family of functions G(a) that decreases in unit steps of its
// shape parameter: G(a+1) = G(a) - exp(logStep(a)). The regularized incomplete
// beta (in its first parameter) and regularized lower incomplete gamma both
// have this form, which lets a mixture reuse one direct evaluation.
type ladder struct {
	at      func(a float64) float64
	logStep func(a float64) float64
}

// mixtureLimit is the largest Poisson mean summed term by term. Past it the
// weights spread over more terms than DefaultSeries allows and the noncentral
// CDFs switch to large-noncentrality forms.
const mixtureLimit = 1e7

// weights describes w_j = exp(-mu + j*ln(mu) - lgamma(j+c)). With c = 1 these
// are Poisson(mu) probabilities.
type weights struct {
	mu float64
	c  float64
}

// log evaluates log w_j in Loader's saddle point form. With x = j+c-1,
//
//	log w_j = -bd0(x, mu) + (1-c) ln(mu) - ln(2 pi x)/2 - stirlerr(x)
//
// which keeps full relative precision when j and mu are both large.
func (w weights) log(j float64) float64 {
	x := j + w.c - 1
	if x == 0 {
		return -w.mu
	}
	return -bd0(x, w.mu) + (1-w.c)*math.Log(w.mu) - 0.5*math.Log(2*math.Pi*x) - stirlerr(x)
}

// mode returns the index of the largest weight
func (w weights) mode() float64 {
	return math.Max(0, math.Floor(w.mu-w.c+1))
}

// mixture sums w_j * G(a0 + j) over j >= 0, starting at the largest weight
// and walking outward in both directions. G is bounded by 1 and decreasing in
// j, which is what the truncation bounds rely on.
func mixture(a0 float64, w weights, g ladder, s Series) float64 {
	m := w.mode()
	gm := g.at(a0 + m)
	wm := math.Exp(w.log(m))

	sum := wm * gm
	terms := 1

	// Downward: G(a) = G(a+1) + step(a). For i < j the weight ratio
	// w_i / w_{i+1} = (i+c)/mu is at most r = (j-1+c)/mu, so the weights not yet
	// visited sum to at most w_j * r/(1-r).
	wj, gj := wm, gm
	for j := m - 1; j >= 0 && terms < s.MaxTerms; j-- {
		gj = math.Min(1, gj+math.Exp(g.logStep(a0+j)))
		wj *= (j + w.c) / w.mu
		sum += wj * gj
		terms++

		if r := (j - 1 + w.c) / w.mu; r < 1 && wj*r/(1-r) < s.Tolerance {
			break
		}
		if wj == 0 {
			break
		}
	}

	// Upward: G(a+1) = G(a) - step(a). For i >= j the ratio w_{i+1}/w_i is at
	// most r = mu/(j+c) and G only shrinks, so the tail is at most
	// G_j * w_j * r/(1-r).
	wj, gj = wm, gm
	for j := m + 1; terms < s.MaxTerms; j++ {
		gj = math.Max(0, gj-math.Exp(g.logStep(a0+j-1)))
		wj *= w.mu / (j - 1 + w.c)
		sum += wj * gj
		terms++

		if gj == 0 || wj == 0 {
			break
		}
		if r := w.mu / (j + w.c); r < 1 && gj*wj*r/(1-r) < s.Tolerance {
			break
		}
	}

	return sum
}

// bd0 is x ln(x/np) + np - x, summed as a series when x is close to np
func bd0(x, np float64) float64 {
	if math.Abs(x-np) < 0.1*(x+np) {
		v := (x - np) / (x + np)
		sum := (x - np) * v
		ej := 2 * x * v
		v *= v
		for j := 1; j < 1000; j++ {
			ej *= v
			next := sum + ej/float64(2*j+1)
			if next == sum {
				break
			}
			sum = next
		}
		return sum
	}
	return x*math.Log(x/np) + np - x
}

// stirlerr is the error of Stirling's formula,
// lgamma(x+1) - (x+1/2) ln(x) + x - ln(2 pi)/2
func stirlerr(x float64) float64 {
	const (
		s0 = 1.0 / 12
		s1 = 1.0 / 360
		s2 = 1.0 / 1260
		s3 = 1.0 / 1680
		s4 = 1.0 / 1188
	)
	if x <= 15 {
		lg, _ := math.Lgamma(x + 1)
		return lg - (x+0.5)*math.Log(x) + x - 0.5*math.Log(2*math.Pi)
	}
	xx := x * x
	return (s0 - (s1-(s2-(s3-s4/xx)/xx)/xx)/xx) / x
}
