package power

import (
	"math"

	domain "gopower/domain/power"
	apperrors "gopower/internal/errors"
	"gopower/internal/solver"
)

// Analyzer dispatches a Request to the solver for its target quantity.
// It holds only immutable options and is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an analyzer; zero option fields take their defaults
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts.withDefaults()}
}

// Options returns the effective options
func (a *Analyzer) Options() Options {
	return a.opts
}

// inputs are the validated quantities of a request; the target's slot is zero
type inputs struct {
	design domain.Design
	tail   domain.Tail
	target domain.Target
	n      float64
	alpha  float64
	power  float64
	es     float64
}

// Analyze solves req for its target quantity
func (a *Analyzer) Analyze(req domain.Request) (domain.Result, error) {
	in, err := validate(req)
	if err != nil {
		return domain.Result{}, err
	}

	var res domain.Result
	switch in.target {
	case domain.TargetPower:
		res, err = a.solvePower(in)
	case domain.TargetSampleSize:
		res, err = a.solveSampleSize(in)
	case domain.TargetAlpha:
		res, err = a.solveAlpha(in)
	case domain.TargetEffectSize:
		res, err = a.solveEffectSize(in)
	}
	if err != nil {
		return domain.Result{}, err
	}
	if err := checkSolved(res); err != nil {
		return domain.Result{}, err
	}
	return res, nil
}

// ============================================================================
// VALIDATION
// ============================================================================

func validate(req domain.Request) (inputs, error) {
	in := inputs{design: req.Design, tail: req.Tail, target: req.Target}

	if req.Design == nil {
		return in, apperrors.ValidationError("test", "required")
	}
	if err := req.Design.Validate(); err != nil {
		return in, err
	}

	switch req.Target {
	case domain.TargetSampleSize, domain.TargetAlpha, domain.TargetPower, domain.TargetEffectSize:
	default:
		return in, apperrors.ValidationError("analysis", "must be one of n, alpha, power, es")
	}

	if req.Design.Family().Symmetric() {
		if !req.Tail.Valid() {
			return in, apperrors.ValidationError("tail", "must be 1 or 2")
		}
	} else if !req.Tail.Valid() {
		// F and chi-square tests are always upper-tailed
		in.tail = domain.OneTailed
	}

	var err error
	if req.Target != domain.TargetSampleSize {
		if in.n, err = need("n", req.N); err != nil {
			return in, err
		}
		if in.n < 2 {
			return in, apperrors.ValidationError("n", "must be at least 2")
		}
	}
	if req.Target != domain.TargetAlpha {
		if in.alpha, err = need("alpha", req.Alpha); err != nil {
			return in, err
		}
		if !(in.alpha > 0 && in.alpha < 1) {
			return in, apperrors.ValidationError("alpha", "must lie strictly between 0 and 1")
		}
	}
	if req.Target != domain.TargetPower {
		if in.power, err = need("power", req.Power); err != nil {
			return in, err
		}
		if !(in.power > 0 && in.power < 1) {
			return in, apperrors.ValidationError("power", "must lie strictly between 0 and 1")
		}
	}
	if req.Target != domain.TargetEffectSize {
		if in.es, err = need("es", req.EffectSize); err != nil {
			return in, err
		}
		if in.es < 0 {
			return in, apperrors.ValidationError("es", "must be non-negative")
		}
	}
	return in, nil
}

func need(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, apperrors.ValidationError(field, "required")
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, apperrors.ValidationError(field, "must be a finite number")
	}
	return *v, nil
}

// checkSolved rejects solutions that land outside the quantity domains
func checkSolved(res domain.Result) error {
	switch {
	case !(res.Alpha > 0 && res.Alpha < 1):
		return apperrors.Infeasible("solved alpha %g is outside (0, 1)", res.Alpha)
	case res.N < 2 || math.IsNaN(res.N):
		return apperrors.Infeasible("solved sample size %g is below 2", res.N)
	case res.EffectSize < 0 || math.IsNaN(res.EffectSize):
		return apperrors.Infeasible("solved effect size %g is negative", res.EffectSize)
	case !(res.AchievedPower >= 0 && res.AchievedPower <= 1):
		return apperrors.InternalError("achieved power is not a probability")
	}
	return nil
}

// ============================================================================
// TARGETS
// ============================================================================

func (a *Analyzer) solvePower(in inputs) (domain.Result, error) {
	ev, err := AchievedPower(in.design, in.tail, in.alpha, in.n, in.es, a.opts.Series)
	if err != nil {
		return domain.Result{}, err
	}
	in.power = ev.Power
	return a.result(in, ev.Power, ev, 0), nil
}

// solveSampleSize returns the smallest integer N whose power reaches the
// target. The continuous crossing is reported as Exact.
func (a *Analyzer) solveSampleSize(in inputs) (domain.Result, error) {
	f, evalErr := a.curve(in, func(in *inputs, x float64) { in.n = x })

	lower := in.design.MinN()
	upper := math.Max(lower, a.opts.SampleSizeCap)

	low, err := a.evaluate(in, lower)
	if err != nil {
		return domain.Result{}, err
	}
	if low.Power >= in.power {
		in.n = lower
		return a.result(in, lower, low, 0), nil
	}

	sol, err := solver.Solve(f, in.power, solver.Bracket{Lower: lower, Upper: upper}, a.opts.Solver)
	if *evalErr != nil {
		return domain.Result{}, *evalErr
	}
	if apperrors.HasCode(err, apperrors.CodeBracketingFailure) {
		return domain.Result{}, apperrors.Infeasible(
			"power %g is not reachable with N <= %g (power there is %.6g)", in.power, upper, sol.Bracket.FUpper)
	}
	if err != nil {
		return domain.Result{}, err
	}

	n := math.Max(lower, math.Ceil(sol.X-1e-6))
	ev, err := a.evaluate(in, n)
	if err != nil {
		return domain.Result{}, err
	}
	// the root is only located to within the solver tolerance
	for ev.Power < in.power-1e-10 && n < upper {
		n++
		if ev, err = a.evaluate(in, n); err != nil {
			return domain.Result{}, err
		}
	}

	in.n = n
	return a.result(in, sol.X, ev, sol.Iterations), nil
}

func (a *Analyzer) solveAlpha(in inputs) (domain.Result, error) {
	f, evalErr := a.curve(in, func(in *inputs, x float64) { in.alpha = x })

	eps := a.opts.AlphaEpsilon
	sol, err := solver.Solve(f, in.power, solver.Bracket{Lower: eps, Upper: 1 - eps}, a.opts.Solver)
	if *evalErr != nil {
		return domain.Result{}, *evalErr
	}
	if apperrors.HasCode(err, apperrors.CodeBracketingFailure) {
		return domain.Result{}, apperrors.Infeasible(
			"power %g is not reachable for alpha in [%g, %g]: power ranges over [%.6g, %.6g]",
			in.power, eps, 1-eps, sol.Bracket.FLower, sol.Bracket.FUpper)
	}
	if err != nil {
		return domain.Result{}, err
	}

	in.alpha = sol.X
	ev, err := a.evaluate(in, in.n)
	if err != nil {
		return domain.Result{}, err
	}
	return a.result(in, sol.X, ev, sol.Iterations), nil
}

// solveEffectSize widens the effect-size bracket by doubling when the
// target power lies beyond the configured cap
func (a *Analyzer) solveEffectSize(in inputs) (domain.Result, error) {
	if in.power <= in.alpha {
		return domain.Result{}, apperrors.Infeasible(
			"power %g does not exceed alpha %g, which is the power at zero effect", in.power, in.alpha)
	}

	f, evalErr := a.curve(in, func(in *inputs, x float64) { in.es = x })

	bracket := solver.Bracket{Lower: 0, Upper: a.opts.EffectSizeCap}
	var sol solver.Solution
	var err error
	for attempt := 0; ; attempt++ {
		sol, err = solver.Solve(f, in.power, bracket, a.opts.Solver)
		if *evalErr != nil {
			return domain.Result{}, *evalErr
		}
		if !apperrors.HasCode(err, apperrors.CodeBracketingFailure) {
			break
		}
		if attempt >= a.opts.MaxBracketExpansions {
			return domain.Result{}, apperrors.Infeasible(
				"power %g is not reachable with effect size <= %g (power there is %.6g)",
				in.power, bracket.Upper, sol.Bracket.FUpper)
		}
		bracket.Upper *= 2
	}
	if err != nil {
		return domain.Result{}, err
	}

	in.es = sol.X
	ev, err := a.evaluate(in, in.n)
	if err != nil {
		return domain.Result{}, err
	}
	return a.result(in, sol.X, ev, sol.Iterations), nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (a *Analyzer) evaluate(in inputs, n float64) (Evaluation, error) {
	return AchievedPower(in.design, in.tail, in.alpha, n, in.es, a.opts.Series)
}

// curve returns power as a function of the quantity that set assigns. The
// first evaluation error is kept in the returned pointer and the function
// reports NaN from then on, which stops the solver.
func (a *Analyzer) curve(in inputs, set func(in *inputs, x float64)) (func(float64) float64, *error) {
	var evalErr error
	f := func(x float64) float64 {
		if evalErr != nil {
			return math.NaN()
		}
		probe := in
		set(&probe, x)
		ev, err := AchievedPower(probe.design, probe.tail, probe.alpha, probe.n, probe.es, a.opts.Series)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return ev.Power
	}
	return f, &evalErr
}

func (a *Analyzer) result(in inputs, exact float64, ev Evaluation, iterations int) domain.Result {
	value := exact
	if in.target == domain.TargetSampleSize {
		value = in.n
	}
	return domain.Result{
		Test:          in.design.Name(),
		Family:        in.design.Family(),
		Tail:          in.tail,
		Target:        in.target,
		Value:         value,
		Exact:         exact,
		N:             in.n,
		Alpha:         in.alpha,
		Power:         in.power,
		EffectSize:    in.es,
		AchievedPower: ev.Power,
		CriticalValue: ev.CriticalValue,
		Noncentrality: ev.Noncentrality,
		Iterations:    iterations,
	}
}
