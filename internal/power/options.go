// Package power solves power-analysis requests: given three of sample size,
// significance level, power and effect size it finds the fourth.
package power

import (
	"gopower/internal/dist"
	"gopower/internal/solver"
)

// Options are the numeric limits of an Analyzer. Zero fields fall back to
// DefaultOptions.
type Options struct {
	// SampleSizeCap is the upper end of the sample-size bracket
	SampleSizeCap float64 `json:"sample_size_cap"`
	// EffectSizeCap is the initial upper end of the effect-size bracket
	EffectSizeCap float64 `json:"effect_size_cap"`
	// MaxBracketExpansions bounds how often the effect-size bracket doubles
	MaxBracketExpansions int `json:"max_bracket_expansions"`
	// AlphaEpsilon keeps the alpha bracket inside (0, 1)
	AlphaEpsilon float64 `json:"alpha_epsilon"`

	Solver solver.Config `json:"solver"`
	Series dist.Series   `json:"series"`

	CurveWorkers   int `json:"curve_workers"`
	CurveMaxPoints int `json:"curve_max_points"`
}

// DefaultOptions returns the limits used when nothing is configured
func DefaultOptions() Options {
	return Options{
		SampleSizeCap:        1e6,
		EffectSizeCap:        10,
		MaxBracketExpansions: 4,
		AlphaEpsilon:         1e-10,
		Solver:               solver.DefaultConfig(),
		Series:               dist.DefaultSeries,
		CurveWorkers:         4,
		CurveMaxPoints:       500,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleSizeCap <= 0 {
		o.SampleSizeCap = d.SampleSizeCap
	}
	if o.EffectSizeCap <= 0 {
		o.EffectSizeCap = d.EffectSizeCap
	}
	if o.MaxBracketExpansions < 0 {
		o.MaxBracketExpansions = 0
	}
	if o.AlphaEpsilon <= 0 || o.AlphaEpsilon >= 0.5 {
		o.AlphaEpsilon = d.AlphaEpsilon
	}
	if o.Solver.AbsTol <= 0 {
		o.Solver.AbsTol = d.Solver.AbsTol
	}
	if o.Solver.RelTol <= 0 {
		o.Solver.RelTol = d.Solver.RelTol
	}
	if o.Solver.MaxIterations <= 0 {
		o.Solver.MaxIterations = d.Solver.MaxIterations
	}
	if o.Series.Tolerance <= 0 {
		o.Series.Tolerance = d.Series.Tolerance
	}
	if o.Series.MaxTerms <= 0 {
		o.Series.MaxTerms = d.Series.MaxTerms
	}
	if o.CurveWorkers <= 0 {
		o.CurveWorkers = d.CurveWorkers
	}
	if o.CurveMaxPoints <= 0 {
		o.CurveMaxPoints = d.CurveMaxPoints
	}
	return o
}
