package power

import (
	"math"

	apperrors "gopower/internal/errors"
)

// Design is a statistical test together with its structural parameters
// (groups, covariates, predictors, repeated measurements). It maps an effect
// size and a total sample size to degrees of freedom and a noncentrality
// parameter. Implementations are immutable values; the set is closed.
//
// Formulas follow Faul, Erdfelder, Lang & Buchner (2007), "G*Power 3",
// Behavior Research Methods 39(2), with N the total sample size.
type Design interface {
	// Name is the wire identifier of the test
	Name() string
	// Family is the distribution of the test statistic
	Family() Family
	// Validate checks the structural parameters independently of N
	Validate() error
	// MinN is the smallest integer sample size with positive degrees of freedom
	MinN() float64
	// Noncentrality evaluates the design at effect size es and sample size n.
	// It must stay O(1): the sample-size solver calls it on every iteration.
	Noncentrality(es, n float64) (Noncentrality, error)
	// Params echoes the structural parameters keyed by their wire names
	Params() map[string]float64

	sealed()
}

// ============================================================================
// t FAMILY
// ============================================================================

// OneSampleTTest compares a mean against a constant; es is Cohen's d
type OneSampleTTest struct{}

func (OneSampleTTest) Name() string               { return "oneSampleTTest" }
func (OneSampleTTest) Family() Family             { return FamilyT }
func (OneSampleTTest) Validate() error            { return nil }
func (OneSampleTTest) MinN() float64              { return 2 }
func (OneSampleTTest) Params() map[string]float64 { return map[string]float64{} }
func (OneSampleTTest) sealed()                    {}

func (d OneSampleTTest) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: n - 1, Lambda: math.Sqrt(n) * es}
	return nc, checkDF(d, n, nc.DF1, 1)
}

// IndependentSamplesTTest compares two independent means; es is Cohen's d.
// AllocationRatio is n2/n1; 1 means equal groups.
type IndependentSamplesTTest struct {
	AllocationRatio float64 `json:"allocationRatio"`
}

func (IndependentSamplesTTest) Name() string   { return "independentSamplesTTest" }
func (IndependentSamplesTTest) Family() Family { return FamilyT }
func (IndependentSamplesTTest) MinN() float64  { return 3 }
func (IndependentSamplesTTest) sealed()        {}

func (d IndependentSamplesTTest) Validate() error {
	if r := d.AllocationRatio; !(r > 0) || math.IsInf(r, 0) {
		return apperrors.InvalidStructure("%s: allocation ratio must be positive, got %g", d.Name(), d.AllocationRatio)
	}
	return nil
}

func (d IndependentSamplesTTest) Params() map[string]float64 {
	return map[string]float64{"allocationRatio": d.AllocationRatio}
}

func (d IndependentSamplesTTest) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	r := d.AllocationRatio
	n1 := n / (1 + r)
	n2 := r * n / (1 + r)
	nc := Noncentrality{DF1: n - 2, Lambda: es * math.Sqrt(n1*n2/n)}
	return nc, checkDF(d, n, nc.DF1, 1)
}

// ============================================================================
// z FAMILY
// ============================================================================

// OneSampleZTest compares a mean against a constant with known variance
type OneSampleZTest struct{}

func (OneSampleZTest) Name() string               { return "oneSampleZTest" }
func (OneSampleZTest) Family() Family             { return FamilyZ }
func (OneSampleZTest) Validate() error            { return nil }
func (OneSampleZTest) MinN() float64              { return 2 }
func (OneSampleZTest) Params() map[string]float64 { return map[string]float64{} }
func (OneSampleZTest) sealed()                    {}

func (OneSampleZTest) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	return Noncentrality{Lambda: math.Sqrt(n) * es}, nil
}

// ============================================================================
// CHI-SQUARE FAMILY
// ============================================================================

// GoodnessOfFitChisqTest covers goodness-of-fit and contingency tables; es is Cohen's w
type GoodnessOfFitChisqTest struct {
	DF float64 `json:"df"`
}

func (GoodnessOfFitChisqTest) Name() string   { return "goodnessOfFitChisqTest" }
func (GoodnessOfFitChisqTest) Family() Family { return FamilyChiSquare }
func (GoodnessOfFitChisqTest) MinN() float64  { return 2 }
func (GoodnessOfFitChisqTest) sealed()        {}

func (d GoodnessOfFitChisqTest) Validate() error {
	return requireCount(d, "df", d.DF, 1)
}

func (d GoodnessOfFitChisqTest) Params() map[string]float64 {
	return map[string]float64{"df": d.DF}
}

func (d GoodnessOfFitChisqTest) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: d.DF, Lambda: es * es * n}
	return nc, checkDF(d, n, nc.DF1, 1)
}

// ============================================================================
// F FAMILY
// ============================================================================

// DeviationFromZeroMultipleRegression tests R² = 0 in a fixed-model linear
// regression with Predictors predictors; es is Cohen's f (f² = R²/(1-R²))
type DeviationFromZeroMultipleRegression struct {
	Predictors float64 `json:"nPredictors"`
}

func (DeviationFromZeroMultipleRegression) Name() string {
	return "deviationFromZeroMultipleRegression"
}
func (DeviationFromZeroMultipleRegression) Family() Family { return FamilyF }
func (DeviationFromZeroMultipleRegression) sealed()        {}

func (d DeviationFromZeroMultipleRegression) Validate() error {
	return requireCount(d, "nPredictors", d.Predictors, 1)
}

func (d DeviationFromZeroMultipleRegression) MinN() float64 { return minN(d.Predictors + 2) }

func (d DeviationFromZeroMultipleRegression) Params() map[string]float64 {
	return map[string]float64{"nPredictors": d.Predictors}
}

func (d DeviationFromZeroMultipleRegression) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: d.Predictors, DF2: n - d.Predictors - 1, Lambda: es * es * n}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// IncreaseMultipleRegression tests the R² increase of TestedPredictors (q)
// added to a model with TotalPredictors (rho) predictors in total
type IncreaseMultipleRegression struct {
	TotalPredictors  float64 `json:"rho"`
	TestedPredictors float64 `json:"q"`
}

func (IncreaseMultipleRegression) Name() string   { return "increaseMultipleRegression" }
func (IncreaseMultipleRegression) Family() Family { return FamilyF }
func (IncreaseMultipleRegression) sealed()        {}

func (d IncreaseMultipleRegression) Validate() error {
	if err := requireCount(d, "rho", d.TotalPredictors, 1); err != nil {
		return err
	}
	if err := requireCount(d, "q", d.TestedPredictors, 1); err != nil {
		return err
	}
	if d.TestedPredictors > d.TotalPredictors {
		return apperrors.InvalidStructure("%s: tested predictors q=%g exceed total predictors rho=%g",
			d.Name(), d.TestedPredictors, d.TotalPredictors)
	}
	return nil
}

func (d IncreaseMultipleRegression) MinN() float64 { return minN(d.TotalPredictors + 2) }

func (d IncreaseMultipleRegression) Params() map[string]float64 {
	return map[string]float64{"rho": d.TotalPredictors, "q": d.TestedPredictors}
}

func (d IncreaseMultipleRegression) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: d.TestedPredictors, DF2: n - d.TotalPredictors - 1, Lambda: es * es * n}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// ANCOVA is a fixed-effects analysis of covariance for main effects and
// interactions. Groups is the number of cells (k), NumeratorDF the df of the
// tested effect (q, k-1 when a request omits it) and Covariates the number
// of covariates (p).
// The error term has N - k - p degrees of freedom.
type ANCOVA struct {
	Groups      float64 `json:"k"`
	NumeratorDF float64 `json:"q"`
	Covariates  float64 `json:"p"`
}

func (ANCOVA) Name() string   { return "ANCOVA" }
func (ANCOVA) Family() Family { return FamilyF }
func (ANCOVA) sealed()        {}

func (d ANCOVA) Validate() error {
	if err := requireCount(d, "k", d.Groups, 2); err != nil {
		return err
	}
	if err := requireCount(d, "q", d.NumeratorDF, 1); err != nil {
		return err
	}
	return requireCount(d, "p", d.Covariates, 0)
}

func (d ANCOVA) MinN() float64 { return minN(d.Groups + d.Covariates + 1) }

func (d ANCOVA) Params() map[string]float64 {
	return map[string]float64{"k": d.Groups, "q": d.NumeratorDF, "p": d.Covariates}
}

func (d ANCOVA) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: d.NumeratorDF, DF2: n - d.Groups - d.Covariates, Lambda: es * es * n}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// OneWayANOVA is the fixed-effects omnibus test across Groups groups
type OneWayANOVA struct {
	Groups float64 `json:"k"`
}

func (OneWayANOVA) Name() string   { return "oneWayANOVA" }
func (OneWayANOVA) Family() Family { return FamilyF }
func (OneWayANOVA) sealed()        {}

func (d OneWayANOVA) Validate() error { return requireCount(d, "k", d.Groups, 2) }
func (d OneWayANOVA) MinN() float64   { return minN(d.Groups + 1) }

func (d OneWayANOVA) Params() map[string]float64 {
	return map[string]float64{"k": d.Groups}
}

func (d OneWayANOVA) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: d.Groups - 1, DF2: n - d.Groups, Lambda: es * es * n}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// TwoWayANOVA tests a main effect or interaction with NumeratorDF (q) df in a
// factorial design with Cells (k) cells in total
type TwoWayANOVA struct {
	Cells       float64 `json:"k"`
	NumeratorDF float64 `json:"q"`
}

func (TwoWayANOVA) Name() string   { return "twoWayANOVA" }
func (TwoWayANOVA) Family() Family { return FamilyF }
func (TwoWayANOVA) sealed()        {}

func (d TwoWayANOVA) Validate() error {
	if err := requireCount(d, "k", d.Cells, 2); err != nil {
		return err
	}
	return requireCount(d, "q", d.NumeratorDF, 1)
}

func (d TwoWayANOVA) MinN() float64 { return minN(d.Cells + 1) }

func (d TwoWayANOVA) Params() map[string]float64 {
	return map[string]float64{"k": d.Cells, "q": d.NumeratorDF}
}

func (d TwoWayANOVA) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	nc := Noncentrality{DF1: d.NumeratorDF, DF2: n - d.Cells, Lambda: es * es * n}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// RepeatedMeasures holds the structure shared by the repeated-measures ANOVAs:
// Groups levels of the between factor (k), Measurements levels of the
// repeated factor (m), Correlation among repeated measures (rho) and the
// nonsphericity correction Epsilon.
type RepeatedMeasures struct {
	Groups       float64 `json:"k"`
	Measurements float64 `json:"m"`
	Correlation  float64 `json:"rho"`
	Epsilon      float64 `json:"epsilon"`
}

func (r RepeatedMeasures) validate(d Design, withEpsilon bool) error {
	if err := requireCount(d, "k", r.Groups, 1); err != nil {
		return err
	}
	if err := requireCount(d, "m", r.Measurements, 2); err != nil {
		return err
	}
	if !(r.Correlation > -1 && r.Correlation < 1) {
		return apperrors.InvalidStructure("%s: correlation rho must lie in (-1, 1), got %g", d.Name(), r.Correlation)
	}
	if !withEpsilon {
		if 1+(r.Measurements-1)*r.Correlation <= 0 {
			return apperrors.InvalidStructure("%s: rho=%g is too negative for m=%g measurements",
				d.Name(), r.Correlation, r.Measurements)
		}
		return nil
	}
	if lower := 1 / (r.Measurements - 1); r.Epsilon < lower || r.Epsilon > 1 || math.IsNaN(r.Epsilon) {
		return apperrors.InvalidStructure("%s: epsilon must lie in [1/(m-1), 1] = [%g, 1], got %g",
			d.Name(), lower, r.Epsilon)
	}
	return nil
}

// BetweenRepeatedANOVA tests the between-subjects factor of a repeated-measures design
type BetweenRepeatedANOVA struct {
	RepeatedMeasures
}

func (BetweenRepeatedANOVA) Name() string   { return "betweenRepeatedANOVA" }
func (BetweenRepeatedANOVA) Family() Family { return FamilyF }
func (BetweenRepeatedANOVA) sealed()        {}

func (d BetweenRepeatedANOVA) Validate() error {
	if err := d.validate(d, false); err != nil {
		return err
	}
	return requireCount(d, "k", d.Groups, 2)
}

func (d BetweenRepeatedANOVA) MinN() float64 { return minN(d.Groups + 1) }

func (d BetweenRepeatedANOVA) Params() map[string]float64 {
	return map[string]float64{"k": d.Groups, "m": d.Measurements, "rho": d.Correlation}
}

func (d BetweenRepeatedANOVA) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	u := d.Measurements / (1 + (d.Measurements-1)*d.Correlation)
	nc := Noncentrality{DF1: d.Groups - 1, DF2: n - d.Groups, Lambda: es * es * u * n}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// WithinRepeatedANOVA tests the within-subjects factor of a repeated-measures design
type WithinRepeatedANOVA struct {
	RepeatedMeasures
}

func (WithinRepeatedANOVA) Name() string   { return "withinRepeatedANOVA" }
func (WithinRepeatedANOVA) Family() Family { return FamilyF }
func (WithinRepeatedANOVA) sealed()        {}

func (d WithinRepeatedANOVA) Validate() error { return d.validate(d, true) }
func (d WithinRepeatedANOVA) MinN() float64   { return minN(d.Groups + 1) }

func (d WithinRepeatedANOVA) Params() map[string]float64 {
	return map[string]float64{"k": d.Groups, "m": d.Measurements, "rho": d.Correlation, "epsilon": d.Epsilon}
}

func (d WithinRepeatedANOVA) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	m, eps := d.Measurements, d.Epsilon
	u := m / (1 - d.Correlation)
	nc := Noncentrality{
		DF1:    (m - 1) * eps,
		DF2:    (n - d.Groups) * (m - 1) * eps,
		Lambda: es * es * u * n * eps,
	}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// WithinBetweenRepeatedANOVA tests the within-between interaction of a
// repeated-measures design
type WithinBetweenRepeatedANOVA struct {
	RepeatedMeasures
}

func (WithinBetweenRepeatedANOVA) Name() string   { return "withinBetweenRepeatedANOVA" }
func (WithinBetweenRepeatedANOVA) Family() Family { return FamilyF }
func (WithinBetweenRepeatedANOVA) sealed()        {}

func (d WithinBetweenRepeatedANOVA) Validate() error {
	if err := d.validate(d, true); err != nil {
		return err
	}
	return requireCount(d, "k", d.Groups, 2)
}

func (d WithinBetweenRepeatedANOVA) MinN() float64 { return minN(d.Groups + 1) }

func (d WithinBetweenRepeatedANOVA) Params() map[string]float64 {
	return map[string]float64{"k": d.Groups, "m": d.Measurements, "rho": d.Correlation, "epsilon": d.Epsilon}
}

func (d WithinBetweenRepeatedANOVA) Noncentrality(es, n float64) (Noncentrality, error) {
	if err := checkInputs(es, n); err != nil {
		return Noncentrality{}, err
	}
	k, m, eps := d.Groups, d.Measurements, d.Epsilon
	u := m / (1 - d.Correlation)
	nc := Noncentrality{
		DF1:    (k - 1) * (m - 1) * eps,
		DF2:    (n - k) * (m - 1) * eps,
		Lambda: es * es * u * n * eps,
	}
	return nc, checkDF(d, n, nc.DF1, nc.DF2)
}

// ============================================================================
// HELPERS
// ============================================================================

func checkInputs(es, n float64) error {
	if math.IsNaN(es) || es < 0 || math.IsInf(es, 0) {
		return apperrors.DomainError("effect size must be finite and non-negative, got %g", es)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return apperrors.DomainError("sample size must be finite, got %g", n)
	}
	return nil
}

// checkDF fails when the design leaves no degrees of freedom at sample size n
func checkDF(d Design, n, df1, df2 float64) error {
	if df1 <= 0 || df2 <= 0 {
		return apperrors.InvalidStructure("%s: N=%g leaves non-positive degrees of freedom (%g, %g); need N >= %g",
			d.Name(), n, df1, df2, d.MinN())
	}
	return nil
}

// requireCount checks that a structural parameter is a whole number >= min
func requireCount(d Design, field string, v, min float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return apperrors.InvalidStructure("%s: %s must be a whole number, got %g", d.Name(), field, v)
	}
	if v < min {
		return apperrors.InvalidStructure("%s: %s must be at least %g, got %g", d.Name(), field, min, v)
	}
	return nil
}

func minN(n float64) float64 {
	return math.Max(2, math.Ceil(n))
}
