// Package dist evaluates the central and noncentral F, t, chi-square and
// normal distributions needed for power analysis.
//
// gonum/stat/distuv covers the central cases only; the noncentral CDFs here
// are Poisson mixtures of central ones, summed outward from the largest
// mixture weight with the incomplete beta/gamma recurrences so that each term
// after the first costs O(1).
package dist

import (
	"math"

	"gopower/domain/power"
	apperrors "gopower/internal/errors"
)

// Distribution is a (possibly noncentral) member of one test-statistic family.
// DF2 is only used by F. For t and z, Lambda is the location shift delta and
// may be negative; for F and chi2 it is the noncentrality parameter.
type Distribution struct {
	Family power.Family
	DF1    float64
	DF2    float64
	Lambda float64
	Series Series
}

// New builds the distribution of a design's statistic from its noncentrality
func New(family power.Family, nc power.Noncentrality, s Series) Distribution {
	return Distribution{Family: family, DF1: nc.DF1, DF2: nc.DF2, Lambda: nc.Lambda, Series: s}
}

// Central returns the null distribution with the same degrees of freedom
func (d Distribution) Central() Distribution {
	d.Lambda = 0
	return d
}

func (d Distribution) validate() error {
	switch d.Family {
	case power.FamilyF:
		if !(d.DF1 > 0) || !(d.DF2 > 0) {
			return apperrors.DomainError("F distribution needs positive degrees of freedom, got (%g, %g)", d.DF1, d.DF2)
		}
		if !(d.Lambda >= 0) || math.IsInf(d.Lambda, 0) {
			return apperrors.DomainError("noncentrality must be finite and non-negative, got %g", d.Lambda)
		}
	case power.FamilyChiSquare:
		if !(d.DF1 > 0) {
			return apperrors.DomainError("chi-square distribution needs positive degrees of freedom, got %g", d.DF1)
		}
		if !(d.Lambda >= 0) || math.IsInf(d.Lambda, 0) {
			return apperrors.DomainError("noncentrality must be finite and non-negative, got %g", d.Lambda)
		}
	case power.FamilyT:
		if !(d.DF1 > 0) {
			return apperrors.DomainError("t distribution needs positive degrees of freedom, got %g", d.DF1)
		}
		if math.IsNaN(d.Lambda) || math.IsInf(d.Lambda, 0) {
			return apperrors.DomainError("noncentrality must be finite, got %g", d.Lambda)
		}
	case power.FamilyZ:
		if math.IsNaN(d.Lambda) || math.IsInf(d.Lambda, 0) {
			return apperrors.DomainError("shift must be finite, got %g", d.Lambda)
		}
	default:
		return apperrors.DomainError("unknown distribution family %q", d.Family)
	}
	return nil
}

// CDF returns P(X <= x)
func (d Distribution) CDF(x float64) (float64, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(x) {
		return 0, apperrors.DomainError("cannot evaluate %s CDF at NaN", d.Family)
	}
	s := d.Series.orDefault()
	switch d.Family {
	case power.FamilyF:
		return noncentralFCDF(x, d.DF1, d.DF2, d.Lambda, s), nil
	case power.FamilyChiSquare:
		return noncentralChiSquareCDF(x, d.DF1, d.Lambda, s), nil
	case power.FamilyT:
		return noncentralTCDF(x, d.DF1, d.Lambda, s), nil
	default:
		return normalCDF(x - d.Lambda), nil
	}
}

// Survival returns P(X > x)
func (d Distribution) Survival(x float64) (float64, error) {
	p, err := d.CDF(x)
	if err != nil {
		return 0, err
	}
	return clamp01(1 - p), nil
}

// UpperQuantile returns the critical value x with P(X > x) = p under the
// central distribution. It is defined only for central distributions.
func (d Distribution) UpperQuantile(p float64) (float64, error) {
	if err := d.quantileArgs(p); err != nil {
		return 0, err
	}
	switch d.Family {
	case power.FamilyF:
		return fUpperQuantile(p, d.DF1, d.DF2), nil
	case power.FamilyChiSquare:
		return chiSquareUpperQuantile(p, d.DF1), nil
	case power.FamilyT:
		return tUpperQuantile(p, d.DF1), nil
	default:
		return normalUpperQuantile(p), nil
	}
}

// Quantile returns x with P(X <= x) = p under the central distribution
func (d Distribution) Quantile(p float64) (float64, error) {
	if err := d.quantileArgs(p); err != nil {
		return 0, err
	}
	switch d.Family {
	case power.FamilyF:
		return fQuantile(p, d.DF1, d.DF2), nil
	case power.FamilyChiSquare:
		return chiSquareQuantile(p, d.DF1), nil
	case power.FamilyT:
		return -tUpperQuantile(p, d.DF1), nil
	default:
		return -normalUpperQuantile(p), nil
	}
}

func (d Distribution) quantileArgs(p float64) error {
	if err := d.validate(); err != nil {
		return err
	}
	if d.Lambda != 0 {
		return apperrors.DomainError("quantiles are only available for central distributions")
	}
	if !(p > 0 && p < 1) {
		return apperrors.DomainError("probability must lie in (0, 1), got %g", p)
	}
	return nil
}

// ============================================================================
// FREE-FUNCTION FORMS
// ============================================================================

// CentralCDF returns P(X <= x) for the central distribution of family with
// the given degrees of freedom (none for z, one for t and chi2, two for F)
func CentralCDF(family power.Family, x float64, df ...float64) (float64, error) {
	d, err := fromDF(family, 0, df)
	if err != nil {
		return 0, err
	}
	return d.CDF(x)
}

// NoncentralCDF returns P(X <= x) for the noncentral distribution of family
func NoncentralCDF(family power.Family, x, lambda float64, df ...float64) (float64, error) {
	d, err := fromDF(family, lambda, df)
	if err != nil {
		return 0, err
	}
	return d.CDF(x)
}

// CentralQuantile inverts CentralCDF
func CentralQuantile(family power.Family, p float64, df ...float64) (float64, error) {
	d, err := fromDF(family, 0, df)
	if err != nil {
		return 0, err
	}
	return d.Quantile(p)
}

func fromDF(family power.Family, lambda float64, df []float64) (Distribution, error) {
	want := map[power.Family]int{power.FamilyF: 2, power.FamilyT: 1, power.FamilyChiSquare: 1, power.FamilyZ: 0}
	n, ok := want[family]
	if !ok {
		return Distribution{}, apperrors.DomainError("unknown distribution family %q", family)
	}
	if len(df) != n {
		return Distribution{}, apperrors.DomainError("%s distribution takes %d degrees of freedom, got %d", family, n, len(df))
	}
	d := Distribution{Family: family, Lambda: lambda}
	if n > 0 {
		d.DF1 = df[0]
	}
	if n > 1 {
		d.DF2 = df[1]
	}
	return d, nil
}
