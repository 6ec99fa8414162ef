package power

import (
	"math"

	domain "gopower/domain/power"
	"gopower/internal/dist"
	apperrors "gopower/internal/errors"
)

// Evaluation is the power of a design at fixed alpha, N and effect size
type Evaluation struct {
	Power         float64              `json:"power"`
	CriticalValue float64              `json:"critical_value"`
	Noncentrality domain.Noncentrality `json:"noncentrality"`
}

// AchievedPower is the probability that the test rejects at level alpha when
// the true effect is es and the total sample size is n.
//
// The critical value comes from the central distribution of the design's
// statistic. Two-tailed t and z tests split alpha across both tails and count
// rejections in either one, so at es = 0 power equals alpha exactly.
func AchievedPower(design domain.Design, tail domain.Tail, alpha, n, es float64, series dist.Series) (Evaluation, error) {
	if design == nil {
		return Evaluation{}, apperrors.DomainError("no design given")
	}
	if !(alpha > 0 && alpha < 1) {
		return Evaluation{}, apperrors.DomainError("alpha must lie in (0, 1), got %g", alpha)
	}

	nc, err := design.Noncentrality(es, n)
	if err != nil {
		return Evaluation{}, err
	}
	d := dist.New(design.Family(), nc, series)
	ev := Evaluation{Noncentrality: nc}

	twoSided := design.Family().Symmetric() && tail == domain.TwoTailed
	tailAlpha := alpha
	if twoSided {
		tailAlpha = alpha / 2
	}

	ev.CriticalValue, err = d.Central().UpperQuantile(tailAlpha)
	if err != nil {
		return Evaluation{}, err
	}

	// es is finite, so an infinite shift means es*es*n overflowed and the
	// statistic clears any finite critical value
	if math.IsInf(nc.Lambda, 1) {
		ev.Noncentrality.Lambda = math.MaxFloat64
		ev.Power = 1
		return ev, nil
	}

	upper, err := d.Survival(ev.CriticalValue)
	if err != nil {
		return Evaluation{}, err
	}
	ev.Power = upper

	if twoSided {
		lower, err := d.CDF(-ev.CriticalValue)
		if err != nil {
			return Evaluation{}, err
		}
		ev.Power += lower
	}

	ev.Power = math.Max(0, math.Min(1, ev.Power))
	return ev, nil
}
