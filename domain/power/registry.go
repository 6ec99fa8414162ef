package power

import (
	"sort"

	apperrors "gopower/internal/errors"
)

// Params carries structural parameters keyed by their wire names
// (k, q, p, df, nPredictors, rho, m, epsilon, allocationRatio).
type Params map[string]float64

func (p Params) require(test, field string) (float64, error) {
	v, ok := p[field]
	if !ok {
		return 0, apperrors.ValidationError(field, "required for "+test)
	}
	return v, nil
}

func (p Params) optional(field string, fallback float64) float64 {
	if v, ok := p[field]; ok {
		return v
	}
	return fallback
}

// DesignInfo describes a registered test for listings
type DesignInfo struct {
	Name     string   `json:"name"`
	Family   Family   `json:"family"`
	Required []string `json:"required"`
	Optional []string `json:"optional,omitempty"`
	Summary  string   `json:"summary"`
}

type registration struct {
	info  DesignInfo
	build func(p Params) (Design, error)
}

var registry = map[string]registration{
	"oneSampleTTest": {
		info: DesignInfo{Family: FamilyT, Summary: "Means: difference from constant (one sample case)"},
		build: func(Params) (Design, error) {
			return OneSampleTTest{}, nil
		},
	},
	"independentSamplesTTest": {
		info: DesignInfo{Family: FamilyT, Optional: []string{"allocationRatio"},
			Summary: "Means: difference between two independent means (two groups)"},
		build: func(p Params) (Design, error) {
			return IndependentSamplesTTest{AllocationRatio: p.optional("allocationRatio", 1)}, nil
		},
	},
	"oneSampleZTest": {
		info: DesignInfo{Family: FamilyZ, Summary: "Means: difference from constant, known variance"},
		build: func(Params) (Design, error) {
			return OneSampleZTest{}, nil
		},
	},
	"goodnessOfFitChisqTest": {
		info: DesignInfo{Family: FamilyChiSquare, Required: []string{"df"},
			Summary: "Goodness-of-fit tests: contingency tables"},
		build: func(p Params) (Design, error) {
			df, err := p.require("goodnessOfFitChisqTest", "df")
			if err != nil {
				return nil, err
			}
			return GoodnessOfFitChisqTest{DF: df}, nil
		},
	},
	"deviationFromZeroMultipleRegression": {
		info: DesignInfo{Family: FamilyF, Required: []string{"nPredictors"},
			Summary: "Linear multiple regression: fixed model, R² deviation from zero"},
		build: func(p Params) (Design, error) {
			n, err := p.require("deviationFromZeroMultipleRegression", "nPredictors")
			if err != nil {
				return nil, err
			}
			return DeviationFromZeroMultipleRegression{Predictors: n}, nil
		},
	},
	"increaseMultipleRegression": {
		info: DesignInfo{Family: FamilyF, Required: []string{"rho", "q"},
			Summary: "Linear multiple regression: fixed model, R² increase"},
		build: func(p Params) (Design, error) {
			rho, err := p.require("increaseMultipleRegression", "rho")
			if err != nil {
				return nil, err
			}
			q, err := p.require("increaseMultipleRegression", "q")
			if err != nil {
				return nil, err
			}
			return IncreaseMultipleRegression{TotalPredictors: rho, TestedPredictors: q}, nil
		},
	},
	"ANCOVA": {
		info: DesignInfo{Family: FamilyF, Required: []string{"k", "p"}, Optional: []string{"q"},
			Summary: "ANCOVA: fixed effects, main effects and interactions"},
		build: func(p Params) (Design, error) {
			k, err := p.require("ANCOVA", "k")
			if err != nil {
				return nil, err
			}
			cov, err := p.require("ANCOVA", "p")
			if err != nil {
				return nil, err
			}
			return ANCOVA{Groups: k, NumeratorDF: p.optional("q", k-1), Covariates: cov}, nil
		},
	},
	"oneWayANOVA": {
		info: DesignInfo{Family: FamilyF, Required: []string{"k"},
			Summary: "ANOVA: fixed effects, omnibus, one-way"},
		build: func(p Params) (Design, error) {
			k, err := p.require("oneWayANOVA", "k")
			if err != nil {
				return nil, err
			}
			return OneWayANOVA{Groups: k}, nil
		},
	},
	"twoWayANOVA": {
		info: DesignInfo{Family: FamilyF, Required: []string{"k", "q"},
			Summary: "ANOVA: fixed effects, special, main effects and interactions"},
		build: func(p Params) (Design, error) {
			k, err := p.require("twoWayANOVA", "k")
			if err != nil {
				return nil, err
			}
			q, err := p.require("twoWayANOVA", "q")
			if err != nil {
				return nil, err
			}
			return TwoWayANOVA{Cells: k, NumeratorDF: q}, nil
		},
	},
	"betweenRepeatedANOVA": {
		info: DesignInfo{Family: FamilyF, Required: []string{"k", "m", "rho"},
			Summary: "ANOVA: repeated measures, between factors"},
		build: func(p Params) (Design, error) {
			rm, err := repeatedMeasures(p, "betweenRepeatedANOVA", false)
			if err != nil {
				return nil, err
			}
			return BetweenRepeatedANOVA{RepeatedMeasures: rm}, nil
		},
	},
	"withinRepeatedANOVA": {
		info: DesignInfo{Family: FamilyF, Required: []string{"k", "m", "rho"}, Optional: []string{"epsilon"},
			Summary: "ANOVA: repeated measures, within factors"},
		build: func(p Params) (Design, error) {
			rm, err := repeatedMeasures(p, "withinRepeatedANOVA", true)
			if err != nil {
				return nil, err
			}
			return WithinRepeatedANOVA{RepeatedMeasures: rm}, nil
		},
	},
	"withinBetweenRepeatedANOVA": {
		info: DesignInfo{Family: FamilyF, Required: []string{"k", "m", "rho"}, Optional: []string{"epsilon"},
			Summary: "ANOVA: repeated measures, within-between interaction"},
		build: func(p Params) (Design, error) {
			rm, err := repeatedMeasures(p, "withinBetweenRepeatedANOVA", true)
			if err != nil {
				return nil, err
			}
			return WithinBetweenRepeatedANOVA{RepeatedMeasures: rm}, nil
		},
	},
}

func repeatedMeasures(p Params, test string, withEpsilon bool) (RepeatedMeasures, error) {
	var rm RepeatedMeasures
	var err error
	if rm.Groups, err = p.require(test, "k"); err != nil {
		return rm, err
	}
	if rm.Measurements, err = p.require(test, "m"); err != nil {
		return rm, err
	}
	if rm.Correlation, err = p.require(test, "rho"); err != nil {
		return rm, err
	}
	if withEpsilon {
		rm.Epsilon = p.optional("epsilon", 1)
	}
	return rm, nil
}

// NewDesign builds and validates the named design from structural parameters
func NewDesign(name string, p Params) (Design, error) {
	reg, ok := registry[name]
	if !ok {
		return nil, apperrors.ValidationError("test", "unknown test "+name)
	}
	d, err := reg.build(p)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Designs lists every registered test sorted by name
func Designs() []DesignInfo {
	out := make([]DesignInfo, 0, len(registry))
	for name, reg := range registry {
		info := reg.info
		info.Name = name
		if info.Required == nil {
			info.Required = []string{}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
