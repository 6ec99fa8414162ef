package power

import (
	"fmt"
	"strings"
)

// ============================================================================
// ENUMERATIONS
// ============================================================================

// Family identifies the sampling distribution of a test statistic
type Family string

const (
	FamilyF         Family = "F"
	FamilyT         Family = "t"
	FamilyChiSquare Family = "chi2"
	FamilyZ         Family = "z"
)

// Symmetric reports whether the family's null distribution is symmetric
// around zero, in which case the tail configuration changes the critical value.
func (f Family) Symmetric() bool {
	return f == FamilyT || f == FamilyZ
}

// Tail selects one- or two-sided rejection regions
type Tail int

const (
	OneTailed Tail = 1
	TwoTailed Tail = 2
)

func (t Tail) String() string {
	switch t {
	case OneTailed:
		return "one-tailed"
	case TwoTailed:
		return "two-tailed"
	default:
		return fmt.Sprintf("tail(%d)", int(t))
	}
}

// Valid reports whether t is one of the supported tail configurations
func (t Tail) Valid() bool {
	return t == OneTailed || t == TwoTailed
}

// Target is the unknown quantity an analysis solves for
type Target string

const (
	TargetSampleSize Target = "n"
	TargetAlpha      Target = "alpha"
	TargetPower      Target = "power"
	TargetEffectSize Target = "es"
)

// Targets lists every analysis target in a stable order
var Targets = []Target{TargetSampleSize, TargetAlpha, TargetPower, TargetEffectSize}

// ParseTarget accepts the short wire names as well as descriptive aliases
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "samplesize", "sample_size", "sample-size":
		return TargetSampleSize, nil
	case "alpha":
		return TargetAlpha, nil
	case "power":
		return TargetPower, nil
	case "es", "effectsize", "effect_size", "effect-size":
		return TargetEffectSize, nil
	}
	return "", fmt.Errorf("unknown analysis target %q", s)
}

// ============================================================================
// REQUEST / RESULT
// ============================================================================

// Request asks for the one quantity named by Target given the other three.
// The field matching Target is ignored.
type Request struct {
	Design     Design
	Tail       Tail
	Target     Target
	N          *float64 // total sample size, >= 2
	Alpha      *float64 // significance level, (0, 1)
	Power      *float64 // 1 - beta, (0, 1)
	EffectSize *float64 // family-specific standardized effect, >= 0
}

// Float returns a pointer to v, for building requests inline
func Float(v float64) *float64 {
	return &v
}

// Noncentrality holds the degrees of freedom and noncentrality parameter of a
// design evaluated at a particular effect size and sample size.
// DF2 is zero for families with a single df (t, chi2) and both are zero for z.
// For t and z families Lambda is the shift delta of the statistic.
type Noncentrality struct {
	DF1    float64 `json:"df1"`
	DF2    float64 `json:"df2"`
	Lambda float64 `json:"lambda"`
}

// Result is the outcome of a successful analysis
type Result struct {
	Test   string `json:"test"`
	Family Family `json:"family"`
	Tail   Tail   `json:"tail"`
	Target Target `json:"target"`

	// Value is the reported answer; for sample size it is the smallest
	// integer N that reaches the requested power.
	Value float64 `json:"value"`
	// Exact is the continuous solution before rounding.
	Exact float64 `json:"exact"`

	N          float64 `json:"n"`
	Alpha      float64 `json:"alpha"`
	Power      float64 `json:"power"`
	EffectSize float64 `json:"es"`

	AchievedPower float64       `json:"achieved_power"`
	CriticalValue float64       `json:"critical_value"`
	Noncentrality Noncentrality `json:"noncentrality"`
	Iterations    int           `json:"iterations"`
}
