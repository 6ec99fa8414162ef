package dist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mathext"

	"gopower/domain/power"
	apperrors "gopower/internal/errors"
)

// Reference values were produced by direct (non-recurrence) summation of the
// same mixtures with an independent continued-fraction incomplete beta/gamma.

func TestNoncentralCDF_ReferenceValues(t *testing.T) {
	tests := []struct {
		name   string
		family power.Family
		x      float64
		lambda float64
		df     []float64
		want   float64
	}{
		{"F at ANOVA critical value", power.FamilyF, 3.09, 6.25, []float64{2, 96}, 0.41141747518672334},
		{"F far in the lower tail", power.FamilyF, 1.2, 40, []float64{3, 20}, 3.4193762299936072e-06},
		{"chi2 at GOF critical value", power.FamilyChiSquare, 11.07, 19.8, []float64{5}, 0.049776213594087564},
		{"chi2 small lambda", power.FamilyChiSquare, 3, 0.5, []float64{4}, 0.383219303904306},
		{"t positive shift", power.FamilyT, 1.5, 1, []float64{10}, 0.6695168482153554},
		{"t negative argument", power.FamilyT, -1, 2, []float64{10}, 0.0018164334104298074},
		{"t negative shift", power.FamilyT, 2.5, -0.5, []float64{30}, 0.9977501983422585},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NoncentralCDF(tt.family, tt.x, tt.lambda, tt.df...)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestCentralCDF_ReferenceValues(t *testing.T) {
	got, err := CentralCDF(power.FamilyF, 3, 2, 96)
	require.NoError(t, err)
	assert.InDelta(t, 0.9455232812341989, got, 1e-12)

	got, err = CentralCDF(power.FamilyT, 2, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.9633059826146297, got, 1e-12)

	got, err = CentralCDF(power.FamilyChiSquare, 6, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.6937810815867215, got, 1e-12)

	got, err = CentralCDF(power.FamilyZ, 1.959963984540054)
	require.NoError(t, err)
	assert.InDelta(t, 0.975, got, 1e-12)
}

func TestUpperQuantile_ReferenceValues(t *testing.T) {
	tests := []struct {
		name string
		d    Distribution
		p    float64
		want float64
	}{
		{"F(2, 96)", Distribution{Family: power.FamilyF, DF1: 2, DF2: 96}, 0.05, 3.0911912588572936},
		{"t(49) two-sided 5%", Distribution{Family: power.FamilyT, DF1: 49}, 0.025, 2.0095752371292397},
		{"chi2(5)", Distribution{Family: power.FamilyChiSquare, DF1: 5}, 0.05, 11.070497693516355},
		{"z", Distribution{Family: power.FamilyZ}, 0.025, 1.959963984540054},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.d.UpperQuantile(tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-8)

			surv, err := tt.d.Survival(got)
			require.NoError(t, err)
			assert.InDelta(t, tt.p, surv, 1e-10)
		})
	}
}

func TestUpperQuantile_SmallAlphaKeepsPrecision(t *testing.T) {
	for _, d := range []Distribution{
		{Family: power.FamilyF, DF1: 3, DF2: 40},
		{Family: power.FamilyT, DF1: 20},
		{Family: power.FamilyChiSquare, DF1: 4},
		{Family: power.FamilyZ},
	} {
		x, err := d.UpperQuantile(1e-9)
		require.NoError(t, err)
		surv, err := d.Survival(x)
		require.NoError(t, err)
		assert.InEpsilon(t, 1e-9, surv, 1e-4, "family %s", d.Family)
	}
}

func TestQuantile_InvertsCDF(t *testing.T) {
	for _, p := range []float64{0.01, 0.3, 0.5, 0.9, 0.999} {
		for _, family := range []power.Family{power.FamilyF, power.FamilyT, power.FamilyChiSquare, power.FamilyZ} {
			var df []float64
			switch family {
			case power.FamilyF:
				df = []float64{4, 25}
			case power.FamilyT, power.FamilyChiSquare:
				df = []float64{7}
			}
			x, err := CentralQuantile(family, p, df...)
			require.NoError(t, err)
			got, err := CentralCDF(family, x, df...)
			require.NoError(t, err)
			assert.InDelta(t, p, got, 1e-9, "family %s p=%g", family, p)
		}
	}
}

func TestCDF_ReducesToCentralAtZeroNoncentrality(t *testing.T) {
	for _, d := range []Distribution{
		{Family: power.FamilyF, DF1: 3, DF2: 17},
		{Family: power.FamilyT, DF1: 9},
		{Family: power.FamilyChiSquare, DF1: 6},
	} {
		for _, x := range []float64{0.3, 1, 2.5, 8} {
			central := d.Central()
			a, err := central.CDF(x)
			require.NoError(t, err)

			// a vanishing but nonzero lambda goes through the mixture path
			d.Lambda = 1e-12
			b, err := d.CDF(x)
			require.NoError(t, err)
			assert.InDelta(t, a, b, 1e-10, "family %s x=%g", d.Family, x)
		}
	}
}

func TestCDF_MonotoneInNoncentrality(t *testing.T) {
	for _, family := range []power.Family{power.FamilyF, power.FamilyChiSquare, power.FamilyT} {
		prev := 1.0
		for _, lambda := range []float64{0, 0.5, 2, 5, 10, 25, 60, 150} {
			d := Distribution{Family: family, DF1: 5, DF2: 30, Lambda: lambda}
			p, err := d.CDF(4)
			require.NoError(t, err)
			assert.LessOrEqual(t, p, prev+1e-12, "family %s lambda=%g", family, lambda)
			prev = p
		}
	}
}

func TestCDF_LargeNoncentrality(t *testing.T) {
	// lambda in the thousands puts the Poisson mode far from zero
	d := Distribution{Family: power.FamilyChiSquare, DF1: 3, Lambda: 4000}
	p, err := d.CDF(4003)
	require.NoError(t, err)
	// mean k+lambda, variance 2(k+2 lambda): the mean sits near the median
	assert.InDelta(t, 0.5, p, 0.02)

	f := Distribution{Family: power.FamilyF, DF1: 4, DF2: 200, Lambda: 3000}
	p, err = f.CDF(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, p, 1e-12)
}

func TestCDF_BeyondMixtureLimit(t *testing.T) {
	// chi2: the mean sits near the median once skewness has vanished
	c := Distribution{Family: power.FamilyChiSquare, DF1: 3, Lambda: 1e8}
	p, err := c.CDF(3 + 1e8)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-3)

	// F: the numerator is concentrated, so the denominator chi2(d2) sets the CDF
	f := Distribution{Family: power.FamilyF, DF1: 4, DF2: 200, Lambda: 1e9}
	p, err = f.CDF((4 + 1e9) / 4)
	require.NoError(t, err)
	assert.InDelta(t, mathext.GammaIncRegComp(100, 100), p, 1e-4)

	// t: at t = delta the event is V >= nu up to O(1/delta)
	tt := Distribution{Family: power.FamilyT, DF1: 30, Lambda: 1e4}
	p, err = tt.CDF(1e4)
	require.NoError(t, err)
	assert.InDelta(t, mathext.GammaIncRegComp(15, 15), p, 1e-4)

	p, err = tt.CDF(-1e4)
	require.NoError(t, err)
	assert.InDelta(t, 0, p, 1e-12)
}

func TestCDF_ContinuousAcrossMixtureLimit(t *testing.T) {
	at := func(lambda float64) float64 {
		d := Distribution{Family: power.FamilyChiSquare, DF1: 5, Lambda: lambda}
		p, err := d.CDF(5 + lambda + math.Sqrt(2*(5+2*lambda)))
		require.NoError(t, err)
		return p
	}
	below, above := at(2*mixtureLimit*0.999), at(2*mixtureLimit*1.001)
	assert.InDelta(t, below, above, 1e-4)
	assert.InDelta(t, normalCDF(1), above, 1e-3)
}

func TestCDF_HugeNoncentralityStaysFinite(t *testing.T) {
	for _, lambda := range []float64{1e20, 1e100, 1e300} {
		for _, d := range []Distribution{
			{Family: power.FamilyF, DF1: 2, DF2: 1, Lambda: lambda},
			{Family: power.FamilyChiSquare, DF1: 4, Lambda: lambda},
			{Family: power.FamilyT, DF1: 1, Lambda: lambda},
			{Family: power.FamilyT, DF1: 1, Lambda: -lambda},
		} {
			p, err := d.CDF(200)
			require.NoError(t, err)
			require.False(t, math.IsNaN(p), "family %s lambda=%g", d.Family, d.Lambda)
			if d.Lambda > 0 {
				assert.InDelta(t, 0, p, 1e-12, "family %s lambda=%g", d.Family, d.Lambda)
			} else {
				assert.InDelta(t, 1, p, 1e-12, "family %s lambda=%g", d.Family, d.Lambda)
			}
		}
	}
}

func TestWeights_LogMatchesDirectForm(t *testing.T) {
	for _, c := range []float64{1, 1.5} {
		w := weights{mu: 20, c: c}
		for j := 0.0; j <= 60; j++ {
			lg, _ := math.Lgamma(j + c)
			direct := -w.mu + j*math.Log(w.mu) - lg
			assert.InDelta(t, direct, w.log(j), 1e-10, "c=%g j=%g", c, j)
		}
	}

	// at the mode of a huge mean the weight is 1/sqrt(2 pi mu), which the
	// direct form loses to cancellation
	w := weights{mu: 1e12, c: 1}
	assert.InDelta(t, -0.5*math.Log(2*math.Pi*1e12), w.log(1e12), 1e-9)
}

func TestWeights_SumToOne(t *testing.T) {
	w := weights{mu: 1e6, c: 1}
	sd := math.Sqrt(w.mu)
	sum := 0.0
	for j := w.mu - 10*sd; j <= w.mu+10*sd; j++ {
		sum += math.Exp(w.log(j))
	}
	assert.InDelta(t, 1, sum, 1e-9)
}

func TestCDF_SupportEdges(t *testing.T) {
	f := Distribution{Family: power.FamilyF, DF1: 2, DF2: 10, Lambda: 3}
	p, err := f.CDF(-1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	p, err = f.CDF(math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	tt := Distribution{Family: power.FamilyT, DF1: 5, Lambda: 1}
	p, err = tt.CDF(math.Inf(-1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	p, err = tt.CDF(0)
	require.NoError(t, err)
	assert.InDelta(t, normalCDF(-1), p, 1e-15)
}

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"non-positive F df", func() error {
			_, err := Distribution{Family: power.FamilyF, DF1: 0, DF2: 5}.CDF(1)
			return err
		}},
		{"negative lambda", func() error {
			_, err := Distribution{Family: power.FamilyChiSquare, DF1: 2, Lambda: -1}.CDF(1)
			return err
		}},
		{"NaN argument", func() error {
			_, err := Distribution{Family: power.FamilyT, DF1: 3}.CDF(math.NaN())
			return err
		}},
		{"probability out of range", func() error {
			_, err := Distribution{Family: power.FamilyZ}.UpperQuantile(1)
			return err
		}},
		{"noncentral quantile", func() error {
			_, err := Distribution{Family: power.FamilyT, DF1: 3, Lambda: 1}.UpperQuantile(0.05)
			return err
		}},
		{"wrong df count", func() error {
			_, err := CentralCDF(power.FamilyF, 1, 3)
			return err
		}},
		{"unknown family", func() error {
			_, err := CentralCDF(power.Family("beta"), 1)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrDomain)
		})
	}
}

func TestSeries_MaxTermsCapsWork(t *testing.T) {
	d := Distribution{Family: power.FamilyChiSquare, DF1: 3, Lambda: 50, Series: Series{MaxTerms: 1}}
	p, err := d.CDF(40)
	require.NoError(t, err)
	// one term is the modal Poisson weight times a CDF bounded by 1
	assert.Less(t, p, 0.1)
	assert.GreaterOrEqual(t, p, 0.0)
}
