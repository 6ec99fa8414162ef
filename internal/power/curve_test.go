package power

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "gopower/domain/power"
	apperrors "gopower/internal/errors"
)

func TestCurve_PowerAgainstSampleSize(t *testing.T) {
	a := NewAnalyzer(Options{CurveWorkers: 3})
	d := mustDesign(t, "oneSampleTTest", nil)

	c, err := a.Curve(context.Background(), CurveRequest{
		Request: powerRequest(d, domain.TwoTailed, 0, 0.05, 0.5),
		Axis:    domain.TargetSampleSize,
		From:    10,
		To:      100,
		Points:  10,
	})
	require.NoError(t, err)
	require.Len(t, c.Points, 10)
	assert.Equal(t, "oneSampleTTest", c.Test)
	assert.Equal(t, domain.TargetPower, c.Target)
	assert.Equal(t, domain.TargetSampleSize, c.Axis)

	assert.Equal(t, 10.0, c.Points[0].X)
	assert.Equal(t, 50.0, c.Points[4].X)
	assert.Equal(t, 100.0, c.Points[9].X)
	assert.InDelta(t, 0.9338975528613774, c.Points[4].Y, 1e-6)

	for i := 1; i < len(c.Points); i++ {
		assert.Empty(t, c.Points[i].Error)
		assert.Greater(t, c.Points[i].Y, c.Points[i-1].Y)
	}

	assert.Equal(t, 10, c.Summary.Valid)
	assert.Equal(t, c.Points[0].Y, c.Summary.Min)
	assert.Equal(t, c.Points[9].Y, c.Summary.Max)
	assert.Greater(t, c.Summary.Median, c.Summary.Min)
}

func TestCurve_SampleSizeAgainstPowerMarksInfeasiblePoints(t *testing.T) {
	a := NewAnalyzer(Options{SampleSizeCap: 200})
	d := mustDesign(t, "oneWayANOVA", domain.Params{"k": 3})

	c, err := a.Curve(context.Background(), CurveRequest{
		Request: sampleSizeRequest(d, domain.OneTailed, 0.05, 0, 0.25),
		Axis:    domain.TargetPower,
		From:    0.5,
		To:      0.95,
		Points:  4,
	})
	require.NoError(t, err)

	// 0.95 needs N=251, above the cap
	last := c.Points[3]
	assert.NotEmpty(t, last.Error)
	assert.Equal(t, 0.0, last.Y)
	assert.Equal(t, 3, c.Summary.Valid)

	for _, p := range c.Points[:3] {
		assert.Empty(t, p.Error)
		assert.GreaterOrEqual(t, p.Y, 4.0)
	}
	assert.Less(t, c.Points[0].Y, c.Points[2].Y)
}

func TestCurve_Validation(t *testing.T) {
	a := NewAnalyzer(Options{CurveMaxPoints: 50})
	d := mustDesign(t, "oneSampleZTest", nil)
	base := powerRequest(d, domain.TwoTailed, 0, 0.05, 0.5)

	tests := []struct {
		name  string
		req   CurveRequest
		field string
	}{
		{"axis equals target", CurveRequest{Request: base, Axis: domain.TargetPower, From: 0.1, To: 0.9, Points: 5}, "axis"},
		{"unknown axis", CurveRequest{Request: base, Axis: "beta", From: 1, To: 2, Points: 5}, "axis"},
		{"too few points", CurveRequest{Request: base, Axis: domain.TargetSampleSize, From: 10, To: 20, Points: 1}, "points"},
		{"too many points", CurveRequest{Request: base, Axis: domain.TargetSampleSize, From: 10, To: 20, Points: 51}, "points"},
		{"empty range", CurveRequest{Request: base, Axis: domain.TargetSampleSize, From: 10, To: 10, Points: 5}, "to"},
		{"bad fixed quantity", CurveRequest{Request: powerRequest(d, domain.TwoTailed, 0, 2, 0.5),
			Axis: domain.TargetSampleSize, From: 10, To: 20, Points: 5}, "alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Curve(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestCurve_Cancelled(t *testing.T) {
	a := NewAnalyzer(Options{CurveWorkers: 1})
	d := mustDesign(t, "oneSampleTTest", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Curve(ctx, CurveRequest{
		Request: powerRequest(d, domain.TwoTailed, 0, 0.05, 0.5),
		Axis:    domain.TargetSampleSize,
		From:    10,
		To:      100,
		Points:  20,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
