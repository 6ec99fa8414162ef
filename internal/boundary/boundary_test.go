package boundary

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	domain "gopower/domain/power"
	apperrors "gopower/internal/errors"
	"gopower/internal/power"
)

func newBoundary() *Boundary {
	return New(power.NewAnalyzer(power.Options{}))
}

func TestDecode_StringAndNumberFields(t *testing.T) {
	asStrings := []byte(`{"test":"ANCOVA","analysis":"power","tail":"1","n":"100","alpha":"0.05","es":"0.25","k":"3","p":"1"}`)
	asNumbers := []byte(`{"test":"ANCOVA","analysis":"power","tail":1,"n":100,"alpha":0.05,"es":0.25,"k":3,"p":1}`)

	for _, body := range [][]byte{asStrings, asNumbers} {
		req, err := Decode(body)
		require.NoError(t, err)
		assert.Equal(t, domain.TargetPower, req.Target)
		assert.Equal(t, domain.OneTailed, req.Tail)
		require.NotNil(t, req.N)
		assert.Equal(t, 100.0, *req.N)
		assert.Equal(t, 0.05, *req.Alpha)
		assert.Equal(t, 0.25, *req.EffectSize)
		assert.Nil(t, req.Power)
		assert.Equal(t, domain.ANCOVA{Groups: 3, NumeratorDF: 2, Covariates: 1}, req.Design)
	}
}

func TestDecode_EmptyStringIsMissing(t *testing.T) {
	req, err := Decode([]byte(`{"test":"oneSampleTTest","analysis":"n","tail":2,"n":"","alpha":0.05,"power":0.8,"es":0.5}`))
	require.NoError(t, err)
	assert.Nil(t, req.N)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"not JSON", `{"test":`, apperrors.CodeInvalidInput, ""},
		{"not an object", `[1,2]`, apperrors.CodeInvalidInput, ""},
		{"missing test", `{"analysis":"power"}`, apperrors.CodeValidationError, "test"},
		{"unknown test", `{"test":"sign","analysis":"power"}`, apperrors.CodeValidationError, "test"},
		{"missing analysis", `{"test":"oneSampleTTest"}`, apperrors.CodeValidationError, "analysis"},
		{"bad analysis", `{"test":"oneSampleTTest","analysis":"beta"}`, apperrors.CodeValidationError, "analysis"},
		{"non-numeric string", `{"test":"oneSampleTTest","analysis":"power","n":"many"}`, apperrors.CodeValidationError, "n"},
		{"boolean", `{"test":"oneSampleTTest","analysis":"power","alpha":true}`, apperrors.CodeValidationError, "alpha"},
		{"fractional tail", `{"test":"oneSampleTTest","analysis":"power","tail":1.5}`, apperrors.CodeValidationError, "tail"},
		{"missing structure", `{"test":"oneWayANOVA","analysis":"power"}`, apperrors.CodeValidationError, "k"},
		{"bad structure", `{"test":"oneWayANOVA","analysis":"power","k":"1"}`, apperrors.CodeInvalidStructure, ""},
		{"zero q", `{"test":"ANCOVA","analysis":"power","k":3,"p":1,"q":0}`, apperrors.CodeInvalidStructure, ""},
		{"zero allocation ratio", `{"test":"independentSamplesTTest","analysis":"power","allocationRatio":0}`, apperrors.CodeInvalidStructure, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestCompute_Success(t *testing.T) {
	out := newBoundary().Compute([]byte(`{"test":"ANCOVA","analysis":"n","tail":"1","alpha":"0.05","power":"0.95","es":"0.25","k":"3","p":"1","q":"2"}`))

	require.True(t, json.Valid(out))
	assert.True(t, gjson.GetBytes(out, "ok").Bool())
	assert.Equal(t, 251.0, gjson.GetBytes(out, "result.value").Float())
	assert.Equal(t, "n", gjson.GetBytes(out, "result.target").String())
	assert.Equal(t, "F", gjson.GetBytes(out, "result.family").String())
	assert.Equal(t, 2.0, gjson.GetBytes(out, "result.noncentrality.df1").Float())
	assert.Equal(t, 247.0, gjson.GetBytes(out, "result.noncentrality.df2").Float())
	assert.GreaterOrEqual(t, gjson.GetBytes(out, "result.achieved_power").Float(), 0.95)
	assert.False(t, gjson.GetBytes(out, "error").Exists())
}

func TestCompute_ErrorEnvelope(t *testing.T) {
	b := newBoundary()

	out := b.Compute([]byte(`{"test":"oneSampleTTest","analysis":"n","tail":2,"alpha":0.05,"power":0.8,"es":0}`))
	assert.False(t, gjson.GetBytes(out, "ok").Bool())
	assert.Equal(t, apperrors.CodeInfeasible, gjson.GetBytes(out, "error.code").String())
	assert.NotEmpty(t, gjson.GetBytes(out, "error.message").String())
	assert.False(t, gjson.GetBytes(out, "result").Exists())

	out = b.Compute([]byte(`{"test":"oneSampleTTest","analysis":"power","tail":2,"n":50,"alpha":2,"es":0.5}`))
	assert.Equal(t, apperrors.CodeValidationError, gjson.GetBytes(out, "error.code").String())
	assert.Equal(t, "alpha", gjson.GetBytes(out, "error.field").String())
}

func TestCompute_HugeEffectSizeSaturates(t *testing.T) {
	b := newBoundary()
	for _, body := range []string{
		`{"test":"ANCOVA","analysis":"power","tail":1,"n":100,"alpha":0.05,"es":1e200,"k":3,"p":1}`,
		`{"test":"goodnessOfFitChisqTest","analysis":"power","tail":1,"n":100,"alpha":0.05,"es":"1e160","df":4}`,
		`{"test":"oneSampleTTest","analysis":"power","tail":2,"n":100,"alpha":0.05,"es":1e100}`,
	} {
		out := b.Compute([]byte(body))
		require.True(t, gjson.GetBytes(out, "ok").Bool(), string(out))
		assert.Equal(t, 1.0, gjson.GetBytes(out, "result.value").Float(), body)
	}
}

func TestEncodeError_UncodedIsInternal(t *testing.T) {
	out := EncodeError(assert.AnError)
	assert.Equal(t, apperrors.CodeInternalError, gjson.GetBytes(out, "error.code").String())
}

func TestCurve_Decoded(t *testing.T) {
	c, err := newBoundary().Curve(context.Background(),
		[]byte(`{"test":"oneSampleZTest","analysis":"power","tail":2,"alpha":0.05,"es":"0.5","axis":"n","from":"10","to":"40","points":"4"}`))
	require.NoError(t, err)
	require.Len(t, c.Points, 4)
	assert.Equal(t, []float64{10, 20, 30, 40}, []float64{c.Points[0].X, c.Points[1].X, c.Points[2].X, c.Points[3].X})
	assert.Equal(t, 4, c.Summary.Valid)
}

func TestDecodeCurve_Errors(t *testing.T) {
	base := `"test":"oneSampleZTest","analysis":"power","tail":2,"alpha":0.05,"es":0.5`
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing axis", `{` + base + `,"from":1,"to":2,"points":3}`, "axis"},
		{"bad axis", `{` + base + `,"axis":"x","from":1,"to":2,"points":3}`, "axis"},
		{"missing from", `{` + base + `,"axis":"n","to":2,"points":3}`, "from"},
		{"fractional points", `{` + base + `,"axis":"n","from":1,"to":2,"points":2.5}`, "points"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCurve([]byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}
