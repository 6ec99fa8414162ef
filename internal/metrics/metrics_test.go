package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopower/internal/errors"
)

func TestObserveAnalysis(t *testing.T) {
	m := New()
	m.ObserveAnalysis("ANCOVA", "n", nil, 3*time.Millisecond)
	m.ObserveAnalysis("ANCOVA", "n", nil, 5*time.Millisecond)
	m.ObserveAnalysis("ANCOVA", "n", errors.Infeasible("unreachable"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("ANCOVA", "n", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("ANCOVA", "n", "infeasible")))

	m.AddCurvePoints(25)
	assert.Equal(t, 25.0, testutil.ToFloat64(m.curvePoints))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "validation_error", Outcome(errors.ValidationError("n", "required")))
	assert.Equal(t, "internal_error", Outcome(assert.AnError))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis("oneSampleTTest", "power", nil, time.Millisecond)
		m.AddCurvePoints(3)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAnalysis("oneWayANOVA", "power", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `gopower_analyses_total{outcome="ok",target="power",test="oneWayANOVA"} 1`))
	assert.Contains(t, body, "gopower_analysis_duration_seconds_bucket")
}
