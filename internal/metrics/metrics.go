package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gopower/internal/errors"
)

// =============================================================================
// Prometheus Metrics for Power Analyses
// =============================================================================

// Metrics holds the collectors of one host process on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// analyses counts analyses. Labels: test, target, outcome (ok or error code)
	analyses *prometheus.CounterVec
	// duration measures analysis latency. Labels: target
	duration *prometheus.HistogramVec
	// curvePoints counts sampled curve points
	curvePoints prometheus.Counter
}

// New registers the collectors together with the Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gopower",
			Name:      "analyses_total",
			Help:      "Total power analyses by test, target and outcome",
		}, []string{"test", "target", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gopower",
			Name:      "analysis_duration_seconds",
			Help:      "Power analysis latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"target"}),
		curvePoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gopower",
			Name:      "curve_points_total",
			Help:      "Total power curve points evaluated",
		}),
	}
}

// ObserveAnalysis records one finished analysis
func (m *Metrics) ObserveAnalysis(test, target string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	if test == "" {
		test = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	m.analyses.WithLabelValues(test, target, Outcome(err)).Inc()
	m.duration.WithLabelValues(target).Observe(elapsed.Seconds())
}

// AddCurvePoints records n evaluated curve points
func (m *Metrics) AddCurvePoints(n int) {
	if m == nil {
		return
	}
	m.curvePoints.Add(float64(n))
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome is the outcome label for err: "ok" or the lower-cased error code
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	code := errors.GetCode(err)
	if code == "UNKNOWN" {
		code = errors.CodeInternalError
	}
	return strings.ToLower(code)
}
