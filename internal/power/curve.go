package power

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	domain "gopower/domain/power"
	apperrors "gopower/internal/errors"
)

// CurveRequest samples the answer to Request while one other quantity, the
// Axis, sweeps From..To in Points evenly spaced steps. The Request's own
// value for the axis quantity is ignored.
type CurveRequest struct {
	Request domain.Request
	Axis    domain.Target
	From    float64
	To      float64
	Points  int
}

// CurvePoint is one sample. Error is set instead of Y when the request has no
// solution at X.
type CurvePoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Error string  `json:"error,omitempty"`
}

// CurveSummary describes the successful samples for axis scaling
type CurveSummary struct {
	Valid  int     `json:"valid"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Curve is a sampled relationship between two of the four quantities
type Curve struct {
	Test    string        `json:"test"`
	Target  domain.Target `json:"target"`
	Axis    domain.Target `json:"axis"`
	Points  []CurvePoint  `json:"points"`
	Summary CurveSummary  `json:"summary"`
}

// Curve evaluates the points concurrently on at most Options.CurveWorkers
// goroutines. Only cancellation of ctx fails the whole curve.
func (a *Analyzer) Curve(ctx context.Context, req CurveRequest) (*Curve, error) {
	if err := a.validateCurve(req); err != nil {
		return nil, err
	}

	points := make([]CurvePoint, req.Points)
	step := (req.To - req.From) / float64(req.Points-1)
	for i := range points {
		points[i].X = req.From + float64(i)*step
	}
	points[len(points)-1].X = req.To
	if req.Axis == domain.TargetSampleSize {
		for i := range points {
			points[i].X = math.Round(points[i].X)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.CurveWorkers)

	for i := range points {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := a.Analyze(withAxis(req.Request, req.Axis, points[i].X))
			if err != nil {
				points[i].Error = err.Error()
				return nil
			}
			points[i].Y = res.Value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	name := ""
	if req.Request.Design != nil {
		name = req.Request.Design.Name()
	}
	return &Curve{
		Test:    name,
		Target:  req.Request.Target,
		Axis:    req.Axis,
		Points:  points,
		Summary: summarize(points),
	}, nil
}

func (a *Analyzer) validateCurve(req CurveRequest) error {
	switch req.Axis {
	case domain.TargetSampleSize, domain.TargetAlpha, domain.TargetPower, domain.TargetEffectSize:
	default:
		return apperrors.ValidationError("axis", "must be one of n, alpha, power, es")
	}
	if req.Axis == req.Request.Target {
		return apperrors.ValidationError("axis", "must differ from the analysis target")
	}
	if req.Points < 2 || req.Points > a.opts.CurveMaxPoints {
		return apperrors.ValidationError("points", "must lie between 2 and the configured maximum")
	}
	for field, v := range map[string]float64{"from": req.From, "to": req.To} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.ValidationError(field, "must be a finite number")
		}
	}
	if req.From == req.To {
		return apperrors.ValidationError("to", "must differ from from")
	}
	// surface request errors once rather than on every point
	probe := withAxis(req.Request, req.Axis, req.From)
	if _, err := validate(probe); err != nil && apperrors.GetField(err) != string(req.Axis) {
		return err
	}
	return nil
}

func withAxis(req domain.Request, axis domain.Target, x float64) domain.Request {
	switch axis {
	case domain.TargetSampleSize:
		req.N = domain.Float(x)
	case domain.TargetAlpha:
		req.Alpha = domain.Float(x)
	case domain.TargetPower:
		req.Power = domain.Float(x)
	case domain.TargetEffectSize:
		req.EffectSize = domain.Float(x)
	}
	return req
}

func summarize(points []CurvePoint) CurveSummary {
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Error == "" {
			ys = append(ys, p.Y)
		}
	}
	s := CurveSummary{Valid: len(ys)}
	if len(ys) == 0 {
		return s
	}
	s.Min, _ = stats.Min(ys)
	s.Max, _ = stats.Max(ys)
	s.Median, _ = stats.Median(ys)
	return s
}
