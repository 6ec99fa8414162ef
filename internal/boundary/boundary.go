// Package boundary converts JSON requests into analyses and results back into
// JSON. Hosts (HTTP, CLI) only move bytes through it.
//
// Numeric request fields may be JSON numbers or numeric strings, because form
// based front ends send every field as a string.
package boundary

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	domain "gopower/domain/power"
	apperrors "gopower/internal/errors"
	"gopower/internal/power"
)

// structuralFields are the design parameters a request may carry
var structuralFields = []string{"k", "q", "p", "df", "nPredictors", "rho", "m", "epsilon", "allocationRatio"}

// Envelope is the response wrapper for every boundary call
type Envelope struct {
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed call
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Boundary runs decoded requests against an analyzer
type Boundary struct {
	analyzer *power.Analyzer
}

// New creates a boundary over analyzer
func New(analyzer *power.Analyzer) *Boundary {
	return &Boundary{analyzer: analyzer}
}

// Analyzer returns the analyzer requests run against
func (b *Boundary) Analyzer() *power.Analyzer {
	return b.analyzer
}

// Compute decodes an analysis request, runs it and encodes the envelope.
// It never fails: errors are reported inside the envelope.
func (b *Boundary) Compute(body []byte) []byte {
	res, err := b.Analyze(body)
	if err != nil {
		return EncodeError(err)
	}
	return Encode(res)
}

// Analyze decodes and runs an analysis request
func (b *Boundary) Analyze(body []byte) (domain.Result, error) {
	req, err := Decode(body)
	if err != nil {
		return domain.Result{}, err
	}
	return b.analyzer.Analyze(req)
}

// Curve decodes and runs a curve request
func (b *Boundary) Curve(ctx context.Context, body []byte) (*power.Curve, error) {
	req, err := DecodeCurve(body)
	if err != nil {
		return nil, err
	}
	return b.analyzer.Curve(ctx, req)
}

// ============================================================================
// DECODING
// ============================================================================

// Decode reads an analysis request:
//
//	{"test": "ANCOVA", "analysis": "power", "tail": 1,
//	 "n": 100, "alpha": 0.05, "es": 0.25, "k": 3, "p": 1}
func Decode(body []byte) (domain.Request, error) {
	if !gjson.ValidBytes(body) {
		return domain.Request{}, apperrors.InvalidInput("request body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return domain.Request{}, apperrors.InvalidInput("request body must be a JSON object")
	}

	var req domain.Request
	var err error

	test := strings.TrimSpace(root.Get("test").String())
	if test == "" {
		return req, apperrors.ValidationError("test", "required")
	}

	analysis := strings.TrimSpace(root.Get("analysis").String())
	if analysis == "" {
		return req, apperrors.ValidationError("analysis", "required")
	}
	if req.Target, err = domain.ParseTarget(analysis); err != nil {
		return req, apperrors.ValidationError("analysis", err.Error())
	}

	tail, err := number(root, "tail")
	if err != nil {
		return req, err
	}
	if tail != nil {
		req.Tail = domain.Tail(*tail)
		if float64(req.Tail) != *tail {
			return req, apperrors.ValidationError("tail", "must be 1 or 2")
		}
	}

	quantities := []struct {
		field string
		dst   **float64
	}{
		{"n", &req.N},
		{"alpha", &req.Alpha},
		{"power", &req.Power},
		{"es", &req.EffectSize},
	}
	for _, q := range quantities {
		if *q.dst, err = number(root, q.field); err != nil {
			return req, err
		}
	}

	params := domain.Params{}
	for _, field := range structuralFields {
		v, err := number(root, field)
		if err != nil {
			return req, err
		}
		if v != nil {
			params[field] = *v
		}
	}

	if req.Design, err = domain.NewDesign(test, params); err != nil {
		return req, err
	}
	return req, nil
}

// DecodeCurve reads a curve request: an analysis request plus
// "axis", "from", "to" and "points"
func DecodeCurve(body []byte) (power.CurveRequest, error) {
	var cr power.CurveRequest
	req, err := Decode(body)
	if err != nil {
		return cr, err
	}
	cr.Request = req

	root := gjson.ParseBytes(body)
	axis := strings.TrimSpace(root.Get("axis").String())
	if axis == "" {
		return cr, apperrors.ValidationError("axis", "required")
	}
	if cr.Axis, err = domain.ParseTarget(axis); err != nil {
		return cr, apperrors.ValidationError("axis", err.Error())
	}

	if cr.From, err = required(root, "from"); err != nil {
		return cr, err
	}
	if cr.To, err = required(root, "to"); err != nil {
		return cr, err
	}

	points, err := required(root, "points")
	if err != nil {
		return cr, err
	}
	cr.Points = int(points)
	if float64(cr.Points) != points {
		return cr, apperrors.ValidationError("points", "must be a whole number")
	}
	return cr, nil
}

func required(root gjson.Result, field string) (float64, error) {
	v, err := number(root, field)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, apperrors.ValidationError(field, "required")
	}
	return *v, nil
}

// number reads a field that may be a JSON number or a numeric string.
// A missing, null or empty-string field yields nil.
func number(root gjson.Result, field string) (*float64, error) {
	r := root.Get(field)
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		v := r.Float()
		return &v, nil
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, apperrors.ValidationError(field, "must be a number, got "+strconv.Quote(r.Str))
		}
		return &v, nil
	default:
		return nil, apperrors.ValidationError(field, "must be a number")
	}
}

// ============================================================================
// ENCODING
// ============================================================================

// Encode wraps a successful payload in the envelope
func Encode(result any) []byte {
	out, err := json.Marshal(Envelope{OK: true, Result: result})
	if err != nil {
		return EncodeError(apperrors.Wrap(err, "failed to encode result"))
	}
	return out
}

// EncodeError wraps err in the envelope. Errors without a code are reported
// as internal errors.
func EncodeError(err error) []byte {
	out, _ := json.Marshal(Envelope{OK: false, Error: ErrorBodyOf(err)})
	return out
}

// ErrorBodyOf extracts the code, message and blamed field of err
func ErrorBodyOf(err error) *ErrorBody {
	code := apperrors.GetCode(err)
	if code == "UNKNOWN" {
		code = apperrors.CodeInternalError
	}
	return &ErrorBody{
		Code:    code,
		Message: err.Error(),
		Field:   apperrors.GetField(err),
	}
}
