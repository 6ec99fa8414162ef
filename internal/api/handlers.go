package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	domain "gopower/domain/power"
	"gopower/internal/boundary"
	apperrors "gopower/internal/errors"
	"gopower/internal/export"
	"gopower/internal/metrics"
)

const (
	jsonMIME = "application/json; charset=utf-8"
	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvMIME  = "text/csv; charset=utf-8"
)

// PowerHandler handles analysis and curve requests
type PowerHandler struct {
	boundary *boundary.Boundary
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewPowerHandler creates a new power handler
func NewPowerHandler(b *boundary.Boundary, m *metrics.Metrics, logger *zap.Logger) *PowerHandler {
	return &PowerHandler{boundary: b, metrics: m, logger: logger}
}

// ListTests returns the registered designs with their structural fields
func (h *PowerHandler) ListTests(c *gin.Context) {
	c.JSON(http.StatusOK, boundary.Envelope{OK: true, Result: domain.Designs()})
}

// Analyze solves one request and returns the result envelope
func (h *PowerHandler) Analyze(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, apperrors.InvalidInput("failed to read request body"))
		return
	}

	start := time.Now()
	res, err := h.boundary.Analyze(body)
	test, target := labels(body)
	h.metrics.ObserveAnalysis(test, target, err, time.Since(start))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, jsonMIME, boundary.Encode(res))
}

// Curve samples one quantity against another. The format query parameter
// selects json (default), xlsx or csv output.
func (h *PowerHandler) Curve(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "xlsx" && format != "csv" {
		h.fail(c, apperrors.ValidationError("format", "must be json, xlsx or csv"))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, apperrors.InvalidInput("failed to read request body"))
		return
	}

	start := time.Now()
	curve, err := h.boundary.Curve(c.Request.Context(), body)
	test, target := labels(body)
	h.metrics.ObserveAnalysis(test, target, err, time.Since(start))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.AddCurvePoints(len(curve.Points))

	var buf bytes.Buffer
	switch format {
	case "xlsx":
		if err := export.WriteXLSX(&buf, curve); err != nil {
			h.fail(c, apperrors.Wrap(err, "failed to build workbook"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="power-curve.xlsx"`)
		c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
	case "csv":
		if err := export.WriteCSV(&buf, curve); err != nil {
			h.fail(c, apperrors.Wrap(err, "failed to write csv"))
			return
		}
		c.Data(http.StatusOK, csvMIME, buf.Bytes())
	default:
		c.Data(http.StatusOK, jsonMIME, boundary.Encode(curve))
	}
}

func (h *PowerHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("analysis failed",
			zap.Error(err),
			zap.String("request_id", c.GetString("requestID")))
	}
	c.Data(status, jsonMIME, boundary.EncodeError(err))
}

// knownTests bounds the test label to registered designs
var knownTests = func() map[string]bool {
	m := make(map[string]bool)
	for _, info := range domain.Designs() {
		m[info.Name] = true
	}
	return m
}()

// labels extracts metric labels without trusting the body to be valid
func labels(body []byte) (test, target string) {
	if name := gjson.GetBytes(body, "test").String(); knownTests[name] {
		test = name
	}
	if t, err := domain.ParseTarget(gjson.GetBytes(body, "analysis").String()); err == nil {
		target = string(t)
	}
	return test, target
}
