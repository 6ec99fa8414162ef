// Package api serves the power-analysis boundary over HTTP with gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gopower/internal/boundary"
	"gopower/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// Server is the HTTP host of the analysis boundary
type Server struct {
	router  *gin.Engine
	handler *PowerHandler
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewServer wires routes and middleware. A nil metrics disables /metrics.
func NewServer(b *boundary.Boundary, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:  gin.New(),
		handler: NewPowerHandler(b, m, logger),
		metrics: m,
		logger:  logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures recovery, request ids and access logging
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(RequestID())
	s.router.Use(AccessLog(s.logger))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.GET("/tests", s.handler.ListTests)
	v1.POST("/analyze", s.handler.Analyze)
	v1.POST("/curve", s.handler.Curve)
}

// RequestID tags each request with the caller's X-Request-ID or a fresh uuid
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("requestID")),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
