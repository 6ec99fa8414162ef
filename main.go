package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gopower/internal/api"
	"gopower/internal/boundary"
	"gopower/internal/config"
	"gopower/internal/logging"
	"gopower/internal/metrics"
	"gopower/internal/power"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(appConfig.Logging, "gopower")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(appConfig.Server.GinMode)

	var m *metrics.Metrics
	if appConfig.Metrics.Enabled {
		m = metrics.New()
	}

	analyzer := power.NewAnalyzer(appConfig.EngineOptions())
	server := api.NewServer(boundary.New(analyzer), m, logger)

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			logger.Info("profiling server starting", zap.String("port", appConfig.Profiling.Port))
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				logger.Error("pprof server failed", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			zap.String("port", appConfig.Server.Port),
			zap.Bool("metrics", appConfig.Metrics.Enabled))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", zap.Duration("timeout", appConfig.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
