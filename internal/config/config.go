package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gopower/internal/dist"
	"gopower/internal/errors"
	"gopower/internal/power"
	"gopower/internal/solver"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Profiling ProfilingConfig
	Engine    EngineConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string        `validate:"required,numeric"`
	GinMode         string        `validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// LoggingConfig selects the zap encoder and level
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string `validate:"omitempty,numeric"`
	Enabled bool
}

// EngineConfig holds the numeric limits of the power engine
type EngineConfig struct {
	SampleSizeCap        float64 `validate:"gte=2"`
	EffectSizeCap        float64 `validate:"gt=0"`
	MaxBracketExpansions int     `validate:"gte=0,lte=64"`
	AlphaEpsilon         float64 `validate:"gt=0,lt=0.5"`
	SolverAbsTol         float64 `validate:"gt=0"`
	SolverRelTol         float64 `validate:"gt=0"`
	SolverMaxIterations  int     `validate:"gte=1"`
	SeriesTolerance      float64 `validate:"gt=0,lt=1"`
	SeriesMaxTerms       int     `validate:"gte=1"`
	CurveWorkers         int     `validate:"gte=1,lte=256"`
	CurveMaxPoints       int     `validate:"gte=2"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:    *loadServerConfig(),
		Logging:   *loadLoggingConfig(),
		Metrics:   *loadMetricsConfig(),
		Profiling: *loadProfilingConfig(),
	}

	engineConfig, err := loadEngineConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load engine configuration")
	}
	config.Engine = *engineConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// EngineOptions converts the engine settings into analyzer options
func (c *Config) EngineOptions() power.Options {
	e := c.Engine
	return power.Options{
		SampleSizeCap:        e.SampleSizeCap,
		EffectSizeCap:        e.EffectSizeCap,
		MaxBracketExpansions: e.MaxBracketExpansions,
		AlphaEpsilon:         e.AlphaEpsilon,
		Solver: solver.Config{
			AbsTol:        e.SolverAbsTol,
			RelTol:        e.SolverRelTol,
			MaxIterations: e.SolverMaxIterations,
		},
		Series: dist.Series{
			Tolerance: e.SeriesTolerance,
			MaxTerms:  e.SeriesMaxTerms,
		},
		CurveWorkers:   e.CurveWorkers,
		CurveMaxPoints: e.CurveMaxPoints,
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

func loadMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

// loadEngineConfig parses the engine limits strictly: a malformed number is
// an error, not a fallback to the default.
func loadEngineConfig() (*EngineConfig, error) {
	d := power.DefaultOptions()
	cfg := &EngineConfig{}
	var errs []error

	cfg.SampleSizeCap = parseFloat("POWER_SAMPLE_SIZE_CAP", d.SampleSizeCap, &errs)
	cfg.EffectSizeCap = parseFloat("POWER_EFFECT_SIZE_CAP", d.EffectSizeCap, &errs)
	cfg.MaxBracketExpansions = parseInt("POWER_EFFECT_SIZE_EXPANSIONS", d.MaxBracketExpansions, &errs)
	cfg.AlphaEpsilon = parseFloat("POWER_ALPHA_EPSILON", d.AlphaEpsilon, &errs)
	cfg.SolverAbsTol = parseFloat("POWER_SOLVER_ABS_TOL", d.Solver.AbsTol, &errs)
	cfg.SolverRelTol = parseFloat("POWER_SOLVER_REL_TOL", d.Solver.RelTol, &errs)
	cfg.SolverMaxIterations = parseInt("POWER_SOLVER_MAX_ITER", d.Solver.MaxIterations, &errs)
	cfg.SeriesTolerance = parseFloat("POWER_SERIES_TOL", d.Series.Tolerance, &errs)
	cfg.SeriesMaxTerms = parseInt("POWER_SERIES_MAX_TERMS", d.Series.MaxTerms, &errs)
	cfg.CurveWorkers = parseInt("POWER_CURVE_WORKERS", d.CurveWorkers, &errs)
	cfg.CurveMaxPoints = parseInt("POWER_CURVE_MAX_POINTS", d.CurveMaxPoints, &errs)

	if len(errs) > 0 {
		return nil, errors.WithCode(errors.CodeConfigInvalid, stderrors.Join(errs...))
	}
	return cfg, nil
}

var validate = validator.New()

func validateConfig(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return errors.ConfigInvalid(strings.Join(msgs, "; "))
	}
	return errors.WithCode(errors.CodeConfigInvalid, err)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a number", key, value))
		return defaultValue
	}
	return f
}

func parseInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, value))
		return defaultValue
	}
	return i
}
