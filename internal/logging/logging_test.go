package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"gopower/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"info":  zapcore.InfoLevel,
		"DEBUG": zapcore.DebugLevel,
		"trace": zapcore.DebugLevel,
		"Warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, "gopower-test")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = New(config.LoggingConfig{Level: "debug", Format: "console"}, "gopower-test")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = New(config.LoggingConfig{Level: "verbose"}, "gopower-test")
	assert.Error(t, err)
}
