package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LevelInfo, cfg.Level)
	assert.False(t, cfg.Pretty)
	assert.Equal(t, os.Stderr, cfg.Output)
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		level   LogLevel
		testMsg string
	}{
		{name: "info_level", level: LevelInfo, testMsg: "test info message"},
		{name: "debug_level", level: LevelDebug, testMsg: "test debug message"},
		{name: "warn_level", level: LevelWarn, testMsg: "test warn message"},
		{name: "error_level", level: LevelError, testMsg: "test error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			switch tt.level {
			case LevelDebug:
				logger.Debug().Msg(tt.testMsg)
			case LevelInfo:
				logger.Info().Msg(tt.testMsg)
			case LevelWarn:
				logger.Warn().Msg(tt.testMsg)
			case LevelError:
				logger.Error().Msg(tt.testMsg)
			}

			assert.Contains(t, buf.String(), tt.testMsg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"warning", zerolog.WarnLevel},
		{" DEBUG ", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"critical", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("fetcher")
	logger.Info().Int("page", 3).Msg("Page fetched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fetcher", entry["component"])
	assert.Equal(t, "Page fetched", entry["message"])
	assert.Equal(t, float64(3), entry["page"])
}

func TestNewLogger_FollowsLaterSetup(t *testing.T) {
	first := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: first})

	second := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: second})

	logger := NewLogger("runner")
	logger.Info().Msg("Run started")

	assert.Empty(t, first.String())
	assert.Contains(t, second.String(), `"component":"runner"`)
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("test")
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("runner")
	logger.Info().Str("dataset", "mmreality_dataset_2026-10-15").Msg("Run complete")

	output := buf.String()
	assert.NotRegexp(t, `^\{`, output, "console output expected")
	assert.Contains(t, output, "Run complete")
	assert.Contains(t, output, "mmreality_dataset_2026-10-15")
}

func TestSetup_NilOutputDefaultsToStderr(t *testing.T) {
	assert.NotPanics(t, func() {
		logger := Setup(Config{Level: LevelError})
		logger.Debug().Msg("dropped")
	})
}
