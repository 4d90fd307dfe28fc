package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Setenv("LOG_LEVEL", tt.env)
		assert.Equal(t, tt.want, levelFromEnv(), "LOG_LEVEL=%q", tt.env)
	}
}

func TestTextHandler(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))
	logger.Debug("hidden")
	logger.Info("Batch built", "transactions", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Batch built")
	assert.Contains(t, out, "transactions=2")
	assert.NotContains(t, out, "\x1b[", "NO_COLOR set but output has escape codes")
}

func TestJSONHandler(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	slog.New(NewHandler(&buf, slog.LevelInfo)).Warn("Check amount", "participant_id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), buf.String())
	assert.Equal(t, "Check amount", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, float64(7), rec["participant_id"])
}
