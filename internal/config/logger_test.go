package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := NewLogger(&buf, "warn", "")
	require.NoError(t, err)
	defer func() { _ = closeLog() }()

	logger.Info("skipped")
	logger.Warn("Sync state reset", "peer", "alice")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Sync state reset", entry["msg"])
	assert.Equal(t, "alice", entry["peer"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	var buf bytes.Buffer
	logger, closeLog, err := NewLogger(&buf, "info", path)
	require.NoError(t, err)

	logger.Info("Server started", "addr", ":8080")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Server started")
	assert.Equal(t, buf.String(), string(data))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, _, err := NewLogger(&bytes.Buffer{}, "loud", "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
