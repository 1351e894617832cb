package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewJSON(t *testing.T) {
	t.Setenv("ENV", "")
	var buf bytes.Buffer
	log, level := New(Options{Level: slog.LevelInfo, Output: &buf})

	log.Debug("hidden")
	log.Info("reading", "sensor", 1, "mm", 300)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "reading", rec["msg"])
	assert.Equal(t, float64(300), rec["mm"])
	assert.Contains(t, rec, "ts")
	assert.NotContains(t, rec, "time")

	level.Set(slog.LevelDebug)
	log.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(Options{Level: slog.LevelInfo, Console: true, Output: &buf})

	log.Info("started", "poll", "1ms")

	assert.Contains(t, buf.String(), "started")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestToggle(t *testing.T) {
	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	assert.Equal(t, slog.LevelDebug, Toggle(level, slog.LevelWarn))
	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Equal(t, slog.LevelWarn, Toggle(level, slog.LevelWarn))
	assert.Equal(t, slog.LevelWarn, level.Level())

	level.Set(slog.LevelDebug)
	assert.Equal(t, slog.LevelInfo, Toggle(level, slog.LevelDebug))
	assert.Equal(t, slog.LevelDebug, Toggle(level, slog.LevelDebug))
}
