package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTo(&buf, slog.LevelInfo, FormatText)

	logger.Info("evaluation failed", "error", errors.New("boom"))
	assert.Contains(t, buf.String(), "err=boom")
	assert.NotContains(t, buf.String(), "error=")
}

func TestNewToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTo(&buf, slog.LevelDebug, FormatJSON)

	logger.Debug("evaluated", "node", "b", "error", "x")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "evaluated", rec["msg"])
	assert.Equal(t, "b", rec["node"])
	assert.Equal(t, "x", rec["err"])
}

func TestNewToRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTo(&buf, slog.LevelWarn, FormatText)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Error("discarded", "error", "x")
	})
}
