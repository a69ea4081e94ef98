package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWith(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("stale session mutation ignored", "mutations", []string{"set_credentials"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stale session mutation ignored", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestNewWithText(t *testing.T) {
	var buf bytes.Buffer
	NewWith(&buf, "debug", "text").Debug("session transition not accepted")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
