package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/wellness/config"
)

func TestInitWritesToFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "logs", "wellness.log")
	require.NoError(t, Init(config.LogConfig{Level: "info", Format: "text", Path: path}))

	WithComponent("refresh").Info("refresh failed", "status", 401)
	Get().Debug("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `msg="refresh failed"`)
	assert.Contains(t, out, "component=refresh")
	assert.NotContains(t, out, "hidden")
}

func TestSetDebug(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "wellness.log")
	require.NoError(t, Init(config.LogConfig{Level: "info", Format: "json", Path: path}))
	SetDebug(true)
	Get().Debug("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
}

func TestInitRejectsBadLevel(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	assert.Error(t, Init(config.LogConfig{Level: "chatty"}))
}

func TestGetBeforeInit(t *testing.T) {
	Reset()
	assert.NotNil(t, Get())
	assert.NotNil(t, Watermill())
}
