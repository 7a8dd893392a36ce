package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/config"
)

func TestBuild_JSONStdout(t *testing.T) {
	var buf bytes.Buffer
	log, err := build(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("list loaded", zap.Int("rows", 3))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "list loaded", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Equal(t, "info", entry["level"])
}

func TestBuild_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ioncon.log")
	log, err := build(config.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path, MaxSize: 1}, &bytes.Buffer{})
	require.NoError(t, err)
	log.Debug("to file")
	require.NoError(t, log.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to file")
}

func TestBuild_Invalid(t *testing.T) {
	_, err := build(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = build(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = build(config.LogConfig{Output: "file"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = build(config.LogConfig{Output: "syslog"}, &bytes.Buffer{})
	assert.Error(t, err)
}
