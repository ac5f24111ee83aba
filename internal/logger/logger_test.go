package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogger(t *testing.T) {
	t.Cleanup(func() {
		Close()
		SetLevel("INFO")
	})
}

func TestSetLevel_FiltersBelowLevel(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf, "json")
	SetLevel("warn")

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	resetLogger(t)

	SetLevel("DEBUG")
	SetLevel("verbose")
	assert.Equal(t, LevelDebug, GetLevel())
}

func TestJSONFormat(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf, "json")

	Error("disk %s", "full")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk full", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestTextFormat(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf, "text")

	Info("hello")

	assert.Contains(t, buf.String(), "INF")
	assert.Contains(t, buf.String(), "hello")
}

func TestConfigure_File(t *testing.T) {
	resetLogger(t)

	path := filepath.Join(t.TempDir(), "blobfs.log")
	require.NoError(t, Configure(Config{Level: "DEBUG", Format: "json", Output: path}))

	Debug("to file")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))
}

func TestConfigure_InvalidFormat(t *testing.T) {
	resetLogger(t)

	assert.Error(t, Configure(Config{Format: "xml"}))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
