package Logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TeleCare/Config"
)

func TestNewJSONCarriesServiceFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(
		Config.LogConfig{Level: "info", Format: "json", OutputPath: out},
		Config.AppConfig{Name: "telecare", Environment: "test", Version: "1.2.3"},
	)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("booking created")
	_ = logger.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "booking created", entry["msg"])
	assert.Equal(t, "telecare", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Contains(t, entry, "time")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config.LogConfig{Level: "loud", Format: "json"}, Config.AppConfig{})
	assert.Error(t, err)
}
