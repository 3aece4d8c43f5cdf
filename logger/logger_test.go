package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("writes json lines with the service field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rstar.log")
		log, closeLog, err := New(Config{Level: "debug", Format: "json", OutputFile: path})
		require.NoError(t, err)

		log.Debug("split node")
		closeLog()

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line))
		assert.Equal(t, "rstar", line["service"])
		assert.Equal(t, "DEBUG", line["level"])
		assert.Equal(t, "split node", line["msg"])
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rstar.log")
		log, closeLog, err := New(Config{Level: "chatty", OutputFile: path})
		require.NoError(t, err)

		log.Debug("hidden")
		log.Info("shown")
		closeLog()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hidden")
		assert.Contains(t, string(data), "shown")
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, _, err := New(Config{OutputFile: filepath.Join(t.TempDir(), "missing", "rstar.log")})
		assert.Error(t, err)
	})

	t.Run("closing releases the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rstar.log")
		log, closeLog, err := New(Config{OutputFile: path})
		require.NoError(t, err)

		log.Info("before close")
		closeLog()

		require.NoError(t, os.Remove(path))
	})
}

func TestForStore(t *testing.T) {
	t.Run("tags lines with the store files", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rstar.log")
		log, closeLog, err := New(Config{Format: "json", OutputFile: path})
		require.NoError(t, err)

		ForStore(log, "/var/lib/rstar/points.db", "/var/lib/rstar/points.idx", 4096).Info("opened page store")
		closeLog()

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line))
		assert.Equal(t, "points.db", line["data_file"])
		assert.Equal(t, "points.idx", line["index_file"])
		assert.Equal(t, 4096.0, line["page_size"])
		assert.Equal(t, "rstar", line["service"])
	})
}
