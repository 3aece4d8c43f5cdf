package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobala/rstar/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rstar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, 32*1024, cfg.Storage.PageSize)
		assert.Equal(t, 2, cfg.Storage.Dimensions)
		assert.Equal(t, 0.3, cfg.Tree.ReinsertFraction)
		assert.Equal(t, 32, cfg.Tree.ChooseSubtreeCandidates)
		assert.True(t, cfg.Tree.BulkLoad)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load("/nonexistent/path/rstar.yaml")
		assert.Error(t, err)
	})

	t.Run("file overlays defaults", func(t *testing.T) {
		path := writeConfig(t, `
storage:
  data_file: points.db
  page_size: 4096
  dimensions: 3
tree:
  max_entries: 16
  bulk_load: false
log:
  level: debug
  format: json
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "points.db", cfg.Storage.DataFile)
		assert.Equal(t, "indexfile.db", cfg.Storage.IndexFile)
		assert.Equal(t, 4096, cfg.Storage.PageSize)
		assert.Equal(t, 3, cfg.Storage.Dimensions)
		assert.Equal(t, 64, cfg.Storage.CachePages)
		assert.Equal(t, 16, cfg.Tree.MaxEntries)
		assert.False(t, cfg.Tree.BulkLoad)
		assert.Equal(t, 0.3, cfg.Tree.ReinsertFraction)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("malformed yaml is a config error", func(t *testing.T) {
		_, err := Load(writeConfig(t, "storage: [unclosed"))

		var cfgErr *util.ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"small page size":        func(c *Config) { c.Storage.PageSize = 100 },
		"zero dimensions":        func(c *Config) { c.Storage.Dimensions = 0 },
		"reinsert fraction zero": func(c *Config) { c.Tree.ReinsertFraction = 0 },
		"reinsert fraction high": func(c *Config) { c.Tree.ReinsertFraction = 0.6 },
		"max entries too small":  func(c *Config) { c.Tree.MaxEntries = 3 },
		"missing data file":      func(c *Config) { c.Storage.DataFile = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)

			var cfgErr *util.ConfigError
			assert.True(t, errors.As(cfg.Validate(), &cfgErr))
		})
	}
}
