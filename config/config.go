// Package config loads the YAML configuration of the rstar tool.
package config

import (
	"fmt"
	"os"

	"github.com/jobala/rstar/logger"
	"github.com/jobala/rstar/storage"
	"github.com/jobala/rstar/util"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Tree    TreeConfig    `yaml:"tree"`
	Log     logger.Config `yaml:"log"`
}

type StorageConfig struct {
	DataFile   string `yaml:"data_file"`
	IndexFile  string `yaml:"index_file"`
	PageSize   int    `yaml:"page_size"`
	Dimensions int    `yaml:"dimensions"`
	CachePages int    `yaml:"cache_pages"` // decoded data pages kept in memory
}

type TreeConfig struct {
	MaxEntries              int     `yaml:"max_entries"` // 0 derives M from the page size
	ReinsertFraction        float64 `yaml:"reinsert_fraction"`
	ChooseSubtreeCandidates int     `yaml:"choose_subtree_candidates"`
	BulkLoad                bool    `yaml:"bulk_load"`
}

func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataFile:   "datafile.db",
			IndexFile:  "indexfile.db",
			PageSize:   32 * 1024,
			Dimensions: 2,
			CachePages: 64,
		},
		Tree: TreeConfig{
			ReinsertFraction:        0.3,
			ChooseSubtreeCandidates: 32,
			BulkLoad:                true,
		},
		Log: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
	}
}

// Load overlays the YAML file at configPath on the defaults. An empty path
// returns the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, util.NewConfigError(fmt.Sprintf("parsing %s", configPath), err)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Storage.DataFile == "" || c.Storage.IndexFile == "":
		return util.NewConfigError("data_file and index_file are required", nil)
	case c.Storage.PageSize < storage.MIN_PAGE_SIZE:
		return util.NewConfigError(fmt.Sprintf("page_size %d is below %d", c.Storage.PageSize, storage.MIN_PAGE_SIZE), nil)
	case c.Storage.Dimensions < 1:
		return util.NewConfigError(fmt.Sprintf("dimensions must be positive, got %d", c.Storage.Dimensions), nil)
	case c.Storage.CachePages < 0:
		return util.NewConfigError(fmt.Sprintf("cache_pages must not be negative, got %d", c.Storage.CachePages), nil)
	case c.Tree.ReinsertFraction <= 0 || c.Tree.ReinsertFraction > 0.5:
		return util.NewConfigError(fmt.Sprintf("reinsert_fraction %v outside (0, 0.5]", c.Tree.ReinsertFraction), nil)
	case c.Tree.MaxEntries > 0 && c.Tree.MaxEntries < 4:
		return util.NewConfigError(fmt.Sprintf("max_entries %d is below 4", c.Tree.MaxEntries), nil)
	case c.Tree.MaxEntries < 0 || c.Tree.ChooseSubtreeCandidates < 0:
		return util.NewConfigError("max_entries and choose_subtree_candidates must not be negative", nil)
	}
	return nil
}
