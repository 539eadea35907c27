// Package config loads the umdtools YAML configuration file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/device"
	"github.com/hansbonini/umdtools/pkg/umd"
)

// Config holds the settings shared by every command
type Config struct {
	// Buffering keeps a host-side copy of every sector read
	Buffering bool `yaml:"buffering"`
	// TmpDirectory holds the buffer files and staged archive members
	TmpDirectory string `yaml:"tmp_directory"`
	// BlockCacheSize is the number of decompressed CSO/ZSO blocks kept in memory
	BlockCacheSize int `yaml:"block_cache_size"`
	// Verbose enables debug logging
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		TmpDirectory:   os.TempDir(),
		BlockCacheSize: device.DefaultBlockCacheSize,
	}
}

// Load reads a YAML file over the defaults.
// Keys missing from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, common.FormatError(common.ErrFailedToLoadConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, common.FormatError(common.ErrFailedToLoadConfig, err)
	}
	if cfg.TmpDirectory == "" {
		cfg.TmpDirectory = os.TempDir()
	}
	if cfg.BlockCacheSize <= 0 {
		cfg.BlockCacheSize = device.DefaultBlockCacheSize
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReaderOptions converts the configuration into umd.Open options
func (c Config) ReaderOptions() umd.Options {
	return umd.Options{
		Buffering:      c.Buffering,
		BufferDir:      c.TmpDirectory,
		BlockCacheSize: c.BlockCacheSize,
	}
}
