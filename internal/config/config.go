// Package config loads the YAML configuration for the slotdb demo CLI.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the knobs the demo CLI exposes. The core engine
// (internal/pagefile, internal/bufferpool, internal/heap) never reads this
// type directly. cmd/slotdb uses Storage.Workdir as the table directory;
// Storage.PoolCapacity is loaded and defaulted but not passed on, and
// tables use heap.DefaultPoolCapacity.
type Config struct {
	Storage struct {
		Workdir      string `mapstructure:"workdir"`
		PoolCapacity int    `mapstructure:"pool_capacity"`
	} `mapstructure:"storage"`
}

// Load reads a YAML config file at path and unmarshals it into a Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if cfg.Storage.Workdir == "" {
		cfg.Storage.Workdir = "./data"
	}
	if cfg.Storage.PoolCapacity <= 0 {
		cfg.Storage.PoolCapacity = 3
	}

	return &cfg, nil
}
