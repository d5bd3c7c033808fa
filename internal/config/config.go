// Package config handles configuration loading for the hexmap server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
	Hexbin HexbinConfig `yaml:"hexbin"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Title       string   `yaml:"title"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatasetConfig describes one cellstore-backed dataset.
type DatasetConfig struct {
	StorePath string `yaml:"store_path"`
}

// DataConfig maps dataset IDs to their stores, preserving YAML order so
// the first dataset is the default.
type DataConfig struct {
	Datasets       map[string]DatasetConfig
	DefaultDataset string
	order          []string
}

// UnmarshalYAML decodes the data section while keeping key order.
func (d *DataConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("data section must be a mapping")
	}
	d.Datasets = make(map[string]DatasetConfig)
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var ds DatasetConfig
		if err := node.Content[i+1].Decode(&ds); err != nil {
			return fmt.Errorf("dataset %q: %w", id, err)
		}
		d.Datasets[id] = ds
		d.order = append(d.order, id)
	}
	if len(d.order) > 0 {
		d.DefaultDataset = d.order[0]
	}
	return nil
}

// DatasetIDs returns dataset IDs in declaration order.
func (d *DataConfig) DatasetIDs() []string {
	return append([]string(nil), d.order...)
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	PlotSizeMB        int `yaml:"plot_size_mb"`
	PlotTTLMinutes    int `yaml:"plot_ttl_minutes"`
	TableCacheEntries int `yaml:"table_cache_entries"`
}

// RenderConfig contains plot rendering settings.
type RenderConfig struct {
	PlotSize        int    `yaml:"plot_size"`
	DefaultColormap string `yaml:"default_colormap"`
}

// HexbinConfig contains binning settings.
type HexbinConfig struct {
	DefaultNbins int    `yaml:"default_nbins"`
	MaxNbins     int    `yaml:"max_nbins"`
	SQLitePath   string `yaml:"sqlite_path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Title:       "HexMap",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			Datasets:       map[string]DatasetConfig{"default": {StorePath: "./data/cellstore"}},
			DefaultDataset: "default",
			order:          []string{"default"},
		},
		Cache: CacheConfig{
			PlotSizeMB:        256,
			PlotTTLMinutes:    10,
			TableCacheEntries: 512,
		},
		Render: RenderConfig{
			PlotSize:        800,
			DefaultColormap: "viridis",
		},
		Hexbin: HexbinConfig{
			DefaultNbins: 40,
			MaxNbins:     512,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if len(cfg.Data.Datasets) == 0 {
		cfg.Data = defaults.Data
	}
	if cfg.Cache.PlotSizeMB == 0 {
		cfg.Cache.PlotSizeMB = defaults.Cache.PlotSizeMB
	}
	if cfg.Cache.PlotTTLMinutes == 0 {
		cfg.Cache.PlotTTLMinutes = defaults.Cache.PlotTTLMinutes
	}
	if cfg.Cache.TableCacheEntries == 0 {
		cfg.Cache.TableCacheEntries = defaults.Cache.TableCacheEntries
	}
	if cfg.Render.PlotSize == 0 {
		cfg.Render.PlotSize = defaults.Render.PlotSize
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
	if cfg.Hexbin.DefaultNbins == 0 {
		cfg.Hexbin.DefaultNbins = defaults.Hexbin.DefaultNbins
	}
	if cfg.Hexbin.MaxNbins == 0 {
		cfg.Hexbin.MaxNbins = defaults.Hexbin.MaxNbins
	}
}
