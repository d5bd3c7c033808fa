package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MultiDataset(t *testing.T) {
	content := `
server:
  port: 9000
data:
  pbmc:
    store_path: "/data/pbmc/cellstore"
  liver:
    store_path: "/data/liver/cellstore"
hexbin:
  default_nbins: 64
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if len(cfg.Data.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(cfg.Data.Datasets))
	}

	// First dataset in YAML order is the default.
	if cfg.Data.DefaultDataset != "pbmc" {
		t.Errorf("expected default dataset 'pbmc', got %q", cfg.Data.DefaultDataset)
	}
	ids := cfg.Data.DatasetIDs()
	if len(ids) != 2 || ids[0] != "pbmc" || ids[1] != "liver" {
		t.Errorf("unexpected dataset order: %v", ids)
	}

	pbmc, ok := cfg.Data.Datasets["pbmc"]
	if !ok {
		t.Fatal("expected 'pbmc' dataset")
	}
	if pbmc.StorePath != "/data/pbmc/cellstore" {
		t.Errorf("unexpected store_path: %s", pbmc.StorePath)
	}

	if cfg.Hexbin.DefaultNbins != 64 {
		t.Errorf("expected default_nbins 64, got %d", cfg.Hexbin.DefaultNbins)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
data:
  test:
    store_path: "/test/cellstore"
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.PlotSizeMB != 256 {
		t.Errorf("expected default plot cache 256, got %d", cfg.Cache.PlotSizeMB)
	}
	if cfg.Render.DefaultColormap != "viridis" {
		t.Errorf("expected default colormap viridis, got %q", cfg.Render.DefaultColormap)
	}
	if cfg.Hexbin.DefaultNbins != 40 || cfg.Hexbin.MaxNbins != 512 {
		t.Errorf("unexpected hexbin defaults: %+v", cfg.Hexbin)
	}
}

func TestLoad_NoDataSection(t *testing.T) {
	cfg := loadFromString(t, "server:\n  port: 8080\n")

	if cfg.Data.DefaultDataset != "default" {
		t.Errorf("expected default dataset, got %q", cfg.Data.DefaultDataset)
	}
	if len(cfg.Data.Datasets) != 1 {
		t.Errorf("expected 1 default dataset, got %d", len(cfg.Data.Datasets))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
