package cache

import (
	"testing"
	"time"
)

func TestKeys_Distinct(t *testing.T) {
	base := TableKey("pbmc", "X_umap", 40, "cell_type", "majority")

	others := []string{
		TableKey("pbmc", "X_umap", 41, "cell_type", "majority"),
		TableKey("pbmc", "X_tsne", 40, "cell_type", "majority"),
		TableKey("pbmc", "X_umap", 40, "cell_type", "prop"),
		TableKey("liver", "X_umap", 40, "cell_type", "majority"),
		PlotKey("pbmc", "X_umap", 40, "cell_type", "majority", "viridis"),
		LabelsKey("pbmc", "X_umap", 40, "cell_type"),
	}
	for _, other := range others {
		if other == base {
			t.Errorf("key collision: %q", other)
		}
	}

	if got := TableKey("pbmc", "X_umap", 40, "cell_type", "majority"); got != base {
		t.Errorf("key not stable: %q vs %q", got, base)
	}
}

func TestManager_RoundTrip(t *testing.T) {
	m, err := NewManager(Config{
		PlotCacheSizeMB: 8,
		PlotTTL:         time.Minute,
		TableCacheSize:  4,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	if _, ok := m.GetPlot("missing"); ok {
		t.Error("expected miss for absent plot")
	}
	if err := m.SetPlot("p", []byte("png-bytes")); err != nil {
		t.Fatalf("SetPlot failed: %v", err)
	}
	if data, ok := m.GetPlot("p"); !ok || string(data) != "png-bytes" {
		t.Errorf("unexpected plot data: %q ok=%v", data, ok)
	}

	m.SetTable("t", []byte(`{"bin_id":[]}`))
	if data, ok := m.GetTable("t"); !ok || string(data) != `{"bin_id":[]}` {
		t.Errorf("unexpected table data: %q ok=%v", data, ok)
	}
}
