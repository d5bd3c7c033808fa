// Package cache provides caching for rendered plots and serialized
// result tables.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	PlotCacheSizeMB int
	PlotTTL         time.Duration
	TableCacheSize  int
}

// Manager manages the plot and table caches. Plots are PNG byte slices
// with a TTL; tables are serialized JSON kept in an LRU.
type Manager struct {
	plotCache  *bigcache.BigCache
	tableCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	plotCacheConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.PlotTTL,
		CleanWindow:        cfg.PlotTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       512 * 1024, // 512KB per plot
		HardMaxCacheSize:   cfg.PlotCacheSizeMB,
		Verbose:            false,
	}

	plotCache, err := bigcache.New(context.Background(), plotCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create plot cache: %w", err)
	}

	tableCache, err := lru.New[string, []byte](cfg.TableCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create table cache: %w", err)
	}

	return &Manager{
		plotCache:  plotCache,
		tableCache: tableCache,
	}, nil
}

// GetPlot retrieves a rendered plot from cache.
func (m *Manager) GetPlot(key string) ([]byte, bool) {
	data, err := m.plotCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPlot stores a rendered plot in cache.
func (m *Manager) SetPlot(key string, data []byte) error {
	return m.plotCache.Set(key, data)
}

// GetTable retrieves a serialized table from cache.
func (m *Manager) GetTable(key string) ([]byte, bool) {
	return m.tableCache.Get(key)
}

// SetTable stores a serialized table in cache.
func (m *Manager) SetTable(key string, data []byte) {
	m.tableCache.Add(key, data)
}

// TableKey generates a cache key for an aggregate table.
func TableKey(dataset, embedding string, nbins int, column, action string) string {
	return fmt.Sprintf("table:%s:%s:%d:%s:%s", dataset, embedding, nbins, column, action)
}

// PlotKey generates a cache key for a rendered plot.
func PlotKey(dataset, embedding string, nbins int, column, action, colormap string) string {
	return fmt.Sprintf("plot:%s:%s:%d:%s:%s:%s", dataset, embedding, nbins, column, action, colormap)
}

// LabelsKey generates a cache key for label anchors.
func LabelsKey(dataset, embedding string, nbins int, column string) string {
	return fmt.Sprintf("labels:%s:%s:%d:%s", dataset, embedding, nbins, column)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"plot_cache_len":  m.plotCache.Len(),
		"plot_cache_cap":  m.plotCache.Capacity(),
		"table_cache_len": m.tableCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.plotCache.Close()
}
