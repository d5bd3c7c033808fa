// Package service provides business logic for the hexmap server.
package service

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/hexmap-sc/server/internal/cache"
	"github.com/hexmap-sc/server/internal/data/store"
	"github.com/hexmap-sc/server/internal/hexbin"
	"github.com/hexmap-sc/server/internal/render"
	"github.com/hexmap-sc/server/internal/tablestore"
	"github.com/hexmap-sc/server/pkg/colormap"
)

// Config contains hexbin service configuration.
type Config struct {
	DatasetID    string
	Store        *store.Reader
	Cache        *cache.Manager
	Renderer     *render.PlotRenderer
	Tables       *tablestore.Store // optional persistent table cache
	DefaultNbins int
	MaxNbins     int
}

// HexbinService computes and serves hexbin summaries for one dataset.
// Grids and assignments are expensive, so they are memoized per
// (embedding, resolution) pair; aggregation itself is cheap and reuses
// the shared assignment without synchronization.
type HexbinService struct {
	datasetID    string
	store        *store.Reader
	cache        *cache.Manager
	renderer     *render.PlotRenderer
	tables       *tablestore.Store
	defaultNbins int
	maxNbins     int

	binMu    sync.Mutex
	binCache map[binKey]*binEntry
}

type binKey struct {
	embedding string
	nbins     int
}

type binEntry struct {
	once       sync.Once
	grid       *hexbin.Grid
	assignment *hexbin.Assignment
	err        error
}

// NewHexbinService creates a new hexbin service.
func NewHexbinService(cfg Config) *HexbinService {
	datasetID := cfg.DatasetID
	if datasetID == "" {
		datasetID = "default"
	}
	defaultNbins := cfg.DefaultNbins
	if defaultNbins == 0 {
		defaultNbins = 40
	}
	maxNbins := cfg.MaxNbins
	if maxNbins == 0 {
		maxNbins = 512
	}
	return &HexbinService{
		datasetID:    datasetID,
		store:        cfg.Store,
		cache:        cfg.Cache,
		renderer:     cfg.Renderer,
		tables:       cfg.Tables,
		defaultNbins: defaultNbins,
		maxNbins:     maxNbins,
		binCache:     make(map[binKey]*binEntry),
	}
}

// DatasetID returns the dataset the service serves.
func (s *HexbinService) DatasetID() string { return s.datasetID }

// Metadata returns the dataset manifest.
func (s *HexbinService) Metadata() *store.Metadata { return s.store.Metadata() }

// ResolveNbins applies the default and upper bound to a requested
// resolution. Zero means "use the default"; anything above the
// configured maximum is rejected.
func (s *HexbinService) ResolveNbins(nbins int) (int, error) {
	if nbins == 0 {
		return s.defaultNbins, nil
	}
	if nbins > s.maxNbins {
		return 0, fmt.Errorf("%w: nbins %d above maximum %d", hexbin.ErrInvalidParameter, nbins, s.maxNbins)
	}
	return nbins, nil
}

// binning returns the memoized grid and assignment for an embedding at
// a resolution, computing them on first use.
func (s *HexbinService) binning(embedding string, nbins int) (*hexbin.Grid, *hexbin.Assignment, error) {
	key := binKey{embedding: embedding, nbins: nbins}

	s.binMu.Lock()
	entry, ok := s.binCache[key]
	if !ok {
		entry = &binEntry{}
		s.binCache[key] = entry
	}
	s.binMu.Unlock()

	entry.once.Do(func() {
		points, err := s.store.EmbeddingCoords(embedding)
		if err != nil {
			entry.err = err
			return
		}
		grid, err := hexbin.BuildGrid(points, nbins)
		if err != nil {
			entry.err = err
			return
		}
		assignment, err := hexbin.Assign(grid, points)
		if err != nil {
			entry.err = err
			return
		}
		entry.grid = grid
		entry.assignment = assignment
	})

	return entry.grid, entry.assignment, entry.err
}

// GetTable computes (or recalls) the aggregate table for one attribute
// and action over the given embedding and resolution.
func (s *HexbinService) GetTable(embedding string, nbins int, column string, action hexbin.Action) (*hexbin.Table, error) {
	nbins, err := s.ResolveNbins(nbins)
	if err != nil {
		return nil, err
	}

	storeKey := tablestore.Key{
		Dataset:   s.datasetID,
		Embedding: embedding,
		Nbins:     nbins,
		Column:    column,
		Action:    string(action),
	}
	if s.tables != nil {
		table, ok, err := s.tables.Load(storeKey)
		if err != nil {
			// Degraded store: recompute instead of failing the request.
			log.Printf("[%s] table store load failed for %s/%s: %v", s.datasetID, embedding, column, err)
		} else if ok {
			return table, nil
		}
	}

	_, assignment, err := s.binning(embedding, nbins)
	if err != nil {
		return nil, err
	}
	attr, err := s.store.AttributeColumn(column)
	if err != nil {
		return nil, err
	}

	table, err := hexbin.Aggregate(assignment, column, attr, action)
	if err != nil {
		return nil, err
	}

	if s.tables != nil {
		if err := s.tables.Save(storeKey, table); err != nil {
			// Persistence is best-effort; the computed table is still good.
			return table, nil
		}
	}
	return table, nil
}

// GetTableJSON returns the serialized table, memoized in the LRU cache.
func (s *HexbinService) GetTableJSON(embedding string, nbins int, column string, action hexbin.Action) ([]byte, error) {
	resolved, err := s.ResolveNbins(nbins)
	if err != nil {
		return nil, err
	}
	cacheKey := cache.TableKey(s.datasetID, embedding, resolved, column, string(action))
	if data, ok := s.cache.GetTable(cacheKey); ok {
		return data, nil
	}

	table, err := s.GetTable(embedding, resolved, column, action)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(table)
	if err != nil {
		return nil, err
	}
	s.cache.SetTable(cacheKey, data)
	return data, nil
}

// GetLabels returns one label anchor per level that is the majority of
// at least one bin, memoized in the LRU cache.
func (s *HexbinService) GetLabels(embedding string, nbins int, column string) ([]hexbin.LabelAnchor, error) {
	resolved, err := s.ResolveNbins(nbins)
	if err != nil {
		return nil, err
	}
	cacheKey := cache.LabelsKey(s.datasetID, embedding, resolved, column)
	if data, ok := s.cache.GetTable(cacheKey); ok {
		var anchors []hexbin.LabelAnchor
		if err := json.Unmarshal(data, &anchors); err == nil {
			return anchors, nil
		}
	}

	table, err := s.GetTable(embedding, resolved, column, hexbin.ActionMajority)
	if err != nil {
		return nil, err
	}
	anchors, err := hexbin.LocateLabels(table)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(anchors); err == nil {
		s.cache.SetTable(cacheKey, data)
	}
	return anchors, nil
}

// LegendItem is one level of a categorical column with its display
// color and observation count.
type LegendItem struct {
	Value     string `json:"value"`
	Color     string `json:"color"`
	Index     int    `json:"index"`
	CellCount int    `json:"cell_count"`
}

// GetLegend returns the level legend for a categorical column.
func (s *HexbinService) GetLegend(column string) ([]LegendItem, error) {
	attr, err := s.store.AttributeColumn(column)
	if err != nil {
		return nil, err
	}
	if attr.Kind() != hexbin.KindCategorical {
		return nil, fmt.Errorf("%w: legend requires a categorical column, %q is %s",
			hexbin.ErrTypeMismatch, column, attr.Kind())
	}

	levels := attr.Levels()
	counts := attr.LevelCounts()
	legend := make([]LegendItem, len(levels))
	for i, value := range levels {
		legend[i] = LegendItem{
			Value:     value,
			Color:     colormap.CategoryHex(i),
			Index:     i,
			CellCount: counts[i],
		}
	}
	return legend, nil
}

// GetPlot renders the aggregate as a hexagon plot PNG, memoized in the
// plot cache. Majority plots include label anchors.
func (s *HexbinService) GetPlot(embedding string, nbins int, column string, action hexbin.Action, colormapName string) ([]byte, error) {
	resolved, err := s.ResolveNbins(nbins)
	if err != nil {
		return nil, err
	}

	cacheKey := cache.PlotKey(s.datasetID, embedding, resolved, column, string(action), colormapName)
	if data, ok := s.cache.GetPlot(cacheKey); ok {
		return data, nil
	}

	grid, _, err := s.binning(embedding, resolved)
	if err != nil {
		return nil, err
	}
	table, err := s.GetTable(embedding, resolved, column, action)
	if err != nil {
		return nil, err
	}

	spec := render.PlotSpec{
		Table:      table,
		Column:     table.Columns[0],
		TileWidth:  grid.TileWidth(),
		TileHeight: grid.TileHeight(),
		Colormap:   colormapName,
	}
	spec.MinX, spec.MinY, spec.MaxX, spec.MaxY = grid.Bounds()

	if action == hexbin.ActionMajority {
		attr, err := s.store.AttributeColumn(column)
		if err != nil {
			return nil, err
		}
		spec.Levels = attr.Levels()
		anchors, err := hexbin.LocateLabels(table)
		if err != nil {
			return nil, err
		}
		spec.Anchors = anchors
	}

	data, err := s.renderer.RenderPlot(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}

	s.cache.SetPlot(cacheKey, data)
	return data, nil
}
