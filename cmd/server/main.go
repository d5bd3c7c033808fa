// Package main is the entry point for the hexmap server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hexmap-sc/server/internal/api"
	"github.com/hexmap-sc/server/internal/cache"
	"github.com/hexmap-sc/server/internal/config"
	"github.com/hexmap-sc/server/internal/data/store"
	"github.com/hexmap-sc/server/internal/render"
	"github.com/hexmap-sc/server/internal/service"
	"github.com/hexmap-sc/server/internal/tablestore"
)

func main() {
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting hexmap server on port %d", cfg.Server.Port)

	// Cache manager and renderer are shared across all datasets.
	cacheManager, err := cache.NewManager(cache.Config{
		PlotCacheSizeMB: cfg.Cache.PlotSizeMB,
		PlotTTL:         time.Duration(cfg.Cache.PlotTTLMinutes) * time.Minute,
		TableCacheSize:  cfg.Cache.TableCacheEntries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	plotRenderer := render.NewPlotRenderer(render.Config{
		PlotSize:        cfg.Render.PlotSize,
		DefaultColormap: cfg.Render.DefaultColormap,
	})

	var tables *tablestore.Store
	if cfg.Hexbin.SQLitePath != "" {
		tables, err = tablestore.Open(cfg.Hexbin.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open table store: %v", err)
		}
		defer tables.Close()
		log.Printf("Table store: %s", cfg.Hexbin.SQLitePath)
	}

	datasetIDs := cfg.Data.DatasetIDs()
	registry := api.NewDatasetRegistry(cfg.Data.DefaultDataset, cfg.Server.Title)

	log.Printf("Initializing %d dataset(s), default: %s", len(datasetIDs), cfg.Data.DefaultDataset)

	for _, datasetID := range datasetIDs {
		ds := cfg.Data.Datasets[datasetID]

		reader, err := store.NewReader(ds.StorePath)
		if err != nil {
			log.Fatalf("Failed to open cellstore for dataset %q: %v", datasetID, err)
		}

		md := reader.Metadata()
		log.Printf("  [%s] Loaded from: %s", datasetID, ds.StorePath)
		log.Printf("    Cells: %d, Columns: %d, Embeddings: %v", md.NCells, len(md.Columns), md.Embeddings)

		registry.Register(datasetID, service.NewHexbinService(service.Config{
			DatasetID:    datasetID,
			Store:        reader,
			Cache:        cacheManager,
			Renderer:     plotRenderer,
			Tables:       tables,
			DefaultNbins: cfg.Hexbin.DefaultNbins,
			MaxNbins:     cfg.Hexbin.MaxNbins,
		}))
	}

	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
