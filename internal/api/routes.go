// Package api provides HTTP handlers for the hexmap server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hexmap-sc/server/internal/data/store"
	"github.com/hexmap-sc/server/internal/hexbin"
	"github.com/hexmap-sc/server/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *DatasetRegistry
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global datasets endpoint (not dataset-scoped)
	r.Get("/api/datasets", datasetsHandler(cfg.Registry))

	// Dataset-scoped routes: /d/{dataset}/...
	r.Route("/d/{dataset}", func(r chi.Router) {
		r.Use(datasetMiddleware(cfg.Registry))

		r.Get("/hexbin/plot.png", plotHandler)

		r.Route("/api", func(r chi.Router) {
			r.Get("/metadata", metadataHandler)
			r.Get("/columns", columnsHandler)
			r.Get("/embeddings", embeddingsHandler)
			r.Get("/hexbin/table", tableHandler)
			r.Get("/hexbin/labels", labelsHandler)
			r.Get("/hexbin/legend", legendHandler)
		})
	})

	return r
}

// Context key for dataset service
type ctxKey string

const datasetServiceKey ctxKey = "datasetService"

// datasetMiddleware resolves the dataset from the URL and injects the
// hexbin service into context.
func datasetMiddleware(registry *DatasetRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			datasetID := chi.URLParam(r, "dataset")
			svc := registry.Get(datasetID)
			if svc == nil {
				http.Error(w, "dataset not found: "+datasetID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), datasetServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getDatasetService(r *http.Request) *service.HexbinService {
	if svc, ok := r.Context().Value(datasetServiceKey).(*service.HexbinService); ok {
		return svc
	}
	return nil
}

// datasetsHandler returns the list of available datasets.
func datasetsHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default":  registry.DefaultDatasetID(),
			"datasets": registry.DatasetIDs(),
			"title":    registry.Title(),
		})
	}
}

func metadataHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	writeJSON(w, svc.Metadata())
}

func columnsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}

	md := svc.Metadata()
	type columnItem struct {
		Name   string   `json:"name"`
		Kind   string   `json:"kind"`
		Levels []string `json:"levels,omitempty"`
	}
	columns := make([]columnItem, 0, len(md.Columns))
	for name, info := range md.Columns {
		columns = append(columns, columnItem{Name: name, Kind: string(info.Kind), Levels: info.Levels})
	}
	writeJSON(w, map[string]interface{}{"columns": columns})
}

func embeddingsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"embeddings": svc.Metadata().Embeddings})
}

// hexbinParams extracts the common hexbin query parameters.
func hexbinParams(r *http.Request) (embedding string, nbins int, column string, err error) {
	q := r.URL.Query()
	embedding = strings.TrimSpace(q.Get("embedding"))
	if embedding == "" {
		return "", 0, "", errors.New("missing required query param: embedding")
	}
	column = strings.TrimSpace(q.Get("column"))
	if column == "" {
		return "", 0, "", errors.New("missing required query param: column")
	}
	if raw := q.Get("nbins"); raw != "" {
		nbins, err = strconv.Atoi(raw)
		if err != nil {
			return "", 0, "", errors.New("invalid nbins: " + raw)
		}
	}
	return embedding, nbins, column, nil
}

func tableHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}

	embedding, nbins, column, err := hexbinParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action, err := hexbin.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	data, err := svc.GetTableJSON(embedding, nbins, column, action)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func labelsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}

	embedding, nbins, column, err := hexbinParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	anchors, err := svc.GetLabels(embedding, nbins, column)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"labels": anchors})
}

func legendHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}

	column := strings.TrimSpace(r.URL.Query().Get("column"))
	if column == "" {
		http.Error(w, "missing required query param: column", http.StatusBadRequest)
		return
	}

	legend, err := svc.GetLegend(column)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"legend": legend})
}

func plotHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}

	embedding, nbins, column, err := hexbinParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action, err := hexbin.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	data, err := svc.GetPlot(embedding, nbins, column, action, r.URL.Query().Get("colormap"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeCoreError maps core and store errors to HTTP status codes.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownColumn), errors.Is(err, store.ErrUnknownEmbedding):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, hexbin.ErrInvalidParameter),
		errors.Is(err, hexbin.ErrUnsupportedAction),
		errors.Is(err, hexbin.ErrShapeMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, hexbin.ErrTypeMismatch),
		errors.Is(err, hexbin.ErrDegenerateInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
