package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hexmap-sc/server/internal/cache"
	"github.com/hexmap-sc/server/internal/data/store"
	"github.com/hexmap-sc/server/internal/render"
	"github.com/hexmap-sc/server/internal/service"
)

// newTestRouter builds a router over one dataset with two separated
// clusters, a numeric "score" column and a categorical "cell_type".
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dir := t.TempDir()
	w, err := store.NewWriter(dir, "clusters", 6)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	coords := []float64{0, 0, 0, 10, 10, 10}
	if err := w.AddEmbedding("umap", coords, coords); err != nil {
		t.Fatalf("AddEmbedding: %v", err)
	}
	if err := w.AddNumericColumn("score", []float64{1, 2, 3, 10, 20, 30}); err != nil {
		t.Fatalf("AddNumericColumn: %v", err)
	}
	if err := w.AddCategoricalColumn("cell_type", []int{0, 0, 0, 1, 1, 1}, []string{"B", "T"}); err != nil {
		t.Fatalf("AddCategoricalColumn: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	reader, err := store.NewReader(dir)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	cacheManager, err := cache.NewManager(cache.Config{
		PlotCacheSizeMB: 8,
		PlotTTL:         time.Minute,
		TableCacheSize:  16,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { cacheManager.Close() })

	registry := NewDatasetRegistry("clusters", "Test Atlas")
	registry.Register("clusters", service.NewHexbinService(service.Config{
		DatasetID:    "clusters",
		Store:        reader,
		Cache:        cacheManager,
		Renderer:     render.NewPlotRenderer(render.Config{PlotSize: 200, DefaultColormap: "viridis"}),
		DefaultNbins: 4,
		MaxNbins:     64,
	}))

	return NewRouter(RouterConfig{Registry: registry})
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestDatasetsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/api/datasets")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Default  string   `json:"default"`
		Datasets []string `json:"datasets"`
		Title    string   `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body.Default != "clusters" {
		t.Errorf("default = %q, want clusters", body.Default)
	}
	if len(body.Datasets) != 1 || body.Datasets[0] != "clusters" {
		t.Errorf("datasets = %v, want [clusters]", body.Datasets)
	}
	if body.Title != "Test Atlas" {
		t.Errorf("title = %q", body.Title)
	}
}

func TestMetadataEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/d/clusters/api/metadata")
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata status = %d, want 200", rec.Code)
	}

	rec = get(t, router, "/d/clusters/api/columns")
	if rec.Code != http.StatusOK {
		t.Fatalf("columns status = %d, want 200", rec.Code)
	}
	var cols struct {
		Columns []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cols); err != nil {
		t.Fatalf("Unmarshal columns: %v", err)
	}
	if len(cols.Columns) != 2 {
		t.Errorf("len(columns) = %d, want 2", len(cols.Columns))
	}

	rec = get(t, router, "/d/clusters/api/embeddings")
	if rec.Code != http.StatusOK {
		t.Fatalf("embeddings status = %d, want 200", rec.Code)
	}
	var emb struct {
		Embeddings []string `json:"embeddings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &emb); err != nil {
		t.Fatalf("Unmarshal embeddings: %v", err)
	}
	if len(emb.Embeddings) != 1 || emb.Embeddings[0] != "umap" {
		t.Errorf("embeddings = %v, want [umap]", emb.Embeddings)
	}
}

func TestTableEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/d/clusters/api/hexbin/table?embedding=umap&nbins=4&column=score&action=mean")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var table struct {
		BinID []int `json:"bin_id"`
		Count []int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &table); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(table.BinID) != 2 {
		t.Errorf("len(bin_id) = %d, want 2", len(table.BinID))
	}
}

func TestLabelsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/d/clusters/api/hexbin/labels?embedding=umap&nbins=4&column=cell_type")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Labels []struct {
			Level string  `json:"level"`
			X     float64 `json:"x"`
			Y     float64 `json:"y"`
		} `json:"labels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(body.Labels) != 2 {
		t.Errorf("len(labels) = %d, want 2", len(body.Labels))
	}
}

func TestLegendEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/d/clusters/api/hexbin/legend?column=cell_type")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Legend []struct {
			Value string `json:"value"`
			Color string `json:"color"`
		} `json:"legend"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(body.Legend) != 2 {
		t.Errorf("len(legend) = %d, want 2", len(body.Legend))
	}
}

func TestPlotEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/d/clusters/hexbin/plot.png?embedding=umap&nbins=4&column=score&action=median")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}) {
		t.Error("body is not a PNG")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{
			name: "unknown dataset",
			path: "/d/nope/api/hexbin/table?embedding=umap&column=score&action=mean",
			want: http.StatusNotFound,
		},
		{
			name: "unknown column",
			path: "/d/clusters/api/hexbin/table?embedding=umap&column=nope&action=mean",
			want: http.StatusNotFound,
		},
		{
			name: "unknown embedding",
			path: "/d/clusters/api/hexbin/table?embedding=tsne&column=score&action=mean",
			want: http.StatusNotFound,
		},
		{
			name: "unsupported action",
			path: "/d/clusters/api/hexbin/table?embedding=umap&column=score&action=variance",
			want: http.StatusBadRequest,
		},
		{
			name: "missing embedding",
			path: "/d/clusters/api/hexbin/table?column=score&action=mean",
			want: http.StatusBadRequest,
		},
		{
			name: "nbins above maximum",
			path: "/d/clusters/api/hexbin/table?embedding=umap&nbins=1000&column=score&action=mean",
			want: http.StatusBadRequest,
		},
		{
			name: "action kind mismatch",
			path: "/d/clusters/api/hexbin/table?embedding=umap&column=score&action=majority",
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "legend on numeric column",
			path: "/d/clusters/api/hexbin/legend?column=score",
			want: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.path)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
