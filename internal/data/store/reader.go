// Package store reads preprocessed cellstore directories: per-observation
// attribute columns and 2-D embedding coordinates, one zstd-compressed
// binary file per column next to a metadata.json manifest.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/hexmap-sc/server/internal/hexbin"
)

// Name-resolution errors. The binning core never sees these; they belong
// to the data container boundary.
var (
	ErrUnknownColumn    = errors.New("unknown column")
	ErrUnknownEmbedding = errors.New("unknown embedding")
)

// ColumnKind tags an obs column in the manifest.
type ColumnKind string

const (
	ColumnNumeric     ColumnKind = "numeric"
	ColumnCategorical ColumnKind = "categorical"
)

// ColumnInfo describes one obs column.
type ColumnInfo struct {
	Kind   ColumnKind `json:"kind"`
	Levels []string   `json:"levels,omitempty"`
}

// Metadata is the cellstore manifest.
type Metadata struct {
	FormatVersion string                `json:"format_version"`
	DatasetName   string                `json:"dataset_name"`
	NCells        int                   `json:"n_cells"`
	Columns       map[string]ColumnInfo `json:"columns"`
	Embeddings    []string              `json:"embeddings"`
}

// Reader provides read access to one cellstore directory. It caches
// decoded columns; all methods are safe for concurrent use.
type Reader struct {
	basePath string
	metadata *Metadata
	decoder  *zstd.Decoder

	mu         sync.Mutex
	attrCache  map[string]*hexbin.Attribute
	coordCache map[string][]hexbin.Point
}

// NewReader opens a cellstore directory and loads its manifest.
func NewReader(basePath string) (*Reader, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(basePath, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata.json: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata.json: %w", err)
	}
	if md.NCells <= 0 {
		return nil, fmt.Errorf("invalid cellstore: n_cells=%d", md.NCells)
	}

	return &Reader{
		basePath:   basePath,
		metadata:   &md,
		decoder:    decoder,
		attrCache:  make(map[string]*hexbin.Attribute),
		coordCache: make(map[string][]hexbin.Point),
	}, nil
}

// Metadata returns the store manifest.
func (r *Reader) Metadata() *Metadata { return r.metadata }

// AttributeColumn returns the named obs column as a typed attribute.
func (r *Reader) AttributeColumn(name string) (*hexbin.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.attrCache[name]; ok {
		return cached, nil
	}

	info, ok := r.metadata.Columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}

	raw, err := r.readBlob(filepath.Join("obs", name+".bin.zst"))
	if err != nil {
		return nil, fmt.Errorf("failed to read column %q: %w", name, err)
	}

	var attr *hexbin.Attribute
	switch info.Kind {
	case ColumnNumeric:
		values, err := decodeFloat64s(raw, r.metadata.NCells)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		attr = hexbin.NewNumeric(values)
	case ColumnCategorical:
		codes, err := decodeInt32s(raw, r.metadata.NCells)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		attr, err = hexbin.NewCategoricalCodes(codes, info.Levels)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("column %q: unknown kind %q", name, info.Kind)
	}

	r.attrCache[name] = attr
	return attr, nil
}

// EmbeddingCoords returns the named embedding as a point set, one
// coordinate pair per observation in cell order.
func (r *Reader) EmbeddingCoords(name string) ([]hexbin.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.coordCache[name]; ok {
		return cached, nil
	}

	known := false
	for _, e := range r.metadata.Embeddings {
		if e == name {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmbedding, name)
	}

	raw, err := r.readBlob(filepath.Join("obsm", name+".bin.zst"))
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding %q: %w", name, err)
	}
	flat, err := decodeFloat64s(raw, 2*r.metadata.NCells)
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", name, err)
	}

	points := make([]hexbin.Point, r.metadata.NCells)
	for i := range points {
		points[i] = hexbin.Point{X: flat[2*i], Y: flat[2*i+1]}
	}

	r.coordCache[name] = points
	return points, nil
}

func (r *Reader) readBlob(rel string) ([]byte, error) {
	compressed, err := os.ReadFile(filepath.Join(r.basePath, rel))
	if err != nil {
		return nil, err
	}
	decompressed, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed: %w", err)
	}
	return decompressed, nil
}

func decodeFloat64s(raw []byte, n int) ([]float64, error) {
	if len(raw) != 8*n {
		return nil, fmt.Errorf("expected %d bytes, got %d", 8*n, len(raw))
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

func decodeInt32s(raw []byte, n int) ([]int, error) {
	if len(raw) != 4*n {
		return nil, fmt.Errorf("expected %d bytes, got %d", 4*n, len(raw))
	}
	out := make([]int, n)
	for i := range out {
		out[i] = int(int32(binary.LittleEndian.Uint32(raw[4*i:])))
	}
	return out, nil
}
