package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Writer builds a cellstore directory. Used by preprocessing pipelines
// and test fixtures; columns and embeddings must all cover the same
// observation count.
type Writer struct {
	basePath string
	nCells   int
	metadata Metadata
	encoder  *zstd.Encoder
}

// NewWriter prepares a cellstore at basePath for nCells observations.
func NewWriter(basePath, datasetName string, nCells int) (*Writer, error) {
	if nCells <= 0 {
		return nil, fmt.Errorf("invalid cell count %d", nCells)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	for _, sub := range []string{"obs", "obsm"} {
		if err := os.MkdirAll(filepath.Join(basePath, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return &Writer{
		basePath: basePath,
		nCells:   nCells,
		metadata: Metadata{
			FormatVersion: "1",
			DatasetName:   datasetName,
			NCells:        nCells,
			Columns:       make(map[string]ColumnInfo),
		},
		encoder: encoder,
	}, nil
}

// AddNumericColumn writes a numeric obs column.
func (w *Writer) AddNumericColumn(name string, values []float64) error {
	if len(values) != w.nCells {
		return fmt.Errorf("column %q: %d values for %d cells", name, len(values), w.nCells)
	}
	if err := w.writeBlob(filepath.Join("obs", name+".bin.zst"), encodeFloat64s(values)); err != nil {
		return err
	}
	w.metadata.Columns[name] = ColumnInfo{Kind: ColumnNumeric}
	return nil
}

// AddCategoricalColumn writes a categorical obs column as level codes
// over the given ordered level domain.
func (w *Writer) AddCategoricalColumn(name string, codes []int, levels []string) error {
	if len(codes) != w.nCells {
		return fmt.Errorf("column %q: %d codes for %d cells", name, len(codes), w.nCells)
	}
	for i, c := range codes {
		if c < 0 || c >= len(levels) {
			return fmt.Errorf("column %q: code %d at index %d outside %d levels", name, c, i, len(levels))
		}
	}
	if err := w.writeBlob(filepath.Join("obs", name+".bin.zst"), encodeInt32s(codes)); err != nil {
		return err
	}
	w.metadata.Columns[name] = ColumnInfo{Kind: ColumnCategorical, Levels: levels}
	return nil
}

// AddEmbedding writes a 2-D embedding as interleaved x,y pairs.
func (w *Writer) AddEmbedding(name string, xs, ys []float64) error {
	if len(xs) != w.nCells || len(ys) != w.nCells {
		return fmt.Errorf("embedding %q: %d/%d coords for %d cells", name, len(xs), len(ys), w.nCells)
	}
	flat := make([]float64, 0, 2*w.nCells)
	for i := range xs {
		flat = append(flat, xs[i], ys[i])
	}
	if err := w.writeBlob(filepath.Join("obsm", name+".bin.zst"), encodeFloat64s(flat)); err != nil {
		return err
	}
	w.metadata.Embeddings = append(w.metadata.Embeddings, name)
	return nil
}

// Finish writes the manifest.
func (w *Writer) Finish() error {
	data, err := json.MarshalIndent(&w.metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.basePath, "metadata.json"), data, 0o644)
}

func (w *Writer) writeBlob(rel string, raw []byte) error {
	compressed := w.encoder.EncodeAll(raw, nil)
	return os.WriteFile(filepath.Join(w.basePath, rel), compressed, 0o644)
}

func encodeFloat64s(values []float64) []byte {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return raw
}

func encodeInt32s(codes []int) []byte {
	raw := make([]byte, 4*len(codes))
	for i, c := range codes {
		binary.LittleEndian.PutUint32(raw[4*i:], uint32(int32(c)))
	}
	return raw
}
