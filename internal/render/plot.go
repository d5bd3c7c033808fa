// Package render draws hexbin result tables as PNG plots using fogleman/gg.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"github.com/hexmap-sc/server/internal/hexbin"
	"github.com/hexmap-sc/server/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	PlotSize        int
	DefaultColormap string
}

// PlotSpec describes one plot: the table to draw, which column colors
// the hexagons, the tile geometry, and optional label anchors.
type PlotSpec struct {
	Table      *hexbin.Table
	Column     hexbin.Column
	TileWidth  float64 // hexagon width in data units
	TileHeight float64 // hexagon height in data units
	MinX       float64
	MinY       float64
	MaxX       float64
	MaxY       float64
	Levels     []string // level order for categorical columns
	Anchors    []hexbin.LabelAnchor
	Colormap   string
}

// PlotRenderer renders hexbin tables to PNG.
type PlotRenderer struct {
	config      Config
	contextPool sync.Pool
	bufferPool  sync.Pool
}

// NewPlotRenderer creates a new plot renderer.
func NewPlotRenderer(cfg Config) *PlotRenderer {
	return &PlotRenderer{
		config: cfg,
		contextPool: sync.Pool{
			New: func() interface{} {
				return gg.NewContext(cfg.PlotSize, cfg.PlotSize)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 64*1024))
			},
		},
	}
}

// RenderPlot draws the table as filled hexagons and returns PNG bytes.
// Numeric columns use a continuous colormap scaled to the column range;
// the majority column uses the categorical palette plus text anchors.
func (r *PlotRenderer) RenderPlot(spec PlotSpec) ([]byte, error) {
	if spec.Table == nil || spec.Table.NumRows() == 0 {
		return nil, fmt.Errorf("empty table")
	}

	dc := r.contextPool.Get().(*gg.Context)
	defer r.contextPool.Put(dc)

	dc.SetColor(color.White)
	dc.Clear()

	// Fit the bounding box into the canvas, keeping aspect, with a
	// one-tile margin so boundary hexagons are not clipped.
	size := float64(r.config.PlotSize)
	padX := spec.TileWidth
	padY := spec.TileHeight
	spanX := spec.MaxX - spec.MinX + 2*padX
	spanY := spec.MaxY - spec.MinY + 2*padY
	scale := math.Min(size/spanX, size/spanY)
	offX := (size - scale*spanX) / 2
	offY := (size - scale*spanY) / 2

	toPx := func(x, y float64) (float64, float64) {
		px := offX + scale*(x-spec.MinX+padX)
		// Flip Y: data up is screen down.
		py := size - offY - scale*(y-spec.MinY+padY)
		return px, py
	}

	// Circumradius of a pointy-top hexagon with the given full height.
	radius := scale * spec.TileHeight / 2

	levelIndex := make(map[string]int, len(spec.Levels))
	for i, l := range spec.Levels {
		levelIndex[l] = i
	}

	t := spec.Table
	switch spec.Column.Kind {
	case hexbin.KindCategorical:
		for row := range t.BinID {
			px, py := toPx(t.X[row], t.Y[row])
			dc.SetColor(colormap.CategoryColor(levelIndex[spec.Column.Labels[row]]))
			dc.DrawRegularPolygon(6, px, py, radius, 0)
			dc.Fill()
		}
	default:
		lo, hi := columnRange(spec.Column.Floats)
		span := hi - lo
		if span == 0 {
			span = 1
		}
		name := spec.Colormap
		if name == "" {
			name = r.config.DefaultColormap
		}
		cmap := colormap.ByName(name)
		for row := range t.BinID {
			px, py := toPx(t.X[row], t.Y[row])
			dc.SetColor(cmap.At((spec.Column.Floats[row] - lo) / span))
			dc.DrawRegularPolygon(6, px, py, radius, 0)
			dc.Fill()
		}
	}

	for _, anchor := range spec.Anchors {
		px, py := toPx(anchor.X, anchor.Y)
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(anchor.Level, px, py, 0.5, 0.5)
	}

	return r.encodeContext(dc)
}

func columnRange(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func (r *PlotRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy out; the buffer is reused.
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
