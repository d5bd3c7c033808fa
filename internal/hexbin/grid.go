// Package hexbin implements hexagonal binning and per-bin aggregation for
// 2-D embedding point sets (UMAP/t-SNE cell coordinates). The package is
// pure computation: no I/O, no shared mutable state, deterministic output
// for identical input.
package hexbin

import (
	"fmt"
	"math"
)

// Point is a single 2-D embedding coordinate.
type Point struct {
	X float64
	Y float64
}

// Grid is a hexagonal tiling covering the bounding box of a point set.
// Tiles are regular hexagons laid out in the standard brick-and-offset
// scheme: odd rows shifted right by half a tile width. Tile IDs are
// row-major over all tiles in the grid, populated or not, so the same
// geometric tile always gets the same ID for a given grid.
type Grid struct {
	nPoints int
	nbins   int

	minX, minY float64
	maxX, maxY float64

	width   float64 // horizontal center spacing within a row
	height  float64 // full hexagon height (2*width/sqrt(3))
	rowStep float64 // vertical center spacing between rows (0.75*height)

	nCols int
	nRows int
}

// BuildGrid constructs a hexagonal tiling for the given point set with
// nbins tiles spanning the x-range. The y-direction tile count is derived
// so hexagons stay regular.
func BuildGrid(points []Point, nbins int) (*Grid, error) {
	if nbins < 2 {
		return nil, fmt.Errorf("%w: nbins must be >= 2, got %d", ErrInvalidParameter, nbins)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty point set", ErrDegenerateInput)
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX <= 0 || rangeY <= 0 {
		return nil, fmt.Errorf("%w: bounding box %gx%g has zero extent", ErrDegenerateInput, rangeX, rangeY)
	}

	width := rangeX / float64(nbins)
	height := width * 2 / math.Sqrt(3)
	rowStep := 0.75 * height

	// One extra column so points at maxX round into a valid tile, and
	// enough rows that the topmost row center is at or above maxY.
	nCols := nbins + 1
	nRows := int(math.Ceil(rangeY/rowStep)) + 1

	return &Grid{
		nPoints: len(points),
		nbins:   nbins,
		minX:    minX,
		minY:    minY,
		maxX:    maxX,
		maxY:    maxY,
		width:   width,
		height:  height,
		rowStep: rowStep,
		nCols:   nCols,
		nRows:   nRows,
	}, nil
}

// NumTiles returns the total tile count covering the bounding box.
func (g *Grid) NumTiles() int { return g.nRows * g.nCols }

// NumPoints returns the size of the point set the grid was built from.
func (g *Grid) NumPoints() int { return g.nPoints }

// Resolution returns the requested x-axis bin count.
func (g *Grid) Resolution() int { return g.nbins }

// TileWidth returns the horizontal center spacing of the tiling.
func (g *Grid) TileWidth() float64 { return g.width }

// TileHeight returns the full height of one hexagon.
func (g *Grid) TileHeight() float64 { return g.height }

// Bounds returns the bounding box of the source point set.
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	return g.minX, g.minY, g.maxX, g.maxY
}

func (g *Grid) tileID(row, col int) int {
	return row*g.nCols + col
}

// TileCenter returns the center coordinate of a tile in the same
// coordinate space as the input points.
func (g *Grid) TileCenter(id int) Point {
	row := id / g.nCols
	col := id % g.nCols
	x := g.minX + float64(col)*g.width
	if row%2 == 1 {
		x += g.width / 2
	}
	y := g.minY + float64(row)*g.rowStep
	return Point{X: x, Y: y}
}
