package hexbin

import (
	"fmt"
	"math"
	"sort"
)

// Bin is one populated tile of the grid.
type Bin struct {
	ID      int
	Center  Point
	Count   int
	Members []int // indices into the source point set, ascending
}

// Assignment maps every point of a point set to exactly one tile ID.
// It is read-only after construction and safe to share across concurrent
// aggregation calls.
type Assignment struct {
	grid     *Grid
	binOf    []int // point index -> tile ID
	bins     []Bin // populated bins, ascending ID
	binIndex map[int]int
}

// Assign computes the point-to-tile assignment for the point set the grid
// was built from. Every point maps to its nearest tile center using the
// two-candidate-row rule: the nearest center on the unshifted (even) row
// lattice and the nearest center on the half-width-shifted (odd) row
// lattice are both evaluated, and the closer one wins. An exact tie is
// broken by the lower row index, then the lower column index.
func Assign(grid *Grid, points []Point) (*Assignment, error) {
	if len(points) != grid.nPoints {
		return nil, fmt.Errorf("%w: grid built from %d points, got %d", ErrShapeMismatch, grid.nPoints, len(points))
	}

	binOf := make([]int, len(points))
	members := make(map[int][]int)

	for i, p := range points {
		id := grid.nearestTile(p)
		binOf[i] = id
		members[id] = append(members[id], i)
	}

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	bins := make([]Bin, len(ids))
	binIndex := make(map[int]int, len(ids))
	for k, id := range ids {
		bins[k] = Bin{
			ID:      id,
			Center:  grid.TileCenter(id),
			Count:   len(members[id]),
			Members: members[id],
		}
		binIndex[id] = k
	}

	return &Assignment{
		grid:     grid,
		binOf:    binOf,
		bins:     bins,
		binIndex: binIndex,
	}, nil
}

// nearestTile returns the tile ID covering point p.
func (g *Grid) nearestTile(p Point) int {
	px := (p.X - g.minX) / g.width
	py := (p.Y - g.minY) / g.rowStep

	// Candidate on the even-row lattice (rows 0, 2, 4, ...).
	rowE := clampEven(2*int(math.Round(py/2)), g.nRows)
	colE := clampCol(int(math.Round(px)), g.nCols)
	dE := g.distSq(p, rowE, colE)

	if g.nRows < 2 {
		return g.tileID(rowE, colE)
	}

	// Candidate on the odd-row lattice (rows 1, 3, 5, ...), shifted right
	// by half a tile width.
	rowO := clampOdd(2*int(math.Round((py-1)/2))+1, g.nRows)
	colO := clampCol(int(math.Round(px-0.5)), g.nCols)
	dO := g.distSq(p, rowO, colO)

	if dO < dE {
		return g.tileID(rowO, colO)
	}
	if dE < dO {
		return g.tileID(rowE, colE)
	}
	// Exact tie: lower row wins, then lower column.
	if rowO < rowE || (rowO == rowE && colO < colE) {
		return g.tileID(rowO, colO)
	}
	return g.tileID(rowE, colE)
}

func (g *Grid) distSq(p Point, row, col int) float64 {
	c := g.TileCenter(g.tileID(row, col))
	dx := p.X - c.X
	dy := p.Y - c.Y
	return dx*dx + dy*dy
}

func clampEven(row, nRows int) int {
	if row < 0 {
		return 0
	}
	maxEven := (nRows - 1) &^ 1
	if row > maxEven {
		return maxEven
	}
	return row
}

func clampOdd(row, nRows int) int {
	if row < 1 {
		return 1
	}
	maxOdd := nRows - 1
	if maxOdd%2 == 0 {
		maxOdd--
	}
	if row > maxOdd {
		return maxOdd
	}
	return row
}

func clampCol(col, nCols int) int {
	if col < 0 {
		return 0
	}
	if col > nCols-1 {
		return nCols - 1
	}
	return col
}

// Grid returns the grid the assignment was computed against.
func (a *Assignment) Grid() *Grid { return a.grid }

// Len returns the number of assigned points.
func (a *Assignment) Len() int { return len(a.binOf) }

// BinOf returns the tile ID the i-th point is assigned to.
func (a *Assignment) BinOf(i int) int { return a.binOf[i] }

// Bins returns the populated bins in ascending tile ID order.
func (a *Assignment) Bins() []Bin { return a.bins }

// Bin returns the populated bin with the given tile ID.
func (a *Assignment) Bin(id int) (Bin, bool) {
	k, ok := a.binIndex[id]
	if !ok {
		return Bin{}, false
	}
	return a.bins[k], true
}
