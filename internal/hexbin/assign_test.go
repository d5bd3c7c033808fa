package hexbin

import (
	"errors"
	"math/rand"
	"testing"
)

func randomPoints(t *testing.T, n int, seed int64) []Point {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: rng.Float64() * 20, Y: rng.Float64() * 12}
	}
	return points
}

func mustAssign(t *testing.T, points []Point, nbins int) *Assignment {
	t.Helper()
	grid, err := BuildGrid(points, nbins)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	a, err := Assign(grid, points)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	return a
}

func TestAssign_ShapeMismatch(t *testing.T) {
	points := randomPoints(t, 50, 1)
	grid, err := BuildGrid(points, 8)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	if _, err := Assign(grid, points[:49]); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestAssign_TotalityAndUniqueness(t *testing.T) {
	points := randomPoints(t, 500, 7)
	a := mustAssign(t, points, 16)

	if a.Len() != len(points) {
		t.Fatalf("expected %d assignments, got %d", len(points), a.Len())
	}

	// The union of bin member sets is the full index range, each index
	// exactly once, and membership matches BinOf.
	seen := make([]int, len(points))
	for _, bin := range a.Bins() {
		if bin.Count != len(bin.Members) {
			t.Errorf("bin %d: count %d != members %d", bin.ID, bin.Count, len(bin.Members))
		}
		if bin.Count == 0 {
			t.Errorf("bin %d: unpopulated bin reported", bin.ID)
		}
		for _, m := range bin.Members {
			seen[m]++
			if a.BinOf(m) != bin.ID {
				t.Errorf("point %d: BinOf=%d but member of bin %d", m, a.BinOf(m), bin.ID)
			}
		}
	}
	for i, n := range seen {
		if n != 1 {
			t.Errorf("point %d assigned %d times", i, n)
		}
	}
}

func TestAssign_NearestCenter(t *testing.T) {
	points := randomPoints(t, 300, 3)
	a := mustAssign(t, points, 12)
	grid := a.Grid()

	// The assigned tile center must be at least as close as every other
	// tile center in the grid.
	for i, p := range points {
		assigned := grid.distSqID(p, a.BinOf(i))
		for id := 0; id < grid.NumTiles(); id++ {
			if d := grid.distSqID(p, id); d < assigned-1e-9 {
				t.Fatalf("point %d: tile %d at %g closer than assigned %d at %g",
					i, id, d, a.BinOf(i), assigned)
			}
		}
	}
}

func (g *Grid) distSqID(p Point, id int) float64 {
	c := g.TileCenter(id)
	dx := p.X - c.X
	dy := p.Y - c.Y
	return dx*dx + dy*dy
}

func TestAssign_Determinism(t *testing.T) {
	points := randomPoints(t, 400, 11)

	first := mustAssign(t, points, 10)
	for run := 0; run < 3; run++ {
		a := mustAssign(t, points, 10)
		for i := 0; i < a.Len(); i++ {
			if a.BinOf(i) != first.BinOf(i) {
				t.Fatalf("run %d: point %d assigned to %d, first run %d",
					run, i, a.BinOf(i), first.BinOf(i))
			}
		}
		if len(a.Bins()) != len(first.Bins()) {
			t.Fatalf("run %d: %d bins vs %d", run, len(a.Bins()), len(first.Bins()))
		}
		for k, bin := range a.Bins() {
			if bin.ID != first.Bins()[k].ID {
				t.Fatalf("run %d: bin order differs at %d", run, k)
			}
		}
	}
}

func TestAssign_BinIDStability(t *testing.T) {
	// The same geometric tile keeps its ID regardless of which tiles end
	// up populated: IDs are row-major over the whole grid.
	points := randomPoints(t, 200, 5)
	a := mustAssign(t, points, 8)
	grid := a.Grid()

	for _, bin := range a.Bins() {
		if got := grid.TileCenter(bin.ID); got != bin.Center {
			t.Errorf("bin %d: centroid %v != tile center %v", bin.ID, bin.Center, got)
		}
	}

	ids := a.Bins()
	for k := 1; k < len(ids); k++ {
		if ids[k].ID <= ids[k-1].ID {
			t.Errorf("bins not in ascending ID order at %d", k)
		}
	}
}

func TestAssign_TwoClusters(t *testing.T) {
	// Two tight, well separated clusters must land in two distinct bins.
	points := []Point{
		{0, 0}, {0, 0}, {0, 0},
		{10, 10}, {10, 10}, {10, 10},
	}
	a := mustAssign(t, points, 4)

	bins := a.Bins()
	if len(bins) != 2 {
		t.Fatalf("expected 2 populated bins, got %d", len(bins))
	}
	if bins[0].Count != 3 || bins[1].Count != 3 {
		t.Errorf("expected 3 members each, got %d and %d", bins[0].Count, bins[1].Count)
	}
	if a.BinOf(0) == a.BinOf(3) {
		t.Errorf("clusters share bin %d", a.BinOf(0))
	}
}
