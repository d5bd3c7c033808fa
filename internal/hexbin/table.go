package hexbin

// Column is one aggregate output column of a Table. Numeric columns fill
// Floats; the majority column fills Labels.
type Column struct {
	Name   string    `json:"name"`
	Kind   Kind      `json:"kind"`
	Floats []float64 `json:"values,omitempty"`
	Labels []string  `json:"labels,omitempty"`
}

// Table is the bin-indexed result handed to the rendering layer: one row
// per populated bin (ascending tile ID) with centroid coordinates, member
// count, and the requested aggregate columns.
type Table struct {
	BinID   []int     `json:"bin_id"`
	X       []float64 `json:"x"`
	Y       []float64 `json:"y"`
	Count   []int     `json:"count"`
	Columns []Column  `json:"columns"`
}

func newTable(a *Assignment, cols []Column) *Table {
	n := len(a.bins)
	t := &Table{
		BinID:   make([]int, n),
		X:       make([]float64, n),
		Y:       make([]float64, n),
		Count:   make([]int, n),
		Columns: cols,
	}
	for k, bin := range a.bins {
		t.BinID[k] = bin.ID
		t.X[k] = bin.Center.X
		t.Y[k] = bin.Center.Y
		t.Count[k] = bin.Count
	}
	return t
}

// NumRows returns the populated bin count.
func (t *Table) NumRows() int { return len(t.BinID) }

// Column returns the named aggregate column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
