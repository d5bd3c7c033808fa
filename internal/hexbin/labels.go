package hexbin

import "fmt"

// LabelAnchor places a category label on a chart: the arithmetic-mean
// centroid of every bin whose majority equals the level.
type LabelAnchor struct {
	Level string  `json:"level"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// LocateLabels derives one anchor per level appearing in the majority
// column of t. Levels that are never a bin majority get no anchor.
// Anchors come out in order of first appearance over ascending bin IDs.
func LocateLabels(t *Table) ([]LabelAnchor, error) {
	var maj *Column
	for i := range t.Columns {
		if t.Columns[i].Kind == KindCategorical && t.Columns[i].Labels != nil {
			if maj != nil {
				return nil, fmt.Errorf("%w: table has more than one majority column", ErrTypeMismatch)
			}
			maj = &t.Columns[i]
		}
	}
	if maj == nil {
		return nil, fmt.Errorf("%w: table has no majority column", ErrTypeMismatch)
	}

	order := make([]string, 0, 8)
	sumX := make(map[string]float64)
	sumY := make(map[string]float64)
	nBins := make(map[string]int)
	for k, level := range maj.Labels {
		if nBins[level] == 0 {
			order = append(order, level)
		}
		sumX[level] += t.X[k]
		sumY[level] += t.Y[k]
		nBins[level]++
	}

	anchors := make([]LabelAnchor, len(order))
	for i, level := range order {
		n := float64(nBins[level])
		anchors[i] = LabelAnchor{
			Level: level,
			X:     sumX[level] / n,
			Y:     sumY[level] / n,
		}
	}
	return anchors, nil
}
