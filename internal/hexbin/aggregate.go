package hexbin

import (
	"fmt"
	"sort"
)

// Action is one of the six per-bin summary statistics. The set is closed;
// ParseAction rejects anything else.
type Action string

const (
	ActionMean     Action = "mean"     // numeric: arithmetic mean
	ActionMedian   Action = "median"   // numeric: median
	ActionMode     Action = "mode"     // numeric: half-sample mode estimate
	ActionPropZero Action = "prop_0"   // numeric: fraction strictly > 0
	ActionMajority Action = "majority" // categorical: most frequent level
	ActionProp     Action = "prop"     // categorical: per-level fraction
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionMean, ActionMedian, ActionMode, ActionPropZero, ActionMajority, ActionProp:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAction, s)
}

// requiredKind returns the attribute kind an action is legal for.
func (ac Action) requiredKind() (Kind, error) {
	switch ac {
	case ActionMean, ActionMedian, ActionMode, ActionPropZero:
		return KindNumeric, nil
	case ActionMajority, ActionProp:
		return KindCategorical, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAction, string(ac))
}

// Aggregate computes per-bin summaries of an attribute over an existing
// assignment and joins them with bin centroids and counts into a Table.
// Only populated bins appear in the output; rows are in ascending tile
// ID order. The attribute name seeds the output column names
// (<name>_<action>, or <name>_<level> for prop).
func Aggregate(a *Assignment, name string, attr *Attribute, action Action) (*Table, error) {
	kind, err := action.requiredKind()
	if err != nil {
		return nil, err
	}
	if attr.Len() != a.Len() {
		return nil, fmt.Errorf("%w: attribute has %d values, assignment covers %d points", ErrShapeMismatch, attr.Len(), a.Len())
	}
	if attr.Kind() != kind {
		return nil, fmt.Errorf("%w: action %q requires a %s attribute, got %s", ErrTypeMismatch, string(action), kind, attr.Kind())
	}

	var cols []Column
	switch action {
	case ActionMajority:
		cols = []Column{aggregateMajority(a, name, attr)}
	case ActionProp:
		cols = aggregateProp(a, name, attr)
	default:
		cols = []Column{aggregateNumeric(a, name, attr, action)}
	}

	return newTable(a, cols), nil
}

func aggregateNumeric(a *Assignment, name string, attr *Attribute, action Action) Column {
	out := make([]float64, len(a.bins))
	for k, bin := range a.bins {
		vals := make([]float64, len(bin.Members))
		for i, m := range bin.Members {
			vals[i] = attr.nums[m]
		}
		switch action {
		case ActionMean:
			out[k] = mean(vals)
		case ActionMedian:
			out[k] = median(vals)
		case ActionMode:
			out[k] = halfSampleMode(vals)
		case ActionPropZero:
			out[k] = propPositive(vals)
		}
	}
	return Column{Name: name + "_" + string(action), Kind: KindNumeric, Floats: out}
}

// aggregateMajority picks the most frequent level per bin. An exact
// frequency tie goes to the earliest level in the attribute's declared
// level order (first-encountered order when the domain was derived).
func aggregateMajority(a *Assignment, name string, attr *Attribute) Column {
	out := make([]string, len(a.bins))
	counts := make([]int, len(attr.levels))
	for k, bin := range a.bins {
		for i := range counts {
			counts[i] = 0
		}
		for _, m := range bin.Members {
			counts[attr.codes[m]]++
		}
		best := -1
		for code, n := range counts {
			if n > 0 && (best < 0 || n > counts[best]) {
				best = code
			}
		}
		out[k] = attr.levels[best]
	}
	return Column{Name: name + "_majority", Kind: KindCategorical, Labels: out}
}

// aggregateProp emits one column per level of the global domain, each
// holding the fraction of bin members equal to that level.
func aggregateProp(a *Assignment, name string, attr *Attribute) []Column {
	cols := make([]Column, len(attr.levels))
	for li, level := range attr.levels {
		cols[li] = Column{
			Name:   name + "_" + level,
			Kind:   KindNumeric,
			Floats: make([]float64, len(a.bins)),
		}
	}
	for k, bin := range a.bins {
		for _, m := range bin.Members {
			cols[attr.codes[m]].Floats[k]++
		}
		n := float64(len(bin.Members))
		for li := range cols {
			cols[li].Floats[k] /= n
		}
	}
	return cols
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func propPositive(vals []float64) float64 {
	n := 0
	for _, v := range vals {
		if v > 0 {
			n++
		}
	}
	return float64(n) / float64(len(vals))
}

// halfSampleMode estimates the continuous mode of a sample: repeatedly
// narrow to the minimal-width window containing ceil(n/2) of the
// remaining sorted values until one or two values are left. Window-width
// ties take the leftmost (lowest-valued) window, which makes the
// estimate deterministic.
func halfSampleMode(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)

	for len(s) > 2 {
		m := (len(s) + 1) / 2
		best := 0
		bestWidth := s[m-1] - s[0]
		for i := 1; i+m <= len(s); i++ {
			if w := s[i+m-1] - s[i]; w < bestWidth {
				best, bestWidth = i, w
			}
		}
		s = s[best : best+m]
	}

	if len(s) == 2 {
		return (s[0] + s[1]) / 2
	}
	return s[0]
}
