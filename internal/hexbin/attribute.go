package hexbin

import "fmt"

// Kind discriminates numeric from categorical attributes. Legality of an
// action is checked once against the kind at the Aggregate boundary.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
)

func (k Kind) String() string {
	if k == KindCategorical {
		return "categorical"
	}
	return "numeric"
}

// MarshalJSON encodes the kind as its name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes a kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"numeric"`:
		*k = KindNumeric
	case `"categorical"`:
		*k = KindCategorical
	default:
		return fmt.Errorf("unknown attribute kind %s", data)
	}
	return nil
}

// Attribute is a per-observation vector parallel to a point set: either
// numeric values or categorical level codes over an ordered level domain.
type Attribute struct {
	kind   Kind
	nums   []float64
	codes  []int
	levels []string
}

// NewNumeric wraps a numeric attribute vector.
func NewNumeric(values []float64) *Attribute {
	return &Attribute{kind: KindNumeric, nums: values}
}

// NewCategorical builds a categorical attribute from raw string values.
// levels declares the ordered domain; pass nil to derive the domain in
// first-encountered order. A value outside a declared domain is an error.
func NewCategorical(values []string, levels []string) (*Attribute, error) {
	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}

	derive := levels == nil
	codes := make([]int, len(values))
	for i, v := range values {
		code, ok := index[v]
		if !ok {
			if !derive {
				return nil, fmt.Errorf("%w: value %q outside declared levels", ErrInvalidParameter, v)
			}
			code = len(levels)
			levels = append(levels, v)
			index[v] = code
		}
		codes[i] = code
	}

	return &Attribute{kind: KindCategorical, codes: codes, levels: levels}, nil
}

// NewCategoricalCodes builds a categorical attribute from pre-encoded
// level codes, as stored by the cellstore format.
func NewCategoricalCodes(codes []int, levels []string) (*Attribute, error) {
	for i, c := range codes {
		if c < 0 || c >= len(levels) {
			return nil, fmt.Errorf("%w: code %d at index %d outside %d levels", ErrInvalidParameter, c, i, len(levels))
		}
	}
	return &Attribute{kind: KindCategorical, codes: codes, levels: levels}, nil
}

// Kind returns the attribute kind.
func (at *Attribute) Kind() Kind { return at.kind }

// Len returns the observation count.
func (at *Attribute) Len() int {
	if at.kind == KindCategorical {
		return len(at.codes)
	}
	return len(at.nums)
}

// Levels returns the ordered level domain of a categorical attribute,
// or nil for a numeric one.
func (at *Attribute) Levels() []string { return at.levels }

// LevelCounts returns the observation count per level of a categorical
// attribute, indexed like Levels.
func (at *Attribute) LevelCounts() []int {
	counts := make([]int, len(at.levels))
	for _, c := range at.codes {
		counts[c]++
	}
	return counts
}
