package hexbin

import "errors"

// Sentinel errors returned by the binning and aggregation core. Callers
// match them with errors.Is; wrapped messages carry the offending values.
var (
	// ErrInvalidParameter reports a malformed grid parameter (resolution < 2).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateInput reports a point set whose bounding box has zero
	// width or height, or an empty point set.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrShapeMismatch reports a point set or attribute vector whose length
	// does not match the assignment it is paired with.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrTypeMismatch reports an action applied to an attribute of the
	// wrong kind (e.g. mean over a categorical column).
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupportedAction reports an action outside the closed action set.
	ErrUnsupportedAction = errors.New("unsupported action")
)
