package costdist

import "errors"

var (
	// ErrTooLarge indicates a grid with more cells than predecessor indices
	// can address.
	ErrTooLarge = errors.New("costdist: grid exceeds addressable cell count")
	// ErrOverBudget indicates an expected solve footprint above the
	// configured memory limit.
	ErrOverBudget = errors.New("costdist: expected memory exceeds limit")
	// ErrNoPredecessors indicates a path query on a result solved without
	// predecessor tracking.
	ErrNoPredecessors = errors.New("costdist: result has no predecessor grid")
	// ErrUnknownRule indicates an unrecognized edge rule or diagonal policy.
	ErrUnknownRule = errors.New("costdist: unknown edge rule or diagonal policy")
)
