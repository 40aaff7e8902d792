package costdist

import (
	"github.com/rotisserie/eris"
)

// Per-cell and per-entry sizes used for capacity planning.
const (
	bytesPerCost    = 8
	bytesPerSeed    = 1
	bytesPerDist    = 8
	bytesPerSettled = 1
	bytesPerPred    = 4
	bytesPerEntry   = 16

	// lazyEntries bounds the stale heap entries a frontier cell can hold:
	// one per neighbour that improved it before it was finalized.
	lazyEntries = 8
)

// Footprint is the expected memory use of a solve.
type Footprint struct {
	Rows, Cols int
	Cells      int64

	// FixedBytes covers the input grids and the per-cell solver arrays.
	FixedBytes int64

	// ExpectedFrontier is the planned peak heap length: a wavefront of
	// 2×(rows+cols) cells, each with up to eight lazy entries, capped at
	// the worst case.
	ExpectedFrontier int64
	ExpectedBytes    int64

	// WorstFrontier bounds the heap length when every cell is improved by
	// all eight neighbours before finalization.
	WorstFrontier int64
	WorstBytes    int64
}

// Estimate sizes a solve over a rows×cols grid from its dimensions alone.
func Estimate(rows, cols int, opts Options) Footprint {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	cells := int64(rows) * int64(cols)

	perCell := int64(bytesPerCost + bytesPerSeed + bytesPerDist + bytesPerSettled)
	if opts.TrackPredecessors {
		perCell += bytesPerPred
	}
	fixed := cells * perCell

	worst := lazyEntries * cells
	expected := int64(lazyEntries) * 2 * int64(rows+cols)
	if expected > worst {
		expected = worst
	}

	return Footprint{
		Rows:             rows,
		Cols:             cols,
		Cells:            cells,
		FixedBytes:       fixed,
		ExpectedFrontier: expected,
		ExpectedBytes:    fixed + expected*bytesPerEntry,
		WorstFrontier:    worst,
		WorstBytes:       fixed + worst*bytesPerEntry,
	}
}

// ExpectedGB returns ExpectedBytes in gigabytes (1e9 bytes).
func (f Footprint) ExpectedGB() float64 { return float64(f.ExpectedBytes) / 1e9 }

// Check returns ErrOverBudget when the expected footprint exceeds limit
// bytes. A non-positive limit disables the check.
func (f Footprint) Check(limit int64) error {
	if limit <= 0 || f.ExpectedBytes <= limit {
		return nil
	}
	return eris.Wrapf(ErrOverBudget, "costdist: %d bytes expected for %dx%d grid, limit %d",
		f.ExpectedBytes, f.Rows, f.Cols, limit)
}
