// Package costdist computes multi-source cost-distance over a raster grid.
//
// Solve is Dijkstra's algorithm from a virtual super-source joined to every
// seed cell by a zero-cost edge. Cells are 8-connected; the cost of a step is
// set by Options.Rule and Options.Diagonal. Cells are finalized in
// non-decreasing distance order, ties broken by row-major index, so a solve
// is deterministic for fixed input.
//
// Complexity: O(N log N) time for N cells; memory is dominated by the
// distance grid plus the frontier. Estimate sizes both from grid dimensions
// before a solve is attempted.
package costdist

import (
	"container/heap"
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/raster"
)

// offset is a neighbour step; the first four are orthogonal.
type offset struct {
	dr, dc   int
	diagonal bool
}

var neighbors = [8]offset{
	{-1, 0, false}, {0, 1, false}, {1, 0, false}, {0, -1, false},
	{-1, 1, true}, {1, 1, true}, {1, -1, true}, {-1, -1, true},
}

// Result is the output of a solve.
type Result struct {
	// Dist holds the least cumulative cost from any seed; +Inf where no
	// seed can reach.
	Dist *raster.Float
	// Pred holds the row-major index of each finalized cell's predecessor,
	// or -1 for seeds and unreached cells. Nil unless predecessors were
	// tracked.
	Pred []int32

	Seeds        int
	Finalized    int
	Pushes       int
	PeakFrontier int
}

// Solve computes the cost-distance grid for costs from the non-zero cells of
// seeds. It fails only when the grids disagree in shape, the grid is too
// large to index, or ctx is cancelled.
func Solve(ctx context.Context, costs *raster.Float, seeds *raster.Mask, opts Options) (*Result, error) {
	if err := raster.CheckShape(costs, seeds); err != nil {
		return nil, eris.Wrap(err, "costdist: solve")
	}
	n := costs.Len()
	if n > math.MaxInt32 {
		return nil, ErrTooLarge
	}
	opts = opts.withDefaults()
	rows, cols := costs.Rows, costs.Cols

	dist := raster.New[float64](rows, cols)
	for i := range dist.Data {
		dist.Data[i] = math.Inf(1)
	}
	settled := make([]bool, n)
	res := &Result{Dist: dist}
	if opts.TrackPredecessors {
		res.Pred = make([]int32, n)
		for i := range res.Pred {
			res.Pred[i] = -1
		}
	}

	pq := make(frontier, 0, 2*(rows+cols))
	for i, s := range seeds.Data {
		if s == 0 {
			continue
		}
		dist.Data[i] = 0
		pq = append(pq, entry{dist: 0, idx: i})
		res.Seeds++
	}
	heap.Init(&pq)
	res.Pushes = len(pq)
	res.PeakFrontier = len(pq)

	pops := 0
	for pq.Len() > 0 {
		if pops%opts.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "costdist: solve cancelled")
			}
			if opts.Progress != nil && pops > 0 {
				opts.Progress(res.Finalized, n)
			}
		}
		pops++

		e := heap.Pop(&pq).(entry)
		u := e.idx
		if settled[u] || e.dist > dist.Data[u] {
			continue
		}
		settled[u] = true
		res.Finalized++

		cu := costs.Data[u]
		if !opts.passable(cu) {
			// An impassable seed is a source of its own but cannot be left.
			continue
		}
		ur, uc := u/cols, u%cols
		for _, off := range neighbors {
			vr, vc := ur+off.dr, uc+off.dc
			if vr < 0 || vr >= rows || vc < 0 || vc >= cols {
				continue
			}
			v := vr*cols + vc
			if settled[v] {
				continue
			}
			cv := costs.Data[v]
			if !opts.passable(cv) {
				continue
			}
			nd := e.dist + opts.EdgeCost(cu, cv, off.diagonal)
			if nd < dist.Data[v] {
				dist.Data[v] = nd
				if res.Pred != nil {
					res.Pred[v] = int32(u)
				}
				heap.Push(&pq, entry{dist: nd, idx: v})
				res.Pushes++
				if len(pq) > res.PeakFrontier {
					res.PeakFrontier = len(pq)
				}
			}
		}
	}

	if opts.Progress != nil {
		opts.Progress(res.Finalized, n)
	}
	return res, nil
}

// Reached reports whether cell i has a finite distance.
func (r *Result) Reached(i int) bool {
	return !math.IsInf(r.Dist.Data[i], 1)
}

// Trace returns the least-cost path from cell (row, col) back to the seed
// that reached it, as row-major indices starting at the cell. It returns nil
// for unreached cells.
func (r *Result) Trace(row, col int) ([]int, error) {
	if r.Pred == nil {
		return nil, ErrNoPredecessors
	}
	if !r.Dist.InBounds(row, col) {
		return nil, eris.Errorf("costdist: cell (%d,%d) outside %dx%d grid", row, col, r.Dist.Rows, r.Dist.Cols)
	}
	i := r.Dist.Index(row, col)
	if !r.Reached(i) {
		return nil, nil
	}
	path := []int{i}
	for p := r.Pred[i]; p >= 0; p = r.Pred[p] {
		path = append(path, int(p))
	}
	return path, nil
}

// Routes marks the union of the least-cost paths from every reached target
// cell back to the seed set. Paths form a forest rooted at the seeds, so a
// walk stops at the first cell already marked.
func (r *Result) Routes(targets *raster.Mask) (*raster.Mask, error) {
	if r.Pred == nil {
		return nil, ErrNoPredecessors
	}
	if err := raster.CheckShape(r.Dist, targets); err != nil {
		return nil, eris.Wrap(err, "costdist: routes")
	}
	out := raster.New[uint8](targets.Rows, targets.Cols)
	for i, t := range targets.Data {
		if t == 0 || !r.Reached(i) {
			continue
		}
		for c := int32(i); c >= 0 && out.Data[c] == 0; c = r.Pred[c] {
			out.Data[c] = 1
		}
	}
	return out, nil
}
