package costdist

// entry is a tentative distance for a cell. Stale entries (whose dist is
// larger than the cell's current best) are skipped when popped.
type entry struct {
	dist float64
	idx  int
}

// frontier implements heap.Interface ordered by distance, then cell index,
// so that equal-distance cells are finalized in a fixed order.
type frontier []entry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].idx < f[j].idx
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(entry)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	e := old[n-1]
	*f = old[:n-1]
	return e
}
