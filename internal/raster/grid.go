// Package raster holds the grid, transform and coordinate-system types shared
// by every stage of the grid inference chain, plus a plain-text codec for
// storing them between runs.
//
// Grids are row-major: cell (r, c) lives at Data[r*Cols+c]. Stages treat a
// grid as immutable once produced and allocate their own outputs.
package raster

import (
	"github.com/rotisserie/eris"
)

// Cell constrains the element types a Grid can hold.
type Cell interface {
	~uint8 | ~int32 | ~float32 | ~float64
}

// Grid is a dense row-major 2D array.
type Grid[T Cell] struct {
	Rows, Cols int
	Data       []T
}

// Mask is a 0/1 grid.
type Mask = Grid[uint8]

// Float is a grid of float64 values (costs, distances).
type Float = Grid[float64]

// New allocates a zeroed rows×cols grid.
func New[T Cell](rows, cols int) *Grid[T] {
	return &Grid[T]{Rows: rows, Cols: cols, Data: make([]T, rows*cols)}
}

// FromRows builds a grid from a non-empty rectangular 2D slice, copying the
// values.
func FromRows[T Cell](rows [][]T) (*Grid[T], error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	h, w := len(rows), len(rows[0])
	g := New[T](h, w)
	for r, row := range rows {
		if len(row) != w {
			return nil, ErrNonRectangular
		}
		copy(g.Data[r*w:(r+1)*w], row)
	}
	return g, nil
}

// MustFromRows is FromRows for literals in tests; it panics on
// malformed input.
func MustFromRows[T Cell](rows [][]T) *Grid[T] {
	g, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return g
}

// Len returns the number of cells.
func (g *Grid[T]) Len() int { return g.Rows * g.Cols }

// Empty reports whether the grid has no cells.
func (g *Grid[T]) Empty() bool { return g == nil || g.Rows == 0 || g.Cols == 0 }

// Index maps (r, c) to the row-major offset.
func (g *Grid[T]) Index(r, c int) int { return r*g.Cols + c }

// Coord maps a row-major offset back to (r, c).
func (g *Grid[T]) Coord(i int) (r, c int) { return i / g.Cols, i % g.Cols }

// InBounds reports whether (r, c) lies inside the grid.
func (g *Grid[T]) InBounds(r, c int) bool {
	return r >= 0 && r < g.Rows && c >= 0 && c < g.Cols
}

// At returns the value at (r, c).
func (g *Grid[T]) At(r, c int) T { return g.Data[r*g.Cols+c] }

// Set stores v at (r, c).
func (g *Grid[T]) Set(r, c int, v T) { g.Data[r*g.Cols+c] = v }

// Clone returns a deep copy.
func (g *Grid[T]) Clone() *Grid[T] {
	out := &Grid[T]{Rows: g.Rows, Cols: g.Cols, Data: make([]T, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// Equal reports whether both grids have the same shape and values.
func (g *Grid[T]) Equal(o *Grid[T]) bool {
	if g.Rows != o.Rows || g.Cols != o.Cols {
		return false
	}
	for i, v := range g.Data {
		if o.Data[i] != v {
			return false
		}
	}
	return true
}

// CountNonZero returns the number of non-zero cells.
func CountNonZero[T Cell](g *Grid[T]) int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Map applies fn to every cell and returns the resulting grid.
func Map[T, U Cell](g *Grid[T], fn func(T) U) *Grid[U] {
	out := New[U](g.Rows, g.Cols)
	for i, v := range g.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// CheckShape returns a wrapped ErrShapeMismatch when a and b differ in
// dimensions, and ErrEmptyGrid when a has no cells.
func CheckShape[A, B Cell](a *Grid[A], b *Grid[B]) error {
	if a.Empty() {
		return ErrEmptyGrid
	}
	if b == nil || a.Rows != b.Rows || a.Cols != b.Cols {
		var br, bc int
		if b != nil {
			br, bc = b.Rows, b.Cols
		}
		return eris.Wrapf(ErrShapeMismatch, "raster: %dx%d vs %dx%d", a.Rows, a.Cols, br, bc)
	}
	return nil
}
