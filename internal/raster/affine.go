package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// Affine maps grid indices to world coordinates. Coefficients follow the
// rasterio ordering:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// (col, row) = (0, 0) is the outer corner of the top-left cell.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity is the transform whose world coordinates equal pixel coordinates.
var Identity = Affine{A: 1, E: 1}

// NorthUp returns the transform of a grid whose top-left corner sits at
// (west, north) with cells dx wide and dy tall. Rows grow southwards.
func NorthUp(west, north, dx, dy float64) Affine {
	return Affine{A: dx, C: west, E: -dy, F: north}
}

// Apply maps fractional pixel coordinates to world coordinates.
func (t Affine) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// XY returns the world coordinates of the centre of cell (row, col).
func (t Affine) XY(row, col int) orb.Point {
	x, y := t.Apply(float64(col)+0.5, float64(row)+0.5)
	return orb.Point{x, y}
}

// IsNorthUp reports whether the transform has no rotation or shear terms.
func (t Affine) IsNorthUp() bool { return t.B == 0 && t.D == 0 }

// Invert returns the inverse mapping (world → fractional pixel).
func (t Affine) Invert() (Affine, error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 || math.IsNaN(det) {
		return Affine{}, ErrSingular
	}
	ia := t.E / det
	ib := -t.B / det
	id := -t.D / det
	ie := t.A / det
	return Affine{
		A: ia, B: ib, C: -(ia*t.C + ib*t.F),
		D: id, E: ie, F: -(id*t.C + ie*t.F),
	}, nil
}

// RowCol returns the cell containing world point p. The result may lie
// outside the grid.
func (t Affine) RowCol(p orb.Point) (row, col int, err error) {
	inv, err := t.Invert()
	if err != nil {
		return 0, 0, err
	}
	fc, fr := inv.Apply(p[0], p[1])
	return int(math.Floor(fr)), int(math.Floor(fc)), nil
}

// CellBound returns the world-space rectangle of cell (row, col) for a
// north-up transform.
func (t Affine) CellBound(row, col int) orb.Bound {
	x0, y0 := t.Apply(float64(col), float64(row))
	x1, y1 := t.Apply(float64(col+1), float64(row+1))
	return orb.Bound{
		Min: orb.Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: orb.Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

// Bounds returns the world-space extent of a rows×cols grid.
func (t Affine) Bounds(rows, cols int) orb.Bound {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, rc := range [4][2]float64{{0, 0}, {0, float64(cols)}, {float64(rows), 0}, {float64(rows), float64(cols)}} {
		x, y := t.Apply(rc[1], rc[0])
		b = b.Extend(orb.Point{x, y})
	}
	return b
}

// CellSize returns the absolute cell width and height of a north-up
// transform.
func (t Affine) CellSize() (dx, dy float64) {
	return math.Abs(t.A), math.Abs(t.E)
}
