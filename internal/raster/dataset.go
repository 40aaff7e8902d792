package raster

import "math"

// Dataset couples a grid with its georeferencing and no-data convention.
type Dataset[T Cell] struct {
	Grid      *Grid[T]
	Transform Affine
	CRS       CRS
	NoData    float64
	HasNoData bool
}

// IsNoData reports whether v is the dataset's no-data value. NaN matches a
// NaN no-data value.
func (d *Dataset[T]) IsNoData(v T) bool {
	if !d.HasNoData {
		return false
	}
	f := float64(v)
	if math.IsNaN(d.NoData) {
		return math.IsNaN(f)
	}
	return f == d.NoData
}

// Like returns a dataset with the same georeferencing wrapping g.
func Like[T, U Cell](d *Dataset[T], g *Grid[U]) *Dataset[U] {
	return &Dataset[U]{Grid: g, Transform: d.Transform, CRS: d.CRS, NoData: d.NoData, HasNoData: d.HasNoData}
}

// ToMask converts a dataset into a 0/1 mask: cells that are non-zero, finite
// and not no-data become 1.
func ToMask(d *Dataset[float64]) *Mask {
	return Map(d.Grid, func(v float64) uint8 {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) || d.IsNoData(v) {
			return 0
		}
		return 1
	})
}

// ToFloat widens any grid into a float64 grid.
func ToFloat[T Cell](g *Grid[T]) *Float {
	return Map(g, func(v T) float64 { return float64(v) })
}

// FillNoData returns a copy of d's grid with no-data cells replaced by v.
func FillNoData(d *Dataset[float64], v float64) *Float {
	return Map(d.Grid, func(x float64) float64 {
		if d.IsNoData(x) {
			return v
		}
		return x
	})
}
