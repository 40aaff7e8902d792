// Package morph turns a cost-distance grid into a thin binary network mask:
// Threshold binarizes distances at a cutoff and Thin reduces the result to a
// one-pixel-wide skeleton with the same topology.
package morph

import (
	"math"

	"github.com/sells-group/gridlight/internal/raster"
)

// Threshold marks cells whose distance is at most cutoff. Unreached (+Inf)
// and NaN cells are never marked.
func Threshold(dist *raster.Float, cutoff float64) *raster.Mask {
	return raster.Map(dist, func(d float64) uint8 {
		if d <= cutoff && !math.IsInf(d, 1) {
			return 1
		}
		return 0
	})
}

// Binarize maps every non-zero cell to 1.
func Binarize[T raster.Cell](g *raster.Grid[T]) *raster.Mask {
	return raster.Map(g, func(v T) uint8 {
		if v != 0 {
			return 1
		}
		return 0
	})
}
