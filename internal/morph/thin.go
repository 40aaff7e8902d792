package morph

import (
	"github.com/sells-group/gridlight/internal/raster"
)

// Thinner reduces a binary mask to a skeleton.
type Thinner interface {
	Thin(mask *raster.Mask) *raster.Mask
}

// SimplePoint thins by repeatedly deleting simple border pixels, one
// direction at a time (north, east, south, west), until a full sweep removes
// nothing. A pixel is simple when its Yokoi 8-connectivity number is 1;
// deleting simple pixels one at a time preserves the number of 8-connected
// components and 4-connected holes. Endpoints (fewer than two foreground
// neighbours) are never deleted, so isolated pixels and line ends survive.
type SimplePoint struct{}

var _ Thinner = SimplePoint{}

// Thin returns the skeleton of the non-zero cells of mask. The input is not
// modified.
func Thin(mask *raster.Mask) *raster.Mask {
	return SimplePoint{}.Thin(mask)
}

// ring lists neighbour offsets in Yokoi order: E, NE, N, NW, W, SW, S, SE.
var ring = [8][2]int{
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1},
}

// sweeps are the 4-neighbours checked for background, one per subiteration.
var sweeps = [4][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

// Thin implements Thinner.
func (SimplePoint) Thin(mask *raster.Mask) *raster.Mask {
	out := Binarize(mask)
	if out.Empty() {
		return out
	}
	var candidates []int
	for changed := true; changed; {
		changed = false
		for _, dir := range sweeps {
			candidates = candidates[:0]
			for i, v := range out.Data {
				if v == 0 {
					continue
				}
				r, c := out.Coord(i)
				if fg(out, r+dir[0], c+dir[1]) {
					continue
				}
				if deletable(out, r, c) {
					candidates = append(candidates, i)
				}
			}
			// Earlier deletions in this sweep can make a candidate
			// non-simple, so each is checked again before removal.
			for _, i := range candidates {
				r, c := out.Coord(i)
				if deletable(out, r, c) {
					out.Data[i] = 0
					changed = true
				}
			}
		}
	}
	return out
}

// deletable reports whether foreground pixel (r, c) is simple and not an
// endpoint.
func deletable(m *raster.Mask, r, c int) bool {
	var x [8]bool
	n := 0
	for k, off := range ring {
		x[k] = fg(m, r+off[0], c+off[1])
		if x[k] {
			n++
		}
	}
	return n >= 2 && connectivity8(x) == 1
}

// connectivity8 is the Yokoi 8-connectivity number of a pixel whose
// neighbours in ring order are x.
func connectivity8(x [8]bool) int {
	var b [8]int
	for k, v := range x {
		if !v {
			b[k] = 1
		}
	}
	n := 0
	for k := 0; k < 8; k += 2 {
		n += b[k] - b[k]*b[(k+1)%8]*b[(k+2)%8]
	}
	return n
}

func fg(m *raster.Mask, r, c int) bool {
	return m.InBounds(r, c) && m.At(r, c) != 0
}
