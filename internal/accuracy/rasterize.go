package accuracy

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/raster"
)

// Tolerance is ground truth grown by a buffer radius: the set of points
// within Distance of any geometry.
type Tolerance struct {
	Geometries []orb.Geometry
	Distance   float64
}

// Rasterize burns t onto a rows×cols grid placed by tf with all-touched
// semantics: a cell is 1 when its rectangle lies within t.Distance of a
// geometry, which for Distance 0 means the rectangle touches it. Polygon
// interiors count through the cell centre. Rotated transforms are rejected.
func (t Tolerance) Rasterize(rows, cols int, tf raster.Affine) (*raster.Mask, error) {
	if !tf.IsNorthUp() {
		return nil, eris.Wrap(raster.ErrRotated, "accuracy: rasterize")
	}
	out := raster.New[uint8](rows, cols)
	if out.Empty() {
		return out, nil
	}
	idx := newIndex(t.Geometries)
	if idx.size() == 0 {
		return out, nil
	}

	dx, dy := tf.CellSize()
	pad := math.Max(t.Distance, 0) + 1e-9*math.Max(dx, dy)
	r0, r1, c0, c1 := window(idx.bound.Pad(pad), rows, cols, tf)

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			cell := tf.CellBound(r, c)
			if idx.touches(cell, t.Distance, pad) {
				out.Set(r, c, 1)
			}
		}
	}
	return out, nil
}

// Rasterize burns geometries onto the grid without a buffer.
func Rasterize(gs []orb.Geometry, rows, cols int, tf raster.Affine) (*raster.Mask, error) {
	return Tolerance{Geometries: gs}.Rasterize(rows, cols, tf)
}

// FlipBinary swaps 0 and 1. Other values are left as they are.
func FlipBinary(m *raster.Mask) *raster.Mask {
	return raster.Map(m, func(v uint8) uint8 {
		switch v {
		case 0:
			return 1
		case 1:
			return 0
		}
		return v
	})
}

// window returns the inclusive cell range covering b, clamped to the grid.
func window(b orb.Bound, rows, cols int, tf raster.Affine) (r0, r1, c0, c1 int) {
	r0, c0, r1, c1 = rows, cols, -1, -1
	for _, p := range []orb.Point{b.Min, b.Max, {b.Min[0], b.Max[1]}, {b.Max[0], b.Min[1]}} {
		r, c, err := tf.RowCol(p)
		if err != nil {
			return 0, -1, 0, -1
		}
		r0, r1 = min(r0, r), max(r1, r)
		c0, c1 = min(c0, c), max(c1, c)
	}
	return max(r0, 0), min(r1, rows-1), max(c0, 0), min(c1, cols-1)
}

// feature is one indexed piece of truth: a segment, a point (a == b) or a
// polygon interior.
type feature struct {
	a, b orb.Point
	poly orb.Polygon
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (f *feature) Bounds() rtreego.Rect { return f.rect }

func (f *feature) near(cell orb.Bound, d float64) bool {
	switch {
	case f.poly != nil:
		return planar.PolygonContains(f.poly, cell.Center())
	case f.a == f.b:
		return pointRectDistance(f.a, cell) <= d
	}
	if len(clip.LineString(cell, orb.LineString{f.a, f.b})) > 0 {
		return true
	}
	if d <= 0 {
		return false
	}
	dist := math.Min(pointRectDistance(f.a, cell), pointRectDistance(f.b, cell))
	for _, p := range [4]orb.Point{cell.Min, cell.Max, cell.LeftTop(), cell.RightBottom()} {
		dist = math.Min(dist, planar.DistanceFromSegment(f.a, f.b, p))
	}
	return dist <= d
}

func pointRectDistance(p orb.Point, b orb.Bound) float64 {
	dx := math.Max(math.Max(b.Min[0]-p[0], 0), p[0]-b.Max[0])
	dy := math.Max(math.Max(b.Min[1]-p[1], 0), p[1]-b.Max[1])
	return math.Hypot(dx, dy)
}

type index struct {
	tree  *rtreego.Rtree
	bound orb.Bound
}

func newIndex(gs []orb.Geometry) *index {
	idx := &index{tree: rtreego.NewTree(2, 25, 50)}
	first := true
	add := func(f *feature, b orb.Bound) {
		r, err := rtreego.NewRectFromPoints(rtreego.Point{b.Min[0], b.Min[1]}, rtreego.Point{b.Max[0], b.Max[1]})
		if err != nil {
			return
		}
		f.rect = r
		idx.tree.Insert(f)
		if first {
			idx.bound, first = b, false
			return
		}
		idx.bound = idx.bound.Union(b)
	}

	var walk func(g orb.Geometry)
	segments := func(pts []orb.Point) {
		for i := 0; i+1 < len(pts); i++ {
			a, b := pts[i], pts[i+1]
			add(&feature{a: a, b: b}, orb.Bound{Min: a, Max: a}.Extend(b))
		}
	}
	walk = func(g orb.Geometry) {
		switch g := g.(type) {
		case orb.Point:
			add(&feature{a: g, b: g}, g.Bound())
		case orb.MultiPoint:
			for _, p := range g {
				walk(p)
			}
		case orb.LineString:
			segments(g)
		case orb.MultiLineString:
			for _, ls := range g {
				segments(ls)
			}
		case orb.Polygon:
			if len(g) == 0 || len(g[0]) < 3 {
				return
			}
			for _, r := range g {
				segments(r)
			}
			add(&feature{poly: g}, g.Bound())
		case orb.MultiPolygon:
			for _, p := range g {
				walk(p)
			}
		case orb.Bound:
			walk(g.ToPolygon())
		case orb.Collection:
			for _, c := range g {
				walk(c)
			}
		}
	}
	for _, g := range gs {
		walk(g)
	}
	return idx
}

func (idx *index) size() int { return idx.tree.Size() }

// touches reports whether any feature lies within d of cell. Candidates come
// from the R-tree using the cell grown by pad.
func (idx *index) touches(cell orb.Bound, d, pad float64) bool {
	q := cell.Pad(pad)
	rect, err := rtreego.NewRectFromPoints(rtreego.Point{q.Min[0], q.Min[1]}, rtreego.Point{q.Max[0], q.Max[1]})
	if err != nil {
		return false
	}
	for _, s := range idx.tree.SearchIntersect(rect) {
		if s.(*feature).near(cell, d) {
			return true
		}
	}
	return false
}
