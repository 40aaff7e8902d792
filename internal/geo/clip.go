package geo

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// ClipToAOI restricts geometries to the area of interest. Features whose
// bounds miss the AOI bounds are dropped, the rest are first cut to the AOI
// bounding box with orb/clip. Lines are then split exactly where they cross
// the AOI rings and only the inside pieces are kept. Points are kept when
// inside. Polygons are cut to the bounding box and kept only when the
// centroid of what remains lies inside the AOI, which drops pieces in the
// notches of a concave AOI.
//
// The input geometries are not modified.
func ClipToAOI(gs []orb.Geometry, aoi orb.MultiPolygon) []orb.Geometry {
	box := aoi.Bound()
	rings := aoiEdges(aoi)

	var out []orb.Geometry
	for _, g := range gs {
		if g == nil || !box.Intersects(g.Bound()) {
			continue
		}
		boxed := clip.Geometry(box, orb.Clone(g))
		if boxed == nil {
			continue
		}
		if c := clipExact(boxed, aoi, rings); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func clipExact(g orb.Geometry, aoi orb.MultiPolygon, rings []segment) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		if planar.MultiPolygonContains(aoi, g) {
			return g
		}
		return nil
	case orb.MultiPoint:
		var mp orb.MultiPoint
		for _, p := range g {
			if planar.MultiPolygonContains(aoi, p) {
				mp = append(mp, p)
			}
		}
		if len(mp) == 0 {
			return nil
		}
		return mp
	case orb.LineString:
		return nonEmpty(splitLine(g, aoi, rings))
	case orb.MultiLineString:
		var mls orb.MultiLineString
		for _, ls := range g {
			mls = append(mls, splitLine(ls, aoi, rings)...)
		}
		return nonEmpty(mls)
	case orb.Polygon:
		if polygonInside(g, aoi) {
			return g
		}
		return nil
	case orb.MultiPolygon:
		var mp orb.MultiPolygon
		for _, p := range g {
			if polygonInside(p, aoi) {
				mp = append(mp, p)
			}
		}
		if len(mp) == 0 {
			return nil
		}
		return mp
	case orb.Collection:
		var c orb.Collection
		for _, sub := range g {
			if x := clipExact(sub, aoi, rings); x != nil {
				c = append(c, x)
			}
		}
		if len(c) == 0 {
			return nil
		}
		return c
	}
	return g
}

func polygonInside(p orb.Polygon, aoi orb.MultiPolygon) bool {
	if len(p) == 0 || len(p[0]) == 0 {
		return false
	}
	c, area := planar.CentroidArea(p)
	if area == 0 {
		c = p[0][0]
	}
	return planar.MultiPolygonContains(aoi, c)
}

func nonEmpty(mls orb.MultiLineString) orb.Geometry {
	switch len(mls) {
	case 0:
		return nil
	case 1:
		return mls[0]
	}
	return mls
}

type segment struct{ a, b orb.Point }

func aoiEdges(aoi orb.MultiPolygon) []segment {
	var segs []segment
	for _, poly := range aoi {
		for _, r := range poly {
			for i := 0; i+1 < len(r); i++ {
				segs = append(segs, segment{r[i], r[i+1]})
			}
			if n := len(r); n > 1 && r[0] != r[n-1] {
				segs = append(segs, segment{r[n-1], r[0]})
			}
		}
	}
	return segs
}

// splitLine cuts ls at every crossing with the AOI edges and keeps the
// pieces whose midpoint lies inside the AOI. Consecutive inside pieces are
// joined back into one line.
func splitLine(ls orb.LineString, aoi orb.MultiPolygon, edges []segment) orb.MultiLineString {
	var out orb.MultiLineString
	var cur orb.LineString
	flush := func() {
		if len(cur) >= 2 {
			out = append(out, cur)
		}
		cur = nil
	}

	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		ts := []float64{0, 1}
		for _, e := range edges {
			if t, ok := crossing(a, b, e.a, e.b); ok {
				ts = append(ts, t)
			}
		}
		slices.Sort(ts)
		ts = slices.Compact(ts)

		for k := 0; k+1 < len(ts); k++ {
			p0, p1 := lerp(a, b, ts[k]), lerp(a, b, ts[k+1])
			if p0 == p1 {
				continue
			}
			if !planar.MultiPolygonContains(aoi, lerp(a, b, (ts[k]+ts[k+1])/2)) {
				flush()
				continue
			}
			if len(cur) == 0 || cur[len(cur)-1] != p0 {
				flush()
				cur = orb.LineString{p0}
			}
			cur = append(cur, p1)
		}
	}
	flush()
	return out
}

// crossing returns the parameter t along a→b where it meets segment c→d.
// Parallel segments report no crossing.
func crossing(a, b, c, d orb.Point) (float64, bool) {
	r := orb.Point{b[0] - a[0], b[1] - a[1]}
	s := orb.Point{d[0] - c[0], d[1] - c[1]}
	den := cross(r, s)
	if den == 0 {
		return 0, false
	}
	qp := orb.Point{c[0] - a[0], c[1] - a[1]}
	t := cross(qp, s) / den
	u := cross(qp, r) / den
	if t <= 0 || t >= 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

func cross(p, q orb.Point) float64 { return p[0]*q[1] - p[1]*q[0] }

func lerp(a, b orb.Point, t float64) orb.Point {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}
