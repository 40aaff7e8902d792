package geo

import (
	"errors"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/gridlight/internal/raster"
)

// ErrUnsupportedGeometry indicates a geometry type with no EWKB mapping.
var ErrUnsupportedGeometry = errors.New("geo: unsupported geometry type")

// EncodeEWKB converts g to little-endian EWKB tagged with the SRID of crs.
// An empty multilinestring encodes as an empty MULTILINESTRING.
func EncodeEWKB(g orb.Geometry, crs raster.CRS) ([]byte, error) {
	t, err := toGeom(g)
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(withSRID(t, crs.EPSG()), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses EWKB produced by EncodeEWKB.
func DecodeEWKB(data []byte) (orb.Geometry, raster.CRS, error) {
	t, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, "", eris.Wrap(err, "geo: decode EWKB")
	}
	var crs raster.CRS
	if srid := t.SRID(); srid > 0 {
		crs = raster.CRS("EPSG:" + strconv.Itoa(srid))
	}
	g, err := fromGeom(t)
	if err != nil {
		return nil, "", err
	}
	return g, crs, nil
}

func toGeom(g orb.Geometry) (geom.T, error) {
	switch g := g.(type) {
	case orb.Point:
		return geom.NewPointFlat(geom.XY, []float64{g[0], g[1]}), nil
	case orb.LineString:
		return geom.NewLineStringFlat(geom.XY, flatten(g)), nil
	case orb.MultiLineString:
		var flat []float64
		ends := make([]int, 0, len(g))
		for _, ls := range g {
			flat = append(flat, flatten(ls)...)
			ends = append(ends, len(flat))
		}
		return geom.NewMultiLineStringFlat(geom.XY, flat, ends), nil
	case orb.Polygon:
		flat, ends := flattenPolygon(nil, g)
		return geom.NewPolygonFlat(geom.XY, flat, ends), nil
	case orb.MultiPolygon:
		var flat []float64
		endss := make([][]int, 0, len(g))
		for _, p := range g {
			var ends []int
			flat, ends = flattenPolygon(flat, p)
			endss = append(endss, ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss), nil
	}
	return nil, eris.Wrapf(ErrUnsupportedGeometry, "geo: encode %T", g)
}

func withSRID(t geom.T, srid int) geom.T {
	switch t := t.(type) {
	case *geom.Point:
		return t.SetSRID(srid)
	case *geom.LineString:
		return t.SetSRID(srid)
	case *geom.MultiLineString:
		return t.SetSRID(srid)
	case *geom.Polygon:
		return t.SetSRID(srid)
	case *geom.MultiPolygon:
		return t.SetSRID(srid)
	}
	return t
}

func flatten[P ~[]orb.Point](pts P) []float64 {
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p[0], p[1])
	}
	return flat
}

func flattenPolygon(flat []float64, p orb.Polygon) ([]float64, []int) {
	ends := make([]int, 0, len(p))
	for _, r := range p {
		flat = append(flat, flatten(r)...)
		ends = append(ends, len(flat))
	}
	return flat, ends
}

func fromGeom(t geom.T) (orb.Geometry, error) {
	switch t := t.(type) {
	case *geom.Point:
		c := t.Coords()
		return orb.Point{c[0], c[1]}, nil
	case *geom.LineString:
		return orb.LineString(points(t.Coords())), nil
	case *geom.MultiLineString:
		mls := make(orb.MultiLineString, 0, t.NumLineStrings())
		for i := 0; i < t.NumLineStrings(); i++ {
			mls = append(mls, orb.LineString(points(t.LineString(i).Coords())))
		}
		return mls, nil
	case *geom.Polygon:
		return polygon(t), nil
	case *geom.MultiPolygon:
		mp := make(orb.MultiPolygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			mp = append(mp, polygon(t.Polygon(i)))
		}
		return mp, nil
	}
	return nil, eris.Wrapf(ErrUnsupportedGeometry, "geo: decode %T", t)
}

func polygon(p *geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		out = append(out, orb.Ring(points(p.LinearRing(i).Coords())))
	}
	return out
}

func points(cs []geom.Coord) []orb.Point {
	out := make([]orb.Point, len(cs))
	for i, c := range cs {
		out[i] = orb.Point{c[0], c[1]}
	}
	return out
}
