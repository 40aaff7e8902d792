package geo

import (
	"errors"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridlight/internal/raster"
)

// ReadShapefile loads the geometries of a shapefile. Points, polylines and
// polygons are supported; other shape types are skipped. The CRS comes from
// the ".prj" sidecar when it holds an EPSG identifier and defaults to
// EPSG:4326 otherwise.
func ReadShapefile(path string) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	l := &Layer{CRS: shapefileCRS(path)}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeometry(shape)
		if g == nil {
			skipped++
			continue
		}
		l.Geometries = append(l.Geometries, g)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "geo: read shapefile %s", path)
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return l, nil
}

func shapefileCRS(path string) raster.CRS {
	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	data, err := os.ReadFile(prj)
	if err != nil {
		return raster.WGS84
	}
	crs, err := raster.ParseCRS(string(data))
	if err != nil {
		zap.L().Warn("geo: unrecognized .prj, assuming EPSG:4326", zap.String("path", prj))
		return raster.WGS84
	}
	return crs
}

func shapeToGeometry(s shp.Shape) orb.Geometry {
	switch shape := s.(type) {
	case *shp.Point:
		return orb.Point{shape.X, shape.Y}
	case *shp.PolyLine:
		mls := orb.MultiLineString(shapeParts(shape.Parts, shape.Points))
		switch len(mls) {
		case 0:
			return nil
		case 1:
			return mls[0]
		}
		return mls
	case *shp.Polygon:
		return partsToPolygons(shapeParts(shape.Parts, shape.Points))
	}
	return nil
}

// shapeParts splits a flat point list at the part offsets.
func shapeParts(parts []int32, points []shp.Point) []orb.LineString {
	var out []orb.LineString
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 2 {
			continue
		}
		ls := make(orb.LineString, 0, end-start)
		for _, p := range points[start:end] {
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		out = append(out, ls)
	}
	return out
}

// partsToPolygons groups shapefile rings into polygons: a clockwise ring
// starts a new polygon, a counter-clockwise ring is a hole of the current
// one.
func partsToPolygons(parts []orb.LineString) orb.Geometry {
	var mp orb.MultiPolygon
	for _, p := range parts {
		r := orb.Ring(p)
		if r.Orientation() == orb.CCW && len(mp) > 0 {
			mp[len(mp)-1] = append(mp[len(mp)-1], r)
			continue
		}
		mp = append(mp, orb.Polygon{r})
	}
	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	}
	return mp
}

// WriteShapefile stores lines as a POLYLINE shapefile with one record per
// line and an "id" attribute. The CRS identifier is written to a ".prj"
// sidecar. An empty network yields a shapefile with no records.
func WriteShapefile(path string, lines orb.MultiLineString, crs raster.CRS) error {
	base := strings.TrimSuffix(path, ".shp")
	w, err := shp.Create(base+".shp", shp.POLYLINE)
	if err != nil {
		return eris.Wrapf(err, "geo: create shapefile %s", path)
	}
	if err := w.SetFields([]shp.Field{shp.NumberField("id", 10)}); err != nil {
		w.Close()
		return eris.Wrapf(err, "geo: set fields %s", path)
	}
	for i, ls := range lines {
		if len(ls) < 2 {
			continue
		}
		pts := make([]shp.Point, len(ls))
		for j, p := range ls {
			pts[j] = shp.Point{X: p[0], Y: p[1]}
		}
		row := w.Write(shp.NewPolyLine([][]shp.Point{pts}))
		if err := w.WriteAttribute(int(row), 0, i); err != nil {
			w.Close()
			return eris.Wrapf(err, "geo: write attribute %s", path)
		}
	}
	w.Close()

	// go-shp names the attribute table "<base>dbf"; readers expect
	// "<base>.dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "geo: rename dbf for %s", path)
	}

	if crs != "" {
		if err := os.WriteFile(base+".prj", []byte(crs.String()+"\n"), 0o644); err != nil {
			return eris.Wrapf(err, "geo: write prj for %s", path)
		}
	}
	return nil
}
