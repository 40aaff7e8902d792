// Package geo reads and writes the vector side of a run: area-of-interest
// polygons, ground-truth power lines and the inferred network. It also clips
// truth to the area of interest and projects between the two supported
// coordinate systems.
package geo

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/raster"
)

var (
	// ErrUnsupportedCRS indicates a projection between coordinate systems
	// other than EPSG:4326 and EPSG:3857.
	ErrUnsupportedCRS = errors.New("geo: unsupported coordinate reference system")
	// ErrUnsupportedFormat indicates a file extension with no reader or writer.
	ErrUnsupportedFormat = errors.New("geo: unsupported vector format")
	// ErrNoPolygon indicates an area of interest without polygon geometry.
	ErrNoPolygon = errors.New("geo: layer has no polygon geometry")
)

// Layer is a set of geometries sharing one coordinate reference system.
type Layer struct {
	CRS        raster.CRS
	Geometries []orb.Geometry
}

// Bound returns the union of the bounds of every geometry.
func (l *Layer) Bound() orb.Bound {
	var b orb.Bound
	for i, g := range l.Geometries {
		if i == 0 {
			b = g.Bound()
			continue
		}
		b = b.Union(g.Bound())
	}
	return b
}

// Polygons collects every polygon in the layer into one multipolygon.
func (l *Layer) Polygons() (orb.MultiPolygon, error) {
	var mp orb.MultiPolygon
	for _, g := range l.Geometries {
		mp = appendPolygons(mp, g)
	}
	if len(mp) == 0 {
		return nil, ErrNoPolygon
	}
	return mp, nil
}

func appendPolygons(mp orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 && len(g[0]) > 0 {
			mp = append(mp, g)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			mp = appendPolygons(mp, p)
		}
	case orb.Bound:
		mp = append(mp, g.ToPolygon())
	case orb.Collection:
		for _, c := range g {
			mp = appendPolygons(mp, c)
		}
	}
	return mp
}

// Lines flattens every linear geometry in gs into one multilinestring.
// Polygon rings are not included.
func Lines(gs ...orb.Geometry) orb.MultiLineString {
	var mls orb.MultiLineString
	for _, g := range gs {
		switch g := g.(type) {
		case orb.LineString:
			if len(g) >= 2 {
				mls = append(mls, g)
			}
		case orb.MultiLineString:
			for _, ls := range g {
				if len(ls) >= 2 {
					mls = append(mls, ls)
				}
			}
		case orb.Collection:
			mls = append(mls, Lines(g...)...)
		}
	}
	return mls
}

// Read loads a vector file, choosing the reader from the extension.
func Read(path string) (*Layer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return ReadGeoJSON(path)
	case ".shp":
		return ReadShapefile(path)
	}
	return nil, eris.Wrapf(ErrUnsupportedFormat, "geo: read %s", path)
}

// WriteLines stores a line network, choosing the writer from the extension:
// GeoJSON (".geojson", ".json"), shapefile (".shp") or WKT (".wkt").
func WriteLines(path string, lines orb.MultiLineString, crs raster.CRS) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return WriteGeoJSON(path, &Layer{CRS: crs, Geometries: []orb.Geometry{lines}})
	case ".shp":
		return WriteShapefile(path, lines, crs)
	case ".wkt":
		return WriteWKT(path, lines)
	}
	return eris.Wrapf(ErrUnsupportedFormat, "geo: write %s", path)
}
