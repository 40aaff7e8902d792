package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/raster"
)

// Projection returns the point mapping from one coordinate system to
// another. Only EPSG:4326 and EPSG:3857 are supported; identical systems
// map to the identity.
func Projection(from, to raster.CRS) (orb.Projection, error) {
	switch {
	case from == to && (from == raster.WGS84 || from == raster.WebMercator):
		return func(p orb.Point) orb.Point { return p }, nil
	case from == raster.WGS84 && to == raster.WebMercator:
		return project.WGS84.ToMercator, nil
	case from == raster.WebMercator && to == raster.WGS84:
		return project.Mercator.ToWGS84, nil
	}
	return nil, eris.Wrapf(ErrUnsupportedCRS, "geo: project %q to %q", from, to)
}

// Project returns a copy of g expressed in the target coordinate system.
func Project(g orb.Geometry, from, to raster.CRS) (orb.Geometry, error) {
	proj, err := Projection(from, to)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	if from == to {
		return orb.Clone(g), nil
	}
	return project.Geometry(orb.Clone(g), proj), nil
}

// ProjectLayer projects every geometry of l into to.
func ProjectLayer(l *Layer, to raster.CRS) (*Layer, error) {
	out := &Layer{CRS: to, Geometries: make([]orb.Geometry, 0, len(l.Geometries))}
	for _, g := range l.Geometries {
		pg, err := Project(g, l.CRS, to)
		if err != nil {
			return nil, err
		}
		out.Geometries = append(out.Geometries, pg)
	}
	return out, nil
}

// BufferDistance converts a distance in decimal degrees to the units of crs.
// For EPSG:3857 the degrees are measured along the equator, so 0.01 becomes
// about 1113 m.
func BufferDistance(deg float64, crs raster.CRS) (float64, error) {
	switch crs {
	case raster.WGS84:
		return deg, nil
	case raster.WebMercator:
		return project.WGS84.ToMercator(orb.Point{deg, 0})[0], nil
	}
	return 0, eris.Wrapf(ErrUnsupportedCRS, "geo: buffer in %q", crs)
}
