package geo

import (
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/raster"
)

// ReadGeoJSON loads every feature geometry of a FeatureCollection. The CRS
// is EPSG:4326 unless the file carries a legacy "crs" member naming another
// EPSG code.
func ReadGeoJSON(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: decode %s", path)
	}

	l := &Layer{CRS: raster.WGS84}
	if name, ok := legacyCRSName(fc.ExtraMembers); ok {
		crs, err := raster.ParseCRS(name)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: crs of %s", path)
		}
		l.CRS = crs
	}
	for _, f := range fc.Features {
		if f.Geometry != nil {
			l.Geometries = append(l.Geometries, f.Geometry)
		}
	}
	return l, nil
}

// legacyCRSName extracts the EPSG identifier of a pre-RFC 7946 "crs" member
// such as {"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}}.
func legacyCRSName(extra geojson.Properties) (string, bool) {
	crs, ok := extra["crs"].(map[string]any)
	if !ok {
		return "", false
	}
	props, ok := crs["properties"].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := props["name"].(string)
	if !ok || name == "" {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(name), "urn:ogc:def:crs:") {
		parts := strings.Split(name, ":")
		if strings.EqualFold(parts[len(parts)-1], "CRS84") {
			return string(raster.WGS84), true
		}
		return "EPSG:" + parts[len(parts)-1], true
	}
	return name, true
}

// FeatureCollection wraps each geometry of l in a feature. A non-WGS84
// layer is tagged with a legacy "crs" member.
func FeatureCollection(l *Layer) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, g := range l.Geometries {
		fc.Append(geojson.NewFeature(g))
	}
	if l.CRS != "" && l.CRS != raster.WGS84 {
		fc.ExtraMembers = geojson.Properties{
			"crs": map[string]any{
				"type":       "name",
				"properties": map[string]any{"name": l.CRS.String()},
			},
		}
	}
	return fc
}

// WriteGeoJSON stores l as a FeatureCollection. An empty layer yields an
// empty collection. Empty multilinestrings are skipped.
func WriteGeoJSON(path string, l *Layer) error {
	keep := &Layer{CRS: l.CRS}
	for _, g := range l.Geometries {
		if mls, ok := g.(orb.MultiLineString); ok && len(mls) == 0 {
			continue
		}
		keep.Geometries = append(keep.Geometries, g)
	}
	data, err := FeatureCollection(keep).MarshalJSON()
	if err != nil {
		return eris.Wrapf(err, "geo: encode %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "geo: write %s", path)
	}
	return nil
}

// WriteWKT stores g as a single line of well-known text.
func WriteWKT(path string, g orb.Geometry) error {
	if err := os.WriteFile(path, []byte(wkt.MarshalString(g)+"\n"), 0o644); err != nil {
		return eris.Wrapf(err, "geo: write %s", path)
	}
	return nil
}
