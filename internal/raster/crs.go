package raster

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CRS identifies a coordinate reference system as an authority code such as
// "EPSG:4326".
type CRS string

const (
	// WGS84 is geographic longitude/latitude.
	WGS84 CRS = "EPSG:4326"
	// WebMercator is the spherical pseudo-Mercator projection used by web maps.
	WebMercator CRS = "EPSG:3857"
)

// ParseCRS normalizes "epsg:4326", "EPSG:4326" and bare "4326" to the
// canonical "EPSG:<code>" form. 900913 is accepted as an alias of 3857.
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	code := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "EPSG") {
			return "", eris.Wrapf(ErrUnsupportedCRS, "raster: authority %q", s[:i])
		}
		code = s[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return "", eris.Wrapf(ErrUnsupportedCRS, "raster: parse %q", s)
	}
	if n == 900913 {
		n = 3857
	}
	return CRS("EPSG:" + strconv.Itoa(n)), nil
}

// String returns the identifier.
func (c CRS) String() string { return string(c) }

// EPSG returns the numeric EPSG code, or 0 when c is empty or malformed.
func (c CRS) EPSG() int {
	_, code, ok := strings.Cut(string(c), ":")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}
