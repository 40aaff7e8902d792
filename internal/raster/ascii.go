package raster

import (
	"bufio"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultNoData is written for non-finite cells when a dataset declares no
// no-data value of its own.
const DefaultNoData = -9999.0

// WriteASCII stores d as an ESRI ASCII grid at path and its CRS identifier in
// a ".prj" sidecar. Non-finite cells are written as the no-data value.
func WriteASCII[T Cell](path string, d *Dataset[T]) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	if err := EncodeASCII(f, d); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "raster: close %s", path)
	}
	if d.CRS != "" {
		if err := os.WriteFile(prjPath(path), []byte(d.CRS.String()+"\n"), 0o644); err != nil {
			return eris.Wrapf(err, "raster: write %s", prjPath(path))
		}
	}
	return nil
}

// EncodeASCII writes d in ESRI ASCII grid form.
func EncodeASCII[T Cell](w io.Writer, d *Dataset[T]) error {
	if d.Grid.Empty() {
		return ErrEmptyGrid
	}
	if !d.Transform.IsNorthUp() || d.Transform.E >= 0 {
		return ErrRotated
	}
	nodata := DefaultNoData
	if d.HasNoData && !math.IsNaN(d.NoData) && !math.IsInf(d.NoData, 0) {
		nodata = d.NoData
	}

	bw := bufio.NewWriterSize(w, 1<<16)
	dx, dy := d.Transform.CellSize()
	west, south := d.Transform.C, d.Transform.F+d.Transform.E*float64(d.Grid.Rows)
	header := []string{
		"ncols " + strconv.Itoa(d.Grid.Cols),
		"nrows " + strconv.Itoa(d.Grid.Rows),
		"xllcorner " + formatFloat(west),
		"yllcorner " + formatFloat(south),
	}
	if dx == dy {
		header = append(header, "cellsize "+formatFloat(dx))
	} else {
		header = append(header, "dx "+formatFloat(dx), "dy "+formatFloat(dy))
	}
	header = append(header, "NODATA_value "+formatFloat(nodata))
	for _, line := range header {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return eris.Wrap(err, "raster: write header")
		}
	}

	for r := 0; r < d.Grid.Rows; r++ {
		row := d.Grid.Data[r*d.Grid.Cols : (r+1)*d.Grid.Cols]
		for c, v := range row {
			if c > 0 {
				_ = bw.WriteByte(' ')
			}
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				f = nodata
			}
			if _, err := bw.WriteString(formatFloat(f)); err != nil {
				return eris.Wrap(err, "raster: write row")
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "raster: write row")
		}
	}
	return eris.Wrap(bw.Flush(), "raster: flush")
}

// ReadASCII loads an ESRI ASCII grid and its optional ".prj" sidecar.
func ReadASCII(path string) (*Dataset[float64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	d, err := DecodeASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	prj, err := os.ReadFile(prjPath(path))
	switch {
	case err == nil:
		crs, perr := ParseCRS(string(prj))
		if perr != nil {
			return nil, eris.Wrapf(perr, "raster: read %s", prjPath(path))
		}
		d.CRS = crs
	case !errors.Is(err, os.ErrNotExist):
		return nil, eris.Wrapf(err, "raster: read %s", prjPath(path))
	}
	return d, nil
}

// DecodeASCII parses ESRI ASCII grid text. Both corner and centre
// registration are accepted, as are GDAL's dx/dy extensions.
func DecodeASCII(r io.Reader) (*Dataset[float64], error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	sc.Split(bufio.ScanWords)

	hdr := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !isHeaderKey(key) {
			first = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Wrapf(ErrFormat, "raster: missing value for %s", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(ErrFormat, "raster: header %s=%q", key, sc.Text())
		}
		hdr[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan header")
	}

	cols, rows := int(hdr["ncols"]), int(hdr["nrows"])
	if cols <= 0 || rows <= 0 {
		return nil, eris.Wrap(ErrFormat, "raster: ncols and nrows must be positive")
	}
	dx, dy := hdr["cellsize"], hdr["cellsize"]
	if v, ok := hdr["dx"]; ok {
		dx = v
	}
	if v, ok := hdr["dy"]; ok {
		dy = v
	}
	if dx <= 0 || dy <= 0 {
		return nil, eris.Wrap(ErrFormat, "raster: cell size must be positive")
	}

	west, south := hdr["xllcorner"], hdr["yllcorner"]
	if v, ok := hdr["xllcenter"]; ok {
		west = v - dx/2
	}
	if v, ok := hdr["yllcenter"]; ok {
		south = v - dy/2
	}

	d := &Dataset[float64]{
		Grid:      New[float64](rows, cols),
		Transform: NorthUp(west, south+dy*float64(rows), dx, dy),
	}
	if v, ok := hdr["nodata_value"]; ok {
		d.NoData, d.HasNoData = v, true
	}

	n := 0
	parse := func(tok string) error {
		if n >= len(d.Grid.Data) {
			return eris.Wrap(ErrFormat, "raster: too many values")
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(ErrFormat, "raster: value %q", tok)
		}
		d.Grid.Data[n] = v
		n++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan values")
	}
	if n != len(d.Grid.Data) {
		return nil, eris.Wrapf(ErrFormat, "raster: expected %d values, got %d", len(d.Grid.Data), n)
	}
	return d, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter",
		"cellsize", "dx", "dy", "nodata_value":
		return true
	}
	return false
}

func prjPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i] + ".prj"
	}
	return path + ".prj"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
