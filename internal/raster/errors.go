package raster

import "errors"

var (
	// ErrEmptyGrid indicates a grid with no rows or no columns.
	ErrEmptyGrid = errors.New("raster: grid must have at least one row and one column")
	// ErrNonRectangular indicates rows of differing lengths.
	ErrNonRectangular = errors.New("raster: all rows must have the same length")
	// ErrShapeMismatch indicates two co-processed grids disagree in dimensions.
	ErrShapeMismatch = errors.New("raster: grid shapes do not match")
	// ErrRotated indicates an affine transform with rotation or shear terms
	// where only north-up transforms are supported.
	ErrRotated = errors.New("raster: transform is not north-up")
	// ErrSingular indicates an affine transform that cannot be inverted.
	ErrSingular = errors.New("raster: transform is singular")
	// ErrUnsupportedCRS indicates a coordinate reference system that cannot be
	// parsed or projected.
	ErrUnsupportedCRS = errors.New("raster: unsupported coordinate reference system")
	// ErrFormat indicates a malformed raster file.
	ErrFormat = errors.New("raster: malformed raster file")
)
