// Package accuracy scores an inferred grid raster against ground-truth
// power lines.
//
// Truth is clipped to the area of interest and rasterized onto the guess
// grid twice: as-is and grown by a buffer. The true-positive rate is the
// share of guessed cells inside the buffered truth; the false-negative rate
// is the share of truth cells with no guessed cell nearby.
package accuracy

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gridlight/internal/geo"
	"github.com/sells-group/gridlight/internal/raster"
)

// DefaultBuffer is the truth buffer in decimal degrees, roughly one mile at
// the equator.
const DefaultBuffer = 0.01

// Options tune the scorer. Zero values select the defaults.
type Options struct {
	// Buffer is the truth tolerance in CRS units.
	Buffer float64
	// Radius is the false-negative search radius in cells.
	Radius int
}

func (o Options) withDefaults() Options {
	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}
	if o.Radius <= 0 {
		o.Radius = DefaultRadius
	}
	return o
}

// Inputs are the rasters and geometries scored together. Truth and AOI
// must be in the guess grid's coordinate system.
type Inputs struct {
	Truth     []orb.Geometry
	AOI       orb.MultiPolygon
	Guess     *raster.Mask
	Transform raster.Affine
}

// Result holds both rates.
type Result struct {
	TruePositive  Rate
	FalseNegative Rate
	// TruthCells and GuessCells count the foreground of the plain truth
	// raster and the guess.
	TruthCells int
	GuessCells int
}

// Score clips truth to the AOI, rasterizes it plain and buffered onto the
// guess grid and computes both rates.
func Score(ctx context.Context, in Inputs, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if in.Guess.Empty() {
		return Result{}, eris.Wrap(raster.ErrEmptyGrid, "accuracy: score")
	}
	if !in.Transform.IsNorthUp() {
		return Result{}, eris.Wrap(raster.ErrRotated, "accuracy: score")
	}

	truth := in.Truth
	if len(in.AOI) > 0 {
		truth = geo.ClipToAOI(truth, in.AOI)
	}
	rows, cols := in.Guess.Rows, in.Guess.Cols

	if err := ctx.Err(); err != nil {
		return Result{}, eris.Wrap(err, "accuracy: score cancelled")
	}

	var plain, buffered *raster.Mask
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		plain, err = Rasterize(truth, rows, cols, in.Transform)
		return err
	})
	g.Go(func() error {
		var err error
		buffered, err = Tolerance{Geometries: truth, Distance: opts.Buffer}.Rasterize(rows, cols, in.Transform)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, eris.Wrap(err, "accuracy: rasterize truth")
	}

	res := Result{
		TruthCells: raster.CountNonZero(plain),
		GuessCells: raster.CountNonZero(in.Guess),
	}
	g = new(errgroup.Group)
	g.Go(func() error {
		var err error
		res.TruePositive, err = TruePositives(in.Guess, buffered)
		return err
	})
	g.Go(func() error {
		var err error
		res.FalseNegative, err = FalseNegatives(in.Guess, plain, opts.Radius)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return res, nil
}
