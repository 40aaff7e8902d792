package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gridlight/internal/accuracy"
	"github.com/sells-group/gridlight/internal/geo"
	"github.com/sells-group/gridlight/internal/raster"
)

type scoreArgs struct {
	guess  string
	truth  string
	aoi    string
	buffer float64
	radius int
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a guess raster against known grid lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		args := scoreArgs{buffer: cfg.Accuracy.Buffer, radius: cfg.Accuracy.SearchRadius}
		args.guess, _ = cmd.Flags().GetString("guess")
		args.truth, _ = cmd.Flags().GetString("truth")
		args.aoi, _ = cmd.Flags().GetString("aoi")
		if cmd.Flags().Changed("buffer") {
			args.buffer, _ = cmd.Flags().GetFloat64("buffer")
		}
		if cmd.Flags().Changed("radius") {
			args.radius, _ = cmd.Flags().GetInt("radius")
		}
		return runScore(cmd.Context(), os.Stdout, args)
	},
}

func runScore(ctx context.Context, out io.Writer, args scoreArgs) error {
	guess, err := raster.ReadASCII(args.guess)
	if err != nil {
		return err
	}
	crs := guess.CRS
	if crs == "" {
		crs = raster.WGS84
	}

	truth, err := readProjected(args.truth, crs)
	if err != nil {
		return err
	}
	in := accuracy.Inputs{
		Truth:     truth.Geometries,
		Guess:     raster.ToMask(guess),
		Transform: guess.Transform,
	}
	if args.aoi != "" {
		aoi, err := readProjected(args.aoi, crs)
		if err != nil {
			return err
		}
		if in.AOI, err = aoi.Polygons(); err != nil {
			return eris.Wrapf(err, "aoi %s", args.aoi)
		}
	}

	buffer, err := geo.BufferDistance(args.buffer, crs)
	if err != nil {
		return err
	}
	res, err := accuracy.Score(ctx, in, accuracy.Options{Buffer: buffer, Radius: args.radius})
	if err != nil {
		return err
	}
	formatScore(out, res)
	return nil
}

func readProjected(path string, crs raster.CRS) (*geo.Layer, error) {
	l, err := geo.Read(path)
	if err != nil {
		return nil, err
	}
	return geo.ProjectLayer(l, crs)
}

// formatScore writes both rates and their denominators to w.
func formatScore(out io.Writer, r accuracy.Result) {
	p := newPrinter()
	p.Fprintf(out, "True positive:  %s (%d guess cells)\n", r.TruePositive, r.GuessCells)
	p.Fprintf(out, "False negative: %s (%d truth cells)\n", r.FalseNegative, r.TruthCells)
}

func init() {
	f := scoreCmd.Flags()
	f.String("guess", "", "binary guess raster (required)")
	f.String("truth", "", "known grid lines, GeoJSON or shapefile (required)")
	f.String("aoi", "", "area of interest polygon the truth is clipped to")
	f.Float64("buffer", 0, "truth buffer in decimal degrees, converted to the raster CRS (default accuracy.buffer)")
	f.Int("radius", 0, "false-negative search radius in cells (default accuracy.search_radius)")
	_ = scoreCmd.MarkFlagRequired("guess")
	_ = scoreCmd.MarkFlagRequired("truth")
	rootCmd.AddCommand(scoreCmd)
}
