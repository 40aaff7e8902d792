package main

import (
	"io"
	"math"
	"os"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridlight/internal/geo"
	"github.com/sells-group/gridlight/internal/morph"
	"github.com/sells-group/gridlight/internal/raster"
	"github.com/sells-group/gridlight/internal/vectorize"
)

type vectorizeArgs struct {
	in        string
	out       string
	skeleton  string
	cutoff    float64
	threshold bool
	noThin    bool
	target    raster.CRS
}

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Turn a distance or mask raster into line geometry",
	Long:  "Thresholds a distance raster (or binarizes a mask), thins it to a one-pixel skeleton and writes the cell-centre line network.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var args vectorizeArgs
		args.in, _ = cmd.Flags().GetString("in")
		args.out, _ = cmd.Flags().GetString("out")
		args.skeleton, _ = cmd.Flags().GetString("skeleton-out")
		args.noThin, _ = cmd.Flags().GetBool("no-thin")
		args.threshold = cmd.Flags().Changed("cutoff")
		args.cutoff, _ = cmd.Flags().GetFloat64("cutoff")

		target := cfg.Vectorize.TargetCRS
		if cmd.Flags().Changed("target-crs") {
			target, _ = cmd.Flags().GetString("target-crs")
		}
		crs, err := raster.ParseCRS(target)
		if err != nil {
			return err
		}
		args.target = crs
		return runVectorize(os.Stdout, args)
	},
}

func runVectorize(out io.Writer, args vectorizeArgs) error {
	d, err := raster.ReadASCII(args.in)
	if err != nil {
		return err
	}
	src := d.CRS
	if src == "" {
		src = raster.WGS84
	}

	var mask *raster.Mask
	if args.threshold {
		mask = morph.Threshold(raster.FillNoData(d, math.Inf(1)), args.cutoff)
	} else {
		mask = raster.ToMask(d)
	}
	if !args.noThin {
		mask = morph.Thin(mask)
	}
	if args.skeleton != "" {
		if err := raster.WriteASCII(args.skeleton, &raster.Dataset[uint8]{Grid: mask, Transform: d.Transform, CRS: src}); err != nil {
			return err
		}
	}

	network, err := vectorize.Vectorize(mask, d.Transform, src, args.target)
	if err != nil {
		return err
	}
	if err := geo.WriteLines(args.out, network.Lines, network.CRS); err != nil {
		return err
	}
	if ce := zap.L().Check(zap.DebugLevel, "network"); ce != nil {
		ce.Write(zap.String("wkt", wkt.MarshalString(network.Lines)))
	}

	p := newPrinter()
	p.Fprintf(out, "Foreground cells: %d\n", raster.CountNonZero(mask))
	p.Fprintf(out, "Segments:         %d\n", len(network.Lines))
	p.Fprintf(out, "Network:          %s (%s)\n", args.out, network.CRS)
	return nil
}

func init() {
	f := vectorizeCmd.Flags()
	f.String("in", "", "distance or mask raster (required)")
	f.String("out", "guess.geojson", "network file: .geojson, .shp or .wkt")
	f.String("skeleton-out", "", "also write the thinned mask here")
	f.Float64("cutoff", 0, "threshold the input as a distance raster at this cutoff")
	f.Bool("no-thin", false, "vectorize the mask without thinning")
	f.String("target-crs", "", "output CRS, EPSG:4326 or EPSG:3857 (default vectorize.target_crs)")
	_ = vectorizeCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(vectorizeCmd)
}
