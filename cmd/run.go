package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridlight/internal/monitoring"
	"github.com/sells-group/gridlight/internal/pipeline"
)

var runIn pipeline.Inputs

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full inference pipeline",
	Long:  "Solves cost distance from the seed cells, traces routes from any targets, thresholds and thins the result, vectorizes the network and, when truth and an AOI are given, scores it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("cutoff") {
			cfg.Post.Cutoff, _ = cmd.Flags().GetFloat64("cutoff")
		}
		if cmd.Flags().Changed("format") {
			cfg.Output.VectorFormat, _ = cmd.Flags().GetString("format")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		p := pipeline.New(cfg, st, monitoring.NewMetrics())
		result, err := p.Run(ctx, runIn)
		if err != nil {
			if result != nil && result.RunID != "" {
				return eris.Wrapf(err, "pipeline run %s", result.RunID)
			}
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", result.RunID),
			zap.Int("segments", result.Metrics.Segments),
		)
		formatRunResult(os.Stdout, result)
		return nil
	},
}

// formatRunResult writes a human summary of a finished run.
func formatRunResult(out io.Writer, r *pipeline.Result) {
	p := newPrinter()
	if r.RunID != "" {
		p.Fprintf(out, "Run:            %s\n", r.RunID)
	}
	p.Fprintf(out, "Grid:           %d x %d (%s)\n", r.Metrics.Rows, r.Metrics.Cols, r.CRS)
	p.Fprintf(out, "Solve memory:   %s expected\n", humanize.Bytes(uint64(r.Metrics.ExpectedBytes)))
	p.Fprintf(out, "Reached cells:  %d\n", r.Metrics.Reached)
	if r.Params.Targets != "" {
		p.Fprintf(out, "Route cells:    %d\n", r.Metrics.RouteCells)
	}
	p.Fprintf(out, "Guess cells:    %d\n", r.Metrics.GuessCells)
	p.Fprintf(out, "Skeleton cells: %d\n", r.Metrics.SkeletonCells)
	p.Fprintf(out, "Segments:       %d\n", r.Metrics.Segments)
	if r.Accuracy != nil {
		p.Fprintf(out, "True positive:  %s\n", r.Accuracy.TruePositive)
		p.Fprintf(out, "False negative: %s\n", r.Accuracy.FalseNegative)
	}
	p.Fprintf(out, "Network:        %s\n", r.Artifacts.Network)
	p.Fprintf(out, "Report:         %s\n", r.Artifacts.Report)
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runIn.Costs, "costs", "", "cost raster, ESRI ASCII grid (required)")
	f.StringVar(&runIn.Seeds, "seeds", "", "seed raster, non-zero cells are sources (required)")
	f.StringVar(&runIn.Targets, "targets", "", "target raster, non-zero cells are settlements routed back to the seeds")
	f.StringVar(&runIn.AOI, "aoi", "", "area of interest polygon (GeoJSON or shapefile)")
	f.StringVar(&runIn.Truth, "truth", "", "known grid lines to score against")
	f.StringVar(&runIn.PowerLines, "power-lines", "", "existing lines merged into the output network")
	f.StringVar(&runIn.OutputDir, "out", "", "output directory (default output.dir)")
	f.Float64("cutoff", 0, "distance threshold for the guess (default post.cutoff)")
	f.String("format", "", "network format: geojson, shp or wkt (default output.vector_format)")
	_ = runCmd.MarkFlagRequired("costs")
	_ = runCmd.MarkFlagRequired("seeds")
	rootCmd.AddCommand(runCmd)
}
