package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridlight/internal/costdist"
	"github.com/sells-group/gridlight/internal/raster"
)

type solveArgs struct {
	costs     string
	seeds     string
	out       string
	targets   string
	routesOut string
}

var solveIn solveArgs

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Compute a cost-distance raster from seed cells",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := solverOptions(cmd)
		if err != nil {
			return err
		}
		return runSolve(ctx, os.Stdout, solveIn, opts)
	},
}

// solverOptions merges the solver section with command-line overrides.
func solverOptions(cmd *cobra.Command) (costdist.Options, error) {
	sc := cfg.Solver
	if cmd.Flags().Changed("edge-rule") {
		sc.EdgeRule, _ = cmd.Flags().GetString("edge-rule")
	}
	if cmd.Flags().Changed("diagonal") {
		sc.Diagonal, _ = cmd.Flags().GetString("diagonal")
	}
	return sc.Options()
}

func runSolve(ctx context.Context, out io.Writer, in solveArgs, opts costdist.Options) error {
	costs, err := raster.ReadASCII(in.costs)
	if err != nil {
		return err
	}
	seedData, err := raster.ReadASCII(in.seeds)
	if err != nil {
		return err
	}
	opts.NoData = costs.NoData
	opts.HasNoData = costs.HasNoData
	opts.TrackPredecessors = opts.TrackPredecessors || in.targets != ""

	fp := costdist.Estimate(costs.Grid.Rows, costs.Grid.Cols, opts)
	zap.L().Info("solving",
		zap.Int("rows", costs.Grid.Rows),
		zap.Int("cols", costs.Grid.Cols),
		zap.String("expected_memory", humanize.Bytes(uint64(fp.ExpectedBytes))),
	)

	res, err := costdist.Solve(ctx, costs.Grid, raster.ToMask(seedData), opts)
	if err != nil {
		return eris.Wrap(err, "solve")
	}
	if err := raster.WriteASCII(in.out, raster.Like(costs, res.Dist)); err != nil {
		return err
	}

	p := newPrinter()
	p.Fprintf(out, "Seeds:         %d\n", res.Seeds)
	p.Fprintf(out, "Finalized:     %d of %d cells\n", res.Finalized, res.Dist.Len())
	p.Fprintf(out, "Peak frontier: %d\n", res.PeakFrontier)
	p.Fprintf(out, "Distance:      %s\n", in.out)

	if in.targets == "" {
		return nil
	}
	targets, err := raster.ReadASCII(in.targets)
	if err != nil {
		return err
	}
	routes, err := res.Routes(raster.ToMask(targets))
	if err != nil {
		return eris.Wrap(err, "trace routes")
	}
	routesOut := in.routesOut
	if routesOut == "" {
		routesOut = "routes.asc"
	}
	if err := raster.WriteASCII(routesOut, &raster.Dataset[uint8]{Grid: routes, Transform: costs.Transform, CRS: costs.CRS}); err != nil {
		return err
	}
	p.Fprintf(out, "Route cells:   %d\n", raster.CountNonZero(routes))
	p.Fprintf(out, "Routes:        %s\n", routesOut)
	return nil
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&solveIn.costs, "costs", "", "cost raster (required)")
	f.StringVar(&solveIn.seeds, "seeds", "", "seed raster (required)")
	f.StringVar(&solveIn.out, "out", "dist.asc", "distance raster to write")
	f.StringVar(&solveIn.targets, "targets", "", "target raster whose least-cost routes to the seeds are traced")
	f.StringVar(&solveIn.routesOut, "routes-out", "routes.asc", "route mask to write when --targets is set")
	f.String("edge-rule", "", "edge cost rule: mean, max or destination (default solver.edge_rule)")
	f.String("diagonal", "", "diagonal step policy: euclidean or uniform (default solver.diagonal)")
	_ = solveCmd.MarkFlagRequired("costs")
	_ = solveCmd.MarkFlagRequired("seeds")
	rootCmd.AddCommand(solveCmd)
}
