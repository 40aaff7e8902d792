package main

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gridlight/internal/costdist"
	"github.com/sells-group/gridlight/internal/raster"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the memory a solve needs",
	Long:  "Sizes a solve from grid dimensions alone, either given directly or taken from a cost raster, and checks it against solver.memory_limit.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rows, _ := cmd.Flags().GetInt("rows")
		cols, _ := cmd.Flags().GetInt("cols")
		if path, _ := cmd.Flags().GetString("costs"); path != "" {
			d, err := raster.ReadASCII(path)
			if err != nil {
				return err
			}
			rows, cols = d.Grid.Rows, d.Grid.Cols
		}
		if rows <= 0 || cols <= 0 {
			return eris.New("estimate: --rows and --cols, or --costs, are required")
		}

		opts, err := solverOptions(cmd)
		if err != nil {
			return err
		}
		limit, err := cfg.Solver.MemoryLimitBytes()
		if err != nil {
			return err
		}

		fp := costdist.Estimate(rows, cols, opts)
		formatFootprint(os.Stdout, fp, limit)
		return fp.Check(limit)
	},
}

// formatFootprint writes a footprint and its budget to w.
func formatFootprint(out io.Writer, fp costdist.Footprint, limit int64) {
	p := newPrinter()
	p.Fprintf(out, "Grid:              %d x %d (%d cells)\n", fp.Rows, fp.Cols, fp.Cells)
	p.Fprintf(out, "Fixed arrays:      %s\n", humanize.Bytes(uint64(fp.FixedBytes)))
	p.Fprintf(out, "Expected frontier: %d entries\n", fp.ExpectedFrontier)
	p.Fprintf(out, "Expected total:    %s (%.3f GB)\n", humanize.Bytes(uint64(fp.ExpectedBytes)), fp.ExpectedGB())
	p.Fprintf(out, "Worst case:        %s\n", humanize.Bytes(uint64(fp.WorstBytes)))
	if limit > 0 {
		p.Fprintf(out, "Limit:             %s\n", humanize.Bytes(uint64(limit)))
	}
}

func init() {
	f := estimateCmd.Flags()
	f.Int("rows", 0, "grid rows")
	f.Int("cols", 0, "grid columns")
	f.String("costs", "", "cost raster to take the dimensions from")
	f.String("edge-rule", "", "edge cost rule (default solver.edge_rule)")
	f.String("diagonal", "", "diagonal step policy (default solver.diagonal)")
	rootCmd.AddCommand(estimateCmd)
}
