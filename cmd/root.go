package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridlight/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gridlight",
	Short: "Electricity grid inference from cost rasters",
	Long:  "Computes cost-distance surfaces from seed cells, thresholds and thins them into a guessed grid network, vectorizes it and scores it against known lines.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		logConfig(cmd.Name(), cfg)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// logConfig records where the settings of a command came from.
func logConfig(command string, c *config.Config) {
	source := c.Source
	if source == "" {
		source = "defaults+env"
	}
	zap.L().Debug("config loaded",
		zap.String("command", command),
		zap.String("source", source),
		zap.String("store", c.Store.Path),
		zap.String("edge_rule", c.Solver.EdgeRule),
		zap.String("diagonal", c.Solver.Diagonal),
		zap.Float64("cutoff", c.Post.Cutoff),
		zap.String("target_crs", c.Vectorize.TargetCRS),
		zap.Float64("buffer_deg", c.Accuracy.Buffer),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
