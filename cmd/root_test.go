package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/gridlight/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "solve", "estimate", "vectorize", "score", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "gridlight", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"costs", "seeds", "targets", "aoi", "truth", "power-lines", "out", "cutoff", "format"} {
		require.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s", name)
	}
}

func TestSolveCommand_Flags(t *testing.T) {
	flag := solveCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "dist.asc", flag.DefValue)
	require.NotNil(t, solveCmd.Flags().Lookup("edge-rule"))
	require.NotNil(t, solveCmd.Flags().Lookup("diagonal"))
	require.NotNil(t, solveCmd.Flags().Lookup("targets"))
}

func TestRunsListCommand_Flags(t *testing.T) {
	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestRunsStatsCommand_Flags(t *testing.T) {
	flag := runsStatsCmd.Flags().Lookup("since")
	require.NotNil(t, flag)
	assert.Equal(t, "24h0m0s", flag.DefValue)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestLogConfig(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	c := &config.Config{
		Store:  config.StoreConfig{Path: "gridlight.db"},
		Solver: config.SolverConfig{EdgeRule: "max", Diagonal: "uniform"},
	}
	logConfig("run", c)
	c.Source = "/etc/gridlight/config.yaml"
	logConfig("score", c)

	entries := logs.FilterMessage("config loaded").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "defaults+env", entries[0].ContextMap()["source"])
	assert.Equal(t, "run", entries[0].ContextMap()["command"])
	assert.Equal(t, "max", entries[0].ContextMap()["edge_rule"])
	assert.Equal(t, "/etc/gridlight/config.yaml", entries[1].ContextMap()["source"])
}
