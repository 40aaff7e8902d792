package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/gridlight/internal/costdist"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "gridlight.db", cfg.Store.Path)
	assert.Equal(t, "mean", cfg.Solver.EdgeRule)
	assert.Equal(t, "euclidean", cfg.Solver.Diagonal)
	assert.Equal(t, costdist.DefaultCheckEvery, cfg.Solver.CheckEvery)
	assert.False(t, cfg.Solver.TrackPredecessors)
	assert.Equal(t, "0", cfg.Solver.MemoryLimit)
	assert.InDelta(t, 0.0, cfg.Post.Cutoff, 1e-12)
	assert.Equal(t, "EPSG:4326", cfg.Vectorize.TargetCRS)
	assert.InDelta(t, 0.01, cfg.Accuracy.Buffer, 1e-12)
	assert.Equal(t, 5, cfg.Accuracy.SearchRadius)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "geojson", cfg.Output.VectorFormat)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Empty(t, cfg.Source)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
solver:
  edge_rule: max
  diagonal: uniform
  memory_limit: 2GB
post:
  cutoff: 0.5
vectorize:
  target_crs: EPSG:3857
output:
  vector_format: shp
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "max", cfg.Solver.EdgeRule)
	assert.Equal(t, "uniform", cfg.Solver.Diagonal)
	assert.InDelta(t, 0.5, cfg.Post.Cutoff, 1e-12)
	assert.Equal(t, "EPSG:3857", cfg.Vectorize.TargetCRS)
	assert.Equal(t, "shp", cfg.Output.VectorFormat)
	assert.Equal(t, "config.yaml", filepath.Base(cfg.Source))
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Accuracy.SearchRadius)

	limit, err := cfg.Solver.MemoryLimitBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000_000), limit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
solver:
  edge_rule: max
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GRIDLIGHT_SOLVER_EDGE_RULE", "destination")
	t.Setenv("GRIDLIGHT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "destination", cfg.Solver.EdgeRule)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GRIDLIGHT_ACCURACY_SEARCH_RADIUS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Accuracy.SearchRadius)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GRIDLIGHT_SOLVER_DIAGONAL", "manhattan")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Diagonal")
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("solver: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Log = LogConfig{Level: "info", Format: "json"}
	cfg.Solver = SolverConfig{EdgeRule: "mean", Diagonal: "euclidean", MemoryLimit: "0"}
	cfg.Vectorize.TargetCRS = "EPSG:4326"
	cfg.Accuracy = AccuracyConfig{Buffer: 0.01, SearchRadius: 5}
	cfg.Output = OutputConfig{Dir: "out", VectorFormat: "geojson"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bare epsg code", func(c *Config) { c.Vectorize.TargetCRS = "3857" }, ""},
		{"memory limit with unit", func(c *Config) { c.Solver.MemoryLimit = "512 MiB" }, ""},
		{"unknown edge rule", func(c *Config) { c.Solver.EdgeRule = "min" }, "EdgeRule"},
		{"unknown diagonal", func(c *Config) { c.Solver.Diagonal = "" }, "Diagonal"},
		{"unsupported crs", func(c *Config) { c.Vectorize.TargetCRS = "EPSG:32633" }, "TargetCRS"},
		{"bad memory limit", func(c *Config) { c.Solver.MemoryLimit = "lots" }, "MemoryLimit"},
		{"negative cutoff", func(c *Config) { c.Post.Cutoff = -1 }, "Cutoff"},
		{"zero buffer", func(c *Config) { c.Accuracy.Buffer = 0 }, "Buffer"},
		{"unknown vector format", func(c *Config) { c.Output.VectorFormat = "kml" }, "VectorFormat"},
		{"missing output dir", func(c *Config) { c.Output.Dir = "" }, "Dir"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSolverOptions(t *testing.T) {
	opts, err := SolverConfig{EdgeRule: "destination", Diagonal: "uniform", CheckEvery: 10, TrackPredecessors: true}.Options()
	require.NoError(t, err)
	assert.Equal(t, costdist.Destination, opts.Rule)
	assert.Equal(t, costdist.Uniform, opts.Diagonal)
	assert.Equal(t, 10, opts.CheckEvery)
	assert.True(t, opts.TrackPredecessors)

	_, err = SolverConfig{EdgeRule: "bogus", Diagonal: "uniform"}.Options()
	assert.ErrorIs(t, err, costdist.ErrUnknownRule)
}

func TestMemoryLimitBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"1024", 1024},
		{"8GB", 8_000_000_000},
		{"1 GiB", 1 << 30},
	}
	for _, tt := range tests {
		got, err := SolverConfig{MemoryLimit: tt.in}.MemoryLimitBytes()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := SolverConfig{MemoryLimit: "lots"}.MemoryLimitBytes()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
