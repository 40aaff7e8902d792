package config

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/gridlight/internal/costdist"
	"github.com/sells-group/gridlight/internal/raster"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Solver    SolverConfig    `yaml:"solver" mapstructure:"solver"`
	Post      PostConfig      `yaml:"post" mapstructure:"post"`
	Vectorize VectorizeConfig `yaml:"vectorize" mapstructure:"vectorize"`
	Accuracy  AccuracyConfig  `yaml:"accuracy" mapstructure:"accuracy"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`

	// Source is the config file that was read, empty when only defaults
	// and the environment apply.
	Source string `yaml:"-" mapstructure:"-"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// StoreConfig configures the run ledger. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SolverConfig configures the cost-distance solve.
type SolverConfig struct {
	EdgeRule          string `yaml:"edge_rule" mapstructure:"edge_rule" validate:"edgerule"`
	Diagonal          string `yaml:"diagonal" mapstructure:"diagonal" validate:"diagonal"`
	CheckEvery        int    `yaml:"check_every" mapstructure:"check_every" validate:"gte=0"`
	TrackPredecessors bool   `yaml:"track_predecessors" mapstructure:"track_predecessors"`
	// MemoryLimit caps the expected solve footprint, e.g. "8GB". "0" disables
	// the check.
	MemoryLimit string `yaml:"memory_limit" mapstructure:"memory_limit" validate:"bytesize"`
}

// Options converts the section into solver options.
func (c SolverConfig) Options() (costdist.Options, error) {
	rule, err := costdist.ParseEdgeRule(c.EdgeRule)
	if err != nil {
		return costdist.Options{}, eris.Wrap(err, "config: solver options")
	}
	diag, err := costdist.ParseDiagonalPolicy(c.Diagonal)
	if err != nil {
		return costdist.Options{}, eris.Wrap(err, "config: solver options")
	}
	return costdist.Options{
		Rule:              rule,
		Diagonal:          diag,
		CheckEvery:        c.CheckEvery,
		TrackPredecessors: c.TrackPredecessors,
	}, nil
}

// MemoryLimitBytes parses MemoryLimit. Zero means unlimited.
func (c SolverConfig) MemoryLimitBytes() (int64, error) {
	if strings.TrimSpace(c.MemoryLimit) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MemoryLimit)
	if err != nil {
		return 0, eris.Wrapf(err, "config: parse memory limit %q", c.MemoryLimit)
	}
	return int64(n), nil
}

// PostConfig configures thresholding of the distance raster.
type PostConfig struct {
	Cutoff float64 `yaml:"cutoff" mapstructure:"cutoff" validate:"gte=0"`
}

// VectorizeConfig configures the output network.
type VectorizeConfig struct {
	TargetCRS string `yaml:"target_crs" mapstructure:"target_crs" validate:"crs"`
}

// AccuracyConfig configures scoring against ground truth.
type AccuracyConfig struct {
	// Buffer is the truth tolerance in decimal degrees. Scoring converts it
	// to the units of the raster CRS (0.01 is about 1113 m in EPSG:3857).
	Buffer       float64 `yaml:"buffer" mapstructure:"buffer" validate:"gt=0"`
	SearchRadius int     `yaml:"search_radius" mapstructure:"search_radius" validate:"gte=0"`
}

// OutputConfig configures where artifacts are written.
type OutputConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir" validate:"required"`
	VectorFormat string `yaml:"vector_format" mapstructure:"vector_format" validate:"oneof=geojson shp wkt"`
}

// MetricsConfig configures the Prometheus textfile dump. An empty path
// disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("edgerule", func(fl validator.FieldLevel) bool {
		_, err := costdist.ParseEdgeRule(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("diagonal", func(fl validator.FieldLevel) bool {
		_, err := costdist.ParseDiagonalPolicy(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("crs", func(fl validator.FieldLevel) bool {
		crs, err := raster.ParseCRS(fl.Field().String())
		return err == nil && (crs == raster.WGS84 || crs == raster.WebMercator)
	})
	_ = validate.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if s == "" {
			return true
		}
		_, err := humanize.ParseBytes(s)
		return err == nil
	})
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GRIDLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.path", "gridlight.db")
	v.SetDefault("solver.edge_rule", costdist.Mean.String())
	v.SetDefault("solver.diagonal", costdist.Euclidean.String())
	v.SetDefault("solver.check_every", costdist.DefaultCheckEvery)
	v.SetDefault("solver.track_predecessors", false)
	v.SetDefault("solver.memory_limit", "0")
	v.SetDefault("post.cutoff", 0.0)
	v.SetDefault("vectorize.target_crs", string(raster.WGS84))
	v.SetDefault("accuracy.buffer", 0.01)
	v.SetDefault("accuracy.search_radius", 5)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.vector_format", "geojson")
	v.SetDefault("metrics.textfile", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Source = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
