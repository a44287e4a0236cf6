// Package config loads application configuration from config.yaml and
// CANOPY_* environment overrides, and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Split     SplitConfig     `yaml:"split" mapstructure:"split"`
	Forest    ForestConfig    `yaml:"forest" mapstructure:"forest"`
	Evaluate  EvaluateConfig  `yaml:"evaluate" mapstructure:"evaluate"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the input dataset.
type DataConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ArtifactsConfig locates trained model artifacts.
type ArtifactsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the run registry database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SplitConfig configures the train/holdout partition.
type SplitConfig struct {
	Proportion float64 `yaml:"proportion" mapstructure:"proportion"`
	Seed       int64   `yaml:"seed" mapstructure:"seed"`
	MinRows    int     `yaml:"min_rows" mapstructure:"min_rows"`
}

// ForestConfig configures the random forest hyperparameters. Zero values for
// MTry and MinLeaf mean task-dependent defaults.
type ForestConfig struct {
	Trees   int   `yaml:"trees" mapstructure:"trees"`
	MTry    int   `yaml:"mtry" mapstructure:"mtry"`
	MinLeaf int   `yaml:"min_leaf" mapstructure:"min_leaf"`
	Seed    int64 `yaml:"seed" mapstructure:"seed"`
}

// EvaluateConfig configures evaluation output.
type EvaluateConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// ReportConfig locates the run summary.
type ReportConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CANOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.path", "data/trees.csv")
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("store.path", "canopy.db")
	v.SetDefault("split.proportion", 0.80)
	v.SetDefault("split.seed", 1234)
	v.SetDefault("split.min_rows", 2)
	v.SetDefault("forest.trees", 500)
	v.SetDefault("forest.seed", 1234)
	v.SetDefault("evaluate.top_k", 10)
	v.SetDefault("report.path", "report.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

	return &cfg, nil
}

// Validate checks configuration bounds shared by every command.
func (c *Config) Validate() error {
	var problems []string
	if c.Split.Proportion <= 0 || c.Split.Proportion >= 1 {
		problems = append(problems, "split.proportion must be in (0, 1)")
	}
	if c.Split.MinRows < 2 {
		problems = append(problems, "split.min_rows must be >= 2")
	}
	if c.Forest.Trees < 1 {
		problems = append(problems, "forest.trees must be >= 1")
	}
	if c.Evaluate.TopK < 1 {
		problems = append(problems, "evaluate.top_k must be >= 1")
	}
	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
