package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/deepak-highbeam/complaint-classifier/internal/ingest"
	"github.com/deepak-highbeam/complaint-classifier/internal/naivebayes"
	"github.com/deepak-highbeam/complaint-classifier/internal/preprocess"
	"github.com/deepak-highbeam/complaint-classifier/internal/sample"
	"github.com/deepak-highbeam/complaint-classifier/internal/vectorize"
)

// EnvPrefix prefixes every environment override, e.g. FEEDBACK_TRAIN_ALPHA.
const EnvPrefix = "FEEDBACK"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the settings of every pipeline stage.
type Config struct {
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Sample     SampleConfig     `mapstructure:"sample"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Train      TrainConfig      `mapstructure:"train"`
	Evaluate   EvaluateConfig   `mapstructure:"evaluate"`
	History    HistoryConfig    `mapstructure:"history"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type IngestConfig struct {
	Input           string   `mapstructure:"input"`
	Output          string   `mapstructure:"output"`
	RulesFile       string   `mapstructure:"rules_file"`
	AllowedProducts []string `mapstructure:"allowed_products"`
	MinTextLen      int      `mapstructure:"min_text_len"`
	Seed            int64    `mapstructure:"seed"`
}

type SampleConfig struct {
	Src      string `mapstructure:"src"`
	Dst      string `mapstructure:"dst"`
	Cap      int    `mapstructure:"cap"`
	CapOther int    `mapstructure:"cap_other"`
	Seed     int64  `mapstructure:"seed"`
}

type PreprocessConfig struct {
	Input     string  `mapstructure:"input"`
	OutputDir string  `mapstructure:"output_dir"`
	Dedup     bool    `mapstructure:"dedup"`
	TestSize  float64 `mapstructure:"test_size"`
	Seed      int64   `mapstructure:"seed"`
}

// TrainConfig embeds the vectorizer hyperparameters at the same level as
// the model settings (train.min_df, train.alpha, ...).
type TrainConfig struct {
	TrainPath        string  `mapstructure:"train_path"`
	VectorizerOut    string  `mapstructure:"vectorizer_out"`
	ModelOut         string  `mapstructure:"model_out"`
	ModelType        string  `mapstructure:"model_type"`
	Alpha            float64 `mapstructure:"alpha"`
	vectorize.Config `mapstructure:",squash"`
}

type EvaluateConfig struct {
	DataPath   string `mapstructure:"data_path"`
	Vectorizer string `mapstructure:"vectorizer"`
	Model      string `mapstructure:"model"`
	OutputXLSX string `mapstructure:"output_xlsx"`
}

// HistoryConfig controls the run-history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// MetricsConfig controls the Prometheus textfile export. An empty Textfile
// disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultDataDir returns the default data directory (~/.feedback).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".feedback")
}

// ConfigPath returns the default path to the config file.
func ConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Default returns a Config with the documented defaults. Data paths are
// relative to the working directory.
func Default() *Config {
	return &Config{
		Ingest: IngestConfig{
			Input:           "data/raw/complaints.csv",
			Output:          "data/raw/customer_feedback.csv",
			AllowedProducts: ingest.DefaultAllowedProducts(),
			MinTextLen:      ingest.DefaultMinTextLen,
			Seed:            ingest.DefaultSeed,
		},
		Sample: SampleConfig{
			Src:      "data/raw/customer_feedback.csv",
			Dst:      "data/raw/customer_feedback_sample.csv",
			Cap:      sample.DefaultCap,
			CapOther: sample.DefaultCapOther,
			Seed:     sample.DefaultSeed,
		},
		Preprocess: PreprocessConfig{
			Input:     "data/raw/customer_feedback.csv",
			OutputDir: "data/processed",
			Dedup:     true,
			TestSize:  preprocess.DefaultTestSize,
			Seed:      preprocess.DefaultSeed,
		},
		Train: TrainConfig{
			TrainPath:     "data/processed/train.csv",
			VectorizerOut: "models/vectorizer.json",
			ModelOut:      "models/classifier.json",
			ModelType:     string(naivebayes.Multinomial),
			Alpha:         naivebayes.DefaultAlpha,
			Config:        vectorize.DefaultConfig(),
		},
		Evaluate: EvaluateConfig{
			DataPath:   "data/processed/test.csv",
			Vectorizer: "models/vectorizer.json",
			Model:      "models/classifier.json",
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(DefaultDataDir(), "history.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers every default with v so that environment variables
// and config files can override any key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	set := map[string]any{
		"ingest.input":            d.Ingest.Input,
		"ingest.output":           d.Ingest.Output,
		"ingest.rules_file":       d.Ingest.RulesFile,
		"ingest.allowed_products": d.Ingest.AllowedProducts,
		"ingest.min_text_len":     d.Ingest.MinTextLen,
		"ingest.seed":             d.Ingest.Seed,

		"sample.src":       d.Sample.Src,
		"sample.dst":       d.Sample.Dst,
		"sample.cap":       d.Sample.Cap,
		"sample.cap_other": d.Sample.CapOther,
		"sample.seed":      d.Sample.Seed,

		"preprocess.input":      d.Preprocess.Input,
		"preprocess.output_dir": d.Preprocess.OutputDir,
		"preprocess.dedup":      d.Preprocess.Dedup,
		"preprocess.test_size":  d.Preprocess.TestSize,
		"preprocess.seed":       d.Preprocess.Seed,

		"train.train_path":     d.Train.TrainPath,
		"train.vectorizer_out": d.Train.VectorizerOut,
		"train.model_out":      d.Train.ModelOut,
		"train.model_type":     d.Train.ModelType,
		"train.alpha":          d.Train.Alpha,
		"train.analyzer":       string(d.Train.Analyzer),
		"train.ngram_min":      d.Train.NGramMin,
		"train.ngram_max":      d.Train.NGramMax,
		"train.min_df":         d.Train.MinDF,
		"train.max_df":         d.Train.MaxDF,
		"train.max_features":   d.Train.MaxFeatures,
		"train.sublinear_tf":   d.Train.SublinearTF,
		"train.lowercase":      d.Train.Lowercase,

		"evaluate.data_path":   d.Evaluate.DataPath,
		"evaluate.vectorizer":  d.Evaluate.Vectorizer,
		"evaluate.model":       d.Evaluate.Model,
		"evaluate.output_xlsx": d.Evaluate.OutputXLSX,

		"history.enabled": d.History.Enabled,
		"history.db_path": d.History.DBPath,

		"metrics.textfile": d.Metrics.Textfile,

		"logging.level":  d.Logging.Level,
		"logging.format": d.Logging.Format,
	}
	for k, val := range set {
		v.SetDefault(k, val)
	}
}

// Load resolves configuration from defaults, the YAML file at path (or
// ~/.feedback/config.yaml when path is empty), FEEDBACK_* environment
// variables, and any flags already bound to v. A missing default config
// file is not an error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDataDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that no stage can run with.
func (c *Config) Validate() error {
	if c.Ingest.MinTextLen < 0 {
		return fmt.Errorf("%w: ingest.min_text_len must be >= 0", ErrInvalid)
	}
	if c.Sample.Cap < 0 || c.Sample.CapOther < 0 {
		return fmt.Errorf("%w: sample caps must be >= 0", ErrInvalid)
	}
	if !(c.Preprocess.TestSize > 0 && c.Preprocess.TestSize < 1) {
		return fmt.Errorf("%w: preprocess.test_size must be in (0, 1)", ErrInvalid)
	}
	if _, err := naivebayes.ParseKind(c.Train.ModelType); err != nil {
		return fmt.Errorf("%w: train.model_type: %v", ErrInvalid, err)
	}
	if !(c.Train.Alpha > 0) {
		return fmt.Errorf("%w: train.alpha must be > 0", ErrInvalid)
	}
	if err := c.Train.Config.Validate(); err != nil {
		return fmt.Errorf("%w: train: %v", ErrInvalid, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}
