package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = "configs/finsent.yaml"

// EnvPrefix prefixes every environment override, e.g. FINSENT_LABELER_API_KEY.
const EnvPrefix = "FINSENT"

// Config represents the complete application configuration
type Config struct {
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Evaluate  EvaluateConfig  `mapstructure:"evaluate"`
	Sample    SampleConfig    `mapstructure:"sample"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Labeler   LabelerConfig   `mapstructure:"labeler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PipelineConfig holds batching and skip tolerance shared by all stages
type PipelineConfig struct {
	ArticleBatchSize int     `mapstructure:"article_batch_size"`
	SubBatchSize     int     `mapstructure:"sub_batch_size"`
	Workers          int     `mapstructure:"workers"`
	MaxSkipRatio     float64 `mapstructure:"max_skip_ratio"`
}

// AggregateConfig holds sector attribution and voting configuration
type AggregateConfig struct {
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
	HeadlineMarker  string  `mapstructure:"headline_marker"`
	FallbackSector  string  `mapstructure:"fallback_sector"`
	TickerMap       string  `mapstructure:"ticker_map"`
	Attribution     string  `mapstructure:"attribution"` // first | all
	Extractor       string  `mapstructure:"extractor"`   // paren | cashtag | whitelist
}

// EvaluateConfig holds calibration evaluation configuration
type EvaluateConfig struct {
	Bins       int    `mapstructure:"bins"`
	ResultsDir string `mapstructure:"results_dir"`
}

// SampleConfig holds reservoir sampling configuration
type SampleConfig struct {
	K    int   `mapstructure:"k"`
	Seed int64 `mapstructure:"seed"`
}

// PredictorConfig holds the remote sentence classifier configuration
type PredictorConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LabelerConfig holds LLM gold labelling configuration
type LabelerConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Backoff      time.Duration `mapstructure:"backoff"`
	MaxSentences int           `mapstructure:"max_sentences"`
}

// StorageConfig holds run history configuration
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
	MaxRuns int    `mapstructure:"max_runs"`
}

// MetricsConfig holds Prometheus textfile export configuration
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables export
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A missing
// file at path is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.article_batch_size", 100)
	v.SetDefault("pipeline.sub_batch_size", 32)
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.max_skip_ratio", 0.05)

	v.SetDefault("aggregate.confidence_floor", 60.0)
	v.SetDefault("aggregate.headline_marker", " <HEADLINE>")
	v.SetDefault("aggregate.fallback_sector", "Other")
	v.SetDefault("aggregate.ticker_map", "data/ticker2sector.csv")
	v.SetDefault("aggregate.attribution", "first")
	v.SetDefault("aggregate.extractor", "paren")

	v.SetDefault("evaluate.bins", 10)
	v.SetDefault("evaluate.results_dir", "results")

	v.SetDefault("sample.k", 200)
	v.SetDefault("sample.seed", 42)

	v.SetDefault("predictor.url", "http://localhost:8000/predict")
	v.SetDefault("predictor.timeout", "30s")
	v.SetDefault("predictor.max_retries", 3)
	v.SetDefault("predictor.retry_delay_base", "1s")

	v.SetDefault("labeler.provider", "openai")
	v.SetDefault("labeler.model", "gpt-4o-mini")
	v.SetDefault("labeler.api_key", "")
	v.SetDefault("labeler.base_url", "")
	v.SetDefault("labeler.max_attempts", 3)
	v.SetDefault("labeler.backoff", "1.5s")
	v.SetDefault("labeler.max_sentences", 40)

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.db_path", "") // "" = $TMPDIR/finsent/runs.db
	v.SetDefault("storage.max_runs", 1000)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Pipeline.ArticleBatchSize < 1 {
		return fmt.Errorf("pipeline.article_batch_size must be at least 1")
	}
	if c.Pipeline.SubBatchSize < 1 {
		return fmt.Errorf("pipeline.sub_batch_size must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if c.Pipeline.MaxSkipRatio < 0 || c.Pipeline.MaxSkipRatio > 1 {
		return fmt.Errorf("pipeline.max_skip_ratio must be between 0.0 and 1.0")
	}

	if c.Aggregate.ConfidenceFloor < 0 || c.Aggregate.ConfidenceFloor > 100 {
		return fmt.Errorf("aggregate.confidence_floor must be between 0 and 100")
	}
	if c.Aggregate.FallbackSector == "" {
		return fmt.Errorf("aggregate.fallback_sector is required")
	}
	if c.Aggregate.Attribution != "first" && c.Aggregate.Attribution != "all" {
		return fmt.Errorf("aggregate.attribution must be one of: first, all")
	}
	validExtractors := map[string]bool{"paren": true, "cashtag": true, "whitelist": true}
	if !validExtractors[c.Aggregate.Extractor] {
		return fmt.Errorf("aggregate.extractor must be one of: paren, cashtag, whitelist")
	}

	if c.Evaluate.Bins < 1 {
		return fmt.Errorf("evaluate.bins must be at least 1")
	}
	if c.Sample.K < 1 {
		return fmt.Errorf("sample.k must be at least 1")
	}

	if c.Predictor.Timeout <= 0 {
		return fmt.Errorf("predictor.timeout must be positive")
	}
	if c.Predictor.MaxRetries < 1 {
		return fmt.Errorf("predictor.max_retries must be at least 1")
	}

	validProviders := map[string]bool{"openai": true, "anthropic": true}
	if !validProviders[strings.ToLower(c.Labeler.Provider)] {
		return fmt.Errorf("labeler.provider must be one of: openai, anthropic")
	}
	if c.Labeler.MaxAttempts < 1 {
		return fmt.Errorf("labeler.max_attempts must be at least 1")
	}
	if c.Labeler.MaxSentences < 1 {
		return fmt.Errorf("labeler.max_sentences must be at least 1")
	}

	if c.Storage.MaxRuns < 0 {
		return fmt.Errorf("storage.max_runs must not be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
