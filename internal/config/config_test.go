package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	content := `
pipeline:
  article_batch_size: 50
  sub_batch_size: 16
  workers: 2

aggregate:
  confidence_floor: 70
  attribution: all
  extractor: cashtag

sample:
  k: 300
  seed: 7

predictor:
  url: "http://classifier:8000/predict"
  timeout: 10s

labeler:
  provider: anthropic
  model: claude-3-5-haiku-latest
  backoff: 2s

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

logging:
  level: "debug"
  format: "json"
`
	path := filepath.Join(t.TempDir(), "finsent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Pipeline.ArticleBatchSize != 50 || cfg.Pipeline.SubBatchSize != 16 || cfg.Pipeline.Workers != 2 {
		t.Errorf("Unexpected pipeline config: %+v", cfg.Pipeline)
	}
	if cfg.Aggregate.ConfidenceFloor != 70 {
		t.Errorf("Unexpected confidence floor: %v", cfg.Aggregate.ConfidenceFloor)
	}
	if cfg.Aggregate.HeadlineMarker != " <HEADLINE>" {
		t.Errorf("Default headline marker not applied: %q", cfg.Aggregate.HeadlineMarker)
	}
	if cfg.Sample.K != 300 || cfg.Sample.Seed != 7 {
		t.Errorf("Unexpected sample config: %+v", cfg.Sample)
	}
	if cfg.Predictor.Timeout != 10*time.Second {
		t.Errorf("Unexpected predictor timeout: %v", cfg.Predictor.Timeout)
	}
	if cfg.Labeler.Backoff != 2*time.Second || cfg.Labeler.MaxAttempts != 3 {
		t.Errorf("Unexpected labeler config: %+v", cfg.Labeler)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.ArticleBatchSize != 100 || cfg.Pipeline.SubBatchSize != 32 {
		t.Errorf("Unexpected batch defaults: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.MaxSkipRatio != 0.05 {
		t.Errorf("Unexpected skip ratio default: %v", cfg.Pipeline.MaxSkipRatio)
	}
	if cfg.Aggregate.ConfidenceFloor != 60 || cfg.Aggregate.FallbackSector != "Other" {
		t.Errorf("Unexpected aggregate defaults: %+v", cfg.Aggregate)
	}
	if cfg.Evaluate.Bins != 10 || cfg.Sample.K != 200 || cfg.Sample.Seed != 42 {
		t.Errorf("Unexpected evaluate/sample defaults: %+v %+v", cfg.Evaluate, cfg.Sample)
	}
	if cfg.Labeler.Backoff != 1500*time.Millisecond || cfg.Labeler.MaxSentences != 40 {
		t.Errorf("Unexpected labeler defaults: %+v", cfg.Labeler)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FINSENT_LABELER_API_KEY", "sk-test")
	t.Setenv("FINSENT_SAMPLE_K", "25")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Labeler.APIKey != "sk-test" {
		t.Errorf("api key not taken from env: %q", cfg.Labeler.APIKey)
	}
	if cfg.Sample.K != 25 {
		t.Errorf("sample.k not taken from env: %d", cfg.Sample.K)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pipeline: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero article batch", func(c *Config) { c.Pipeline.ArticleBatchSize = 0 }},
		{"negative sub batch", func(c *Config) { c.Pipeline.SubBatchSize = -1 }},
		{"skip ratio above one", func(c *Config) { c.Pipeline.MaxSkipRatio = 1.5 }},
		{"confidence floor above 100", func(c *Config) { c.Aggregate.ConfidenceFloor = 101 }},
		{"unknown attribution", func(c *Config) { c.Aggregate.Attribution = "weighted" }},
		{"unknown extractor", func(c *Config) { c.Aggregate.Extractor = "spacy" }},
		{"zero bins", func(c *Config) { c.Evaluate.Bins = 0 }},
		{"zero k", func(c *Config) { c.Sample.K = 0 }},
		{"unknown provider", func(c *Config) { c.Labeler.Provider = "gemini" }},
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "1"
		}},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestValidateAllowsSubBatchLargerThanBatch(t *testing.T) {
	cfg := validConfig(t)
	cfg.Pipeline.ArticleBatchSize = 10
	cfg.Pipeline.SubBatchSize = 64
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
