package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// Config is the full worker configuration, loaded from YAML with flag
// overrides applied in main. AWS credentials are never configured here;
// they come from the environment via the SDK's default chain.
type Config struct {
	Scanner struct {
		Phrase       string `yaml:"phrase"`
		BatchSize    int    `yaml:"batch_size"`
		LanguageHint string `yaml:"language_hint"`
	} `yaml:"scanner"`

	Segmentation struct {
		Mode           string  `yaml:"mode"` // fixed or sliding
		SegmentSeconds float64 `yaml:"segment_seconds"`
		OverlapSeconds float64 `yaml:"overlap_seconds"`
	} `yaml:"segmentation"`

	Queue struct {
		URL               string `yaml:"url"`
		WaitSeconds       int32  `yaml:"wait_seconds"`
		VisibilitySeconds int32  `yaml:"visibility_timeout_seconds"`
		AckPolicy         string `yaml:"ack_policy"` // early or late
	} `yaml:"queue"`

	Storage struct {
		Backend           string `yaml:"backend"` // s3 or local
		Region            string `yaml:"region"`
		Bucket            string `yaml:"bucket"`
		TranscriptsPrefix string `yaml:"transcripts_prefix"`
		ResultsPrefix     string `yaml:"results_prefix"`
		LocalRoot         string `yaml:"local_root"`
		TempDir           string `yaml:"temp_dir"`
		Database          string `yaml:"database"`
	} `yaml:"storage"`

	Transcriber struct {
		Provider       string  `yaml:"provider"` // http or local
		Endpoint       string  `yaml:"endpoint"`
		Model          string  `yaml:"model"`
		Device         string  `yaml:"device"` // cpu or cuda
		Retries        int     `yaml:"retries"`
		BackoffFactor  float64 `yaml:"backoff_factor"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"transcriber"`

	Server struct {
		Addr string `yaml:"addr"` // health/stats listen address, empty disables
	} `yaml:"server"`
}

// Default returns a Config with every default the scanner recognizes.
func Default() *Config {
	cfg := &Config{}
	cfg.Scanner.Phrase = "hustle"
	cfg.Scanner.BatchSize = 5
	cfg.Scanner.LanguageHint = "en"
	cfg.Segmentation.Mode = types.ModeFixed
	cfg.Queue.WaitSeconds = 5
	cfg.Queue.VisibilitySeconds = 600
	cfg.Queue.AckPolicy = "early"
	cfg.Storage.Backend = "s3"
	cfg.Storage.Region = "us-east-1"
	cfg.Storage.Bucket = "2025-03-15-youtube-transcripts"
	cfg.Storage.TranscriptsPrefix = "transcripts"
	cfg.Storage.ResultsPrefix = "results"
	cfg.Storage.LocalRoot = "./output"
	cfg.Storage.TempDir = "./temp"
	cfg.Storage.Database = "./scanner.db"
	cfg.Transcriber.Provider = "http"
	cfg.Transcriber.Endpoint = "http://localhost:8000"
	cfg.Transcriber.Model = "small"
	cfg.Transcriber.Device = "cpu"
	cfg.Transcriber.Retries = 3
	cfg.Transcriber.BackoffFactor = 2
	cfg.Transcriber.TimeoutSeconds = 300
	cfg.Server.Addr = ""
	return cfg
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; flags and defaults carry the run.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyMode resolves the segmentation mode into concrete window
// parameters unless explicit overrides were given.
func (c *Config) ApplyMode() {
	if c.Segmentation.SegmentSeconds > 0 {
		return
	}
	switch c.Segmentation.Mode {
	case types.ModeSliding:
		c.Segmentation.SegmentSeconds = 600
		c.Segmentation.OverlapSeconds = 30
	default:
		c.Segmentation.SegmentSeconds = 60
		c.Segmentation.OverlapSeconds = 0
	}
}

// Validate checks the cross-field constraints a run depends on.
func (c *Config) Validate() error {
	if c.Scanner.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Scanner.BatchSize)
	}
	if c.Segmentation.SegmentSeconds <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v", c.Segmentation.SegmentSeconds)
	}
	if c.Segmentation.OverlapSeconds < 0 || c.Segmentation.OverlapSeconds >= c.Segmentation.SegmentSeconds {
		return fmt.Errorf("overlap %v must be in [0, segment duration %v)",
			c.Segmentation.OverlapSeconds, c.Segmentation.SegmentSeconds)
	}
	if c.Storage.Backend != "s3" && c.Storage.Backend != "local" {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Transcriber.Provider != "http" && c.Transcriber.Provider != "local" {
		return fmt.Errorf("unknown transcription provider %q", c.Transcriber.Provider)
	}
	return nil
}
