// Package config loads the service configuration from a YAML file with
// environment variable overrides for credentials and endpoints.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML values like "2s" or "500ms"; bare integers are
// taken as nanoseconds, matching time.Duration
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

type Config struct {
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Diarizer   DiarizerConfig   `yaml:"diarizer"`
	LMStudio   LMStudioConfig   `yaml:"lmstudio"`
	Summary    SummaryConfig    `yaml:"summary"`
	Paths      PathsConfig      `yaml:"paths"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type RecognizerConfig struct {
	BaseURL   string `yaml:"base_url"`
	ModelSize string `yaml:"model_size"`
	Language  string `yaml:"language"`
}

type DiarizerConfig struct {
	BaseURL string `yaml:"base_url"`
	// Token is usually supplied through HF_TOKEN rather than the file
	Token string `yaml:"token"`
}

type LMStudioConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	// Mode selects the completion API: auto, chat or completions
	Mode string `yaml:"mode"`
}

type SummaryConfig struct {
	Mode      string `yaml:"mode"`
	MaxTokens int    `yaml:"max_tokens"`
	// OverlapTokens is a pointer so an explicit 0 (strict partition) is
	// distinguishable from an absent key
	OverlapTokens     *int     `yaml:"overlap_tokens"`
	Temperature       float64  `yaml:"temperature"`
	MaxResponseTokens int      `yaml:"max_response_tokens"`
	MaxRetries        int      `yaml:"max_retries"`
	RetryDelay        Duration `yaml:"retry_delay"`
	Concurrency       int      `yaml:"concurrency"`
}

type PathsConfig struct {
	Watch   string `yaml:"watch"`
	Work    string `yaml:"work"`
	Exports string `yaml:"exports"`
}

type PipelineConfig struct {
	AllowDegradedDiarization bool `yaml:"allow_degraded_diarization"`
	NormalizeAudio           bool `yaml:"normalize_audio"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file, applies environment overrides and
// validates the result. A missing file yields the defaults, so the service
// runs without any configuration when the local endpoints are standard.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) // #nosec G304 - caller provides the config path
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets credentials and endpoints come from the environment so
// they never have to live in the config file
func (c *Config) applyEnv() {
	if v := os.Getenv("LMSTUDIO_BASE_URL"); v != "" {
		c.LMStudio.BaseURL = v
	}
	if v := os.Getenv("LMSTUDIO_API_KEY"); v != "" {
		c.LMStudio.APIKey = v
	}
	if v := os.Getenv("HF_TOKEN"); v != "" {
		c.Diarizer.Token = v
	}
	if v := os.Getenv("WHISPER_BASE_URL"); v != "" {
		c.Recognizer.BaseURL = v
	}
	if v := os.Getenv("PYANNOTE_BASE_URL"); v != "" {
		c.Diarizer.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Summary.MaxTokens == 0 {
		c.Summary.MaxTokens = 3000
	}
	if c.Summary.OverlapTokens == nil {
		overlap := 200
		c.Summary.OverlapTokens = &overlap
	}
	if *c.Summary.OverlapTokens < 0 {
		return fmt.Errorf("summary.overlap_tokens must not be negative")
	}
	if *c.Summary.OverlapTokens >= c.Summary.MaxTokens {
		return fmt.Errorf("summary.overlap_tokens must be smaller than summary.max_tokens")
	}
	switch c.Summary.Mode {
	case "", "auto", "direct", "chunked":
	default:
		return fmt.Errorf("summary.mode must be auto, direct or chunked")
	}
	switch c.LMStudio.Mode {
	case "", "auto", "chat", "completions":
	default:
		return fmt.Errorf("lmstudio.mode must be auto, chat or completions")
	}

	if c.Recognizer.BaseURL == "" {
		c.Recognizer.BaseURL = "http://localhost:9090"
	}
	if c.Recognizer.ModelSize == "" {
		c.Recognizer.ModelSize = "medium"
	}
	if c.Recognizer.Language == "" {
		c.Recognizer.Language = "fr"
	}
	if c.Diarizer.BaseURL == "" {
		c.Diarizer.BaseURL = "http://localhost:9091"
	}
	if c.LMStudio.BaseURL == "" {
		c.LMStudio.BaseURL = "http://localhost:1234"
	}
	if c.LMStudio.Mode == "" {
		c.LMStudio.Mode = "auto"
	}
	if c.Summary.Mode == "" {
		c.Summary.Mode = "auto"
	}
	if c.Summary.MaxResponseTokens == 0 {
		c.Summary.MaxResponseTokens = 1024
	}
	if c.Summary.MaxRetries == 0 {
		c.Summary.MaxRetries = 2
	}
	if c.Summary.RetryDelay == 0 {
		c.Summary.RetryDelay = Duration(2 * time.Second)
	}
	if c.Summary.Concurrency == 0 {
		c.Summary.Concurrency = 2
	}
	if c.Paths.Work == "" {
		c.Paths.Work = "data/work"
	}
	if c.Paths.Exports == "" {
		c.Paths.Exports = "exports"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
