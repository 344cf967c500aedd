package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/parser"
)

// Config holds updater configuration. Every collaborator receives the part it
// needs explicitly; nothing here is read from process-wide state.
type Config struct {
	SourceURL        string        `mapstructure:"source_url"`
	SourceFile       string        `mapstructure:"source_file"`
	ReferencePath    string        `mapstructure:"reference"`
	Parallelism      int           `mapstructure:"parallel"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RenderURL        string        `mapstructure:"render_url"`
	RenderTimeout    time.Duration `mapstructure:"render_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	RetryBackoffMax  time.Duration `mapstructure:"retry_backoff_max"`
	UserAgent        string        `mapstructure:"user_agent"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots"`
	OutputFile       string        `mapstructure:"output"`
	OutputFormat     string        `mapstructure:"format"` // json, csv, or dual
	Verbose          bool          `mapstructure:"verbose"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`

	PrerequisiteAware   bool                `mapstructure:"prerequisite_aware"`
	SimilarityThreshold float64             `mapstructure:"similarity_threshold"`
	Schema              parser.ColumnSchema `mapstructure:"schema"`
	PipelineBufferSize  int                 `mapstructure:"pipeline_buffer"`
	DedupeMaxSize       int                 `mapstructure:"dedupe_max"`

	StoreDir    string `mapstructure:"store_dir"`
	DatabaseURL string `mapstructure:"database_url"`

	Notify NotifyConfig `mapstructure:"notify"`
}

// NotifyConfig configures report delivery.
type NotifyConfig struct {
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	From         string        `mapstructure:"from"`
	To           []string      `mapstructure:"to"`
	WebhookURL   string        `mapstructure:"webhook_url"`
	OnMatch      bool          `mapstructure:"on_match"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether any delivery channel is configured.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPHost != "" || n.WebhookURL != ""
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		Parallelism:         4,
		Timeout:             15 * time.Second,
		RenderTimeout:       45 * time.Second,
		MaxRetries:          2,
		RetryBackoff:        200 * time.Millisecond,
		RetryBackoffMax:     2 * time.Second,
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		OutputFile:          "output/report.json",
		OutputFormat:        "json",
		SimilarityThreshold: 0.15,
		Schema:              parser.DefaultSchema(),
		PipelineBufferSize:  64,
		DedupeMaxSize:       1024,
		StoreDir:            "output",
		Notify: NotifyConfig{
			SMTPPort: 587,
			Timeout:  10 * time.Second,
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SourceURL != "" {
		if err := validateURL("source URL", c.SourceURL); err != nil {
			return err
		}
	}
	if c.RenderURL != "" {
		if err := validateURL("render URL", c.RenderURL); err != nil {
			return err
		}
		if c.RenderTimeout <= 0 {
			return fmt.Errorf("render timeout must be positive")
		}
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1]")
	}
	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("invalid column schema: %w", err)
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.Notify.SMTPHost != "" {
		if c.Notify.From == "" || len(c.Notify.To) == 0 {
			return fmt.Errorf("smtp notification needs a sender and at least one recipient")
		}
		if c.Notify.SMTPPort <= 0 {
			return fmt.Errorf("smtp port must be positive")
		}
	}
	if c.Notify.WebhookURL != "" {
		if err := validateURL("webhook URL", c.Notify.WebhookURL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSource ensures a document source is configured.
func (c *Config) ValidateSource() error {
	if c.SourceURL == "" && c.SourceFile == "" {
		return fmt.Errorf("either a source URL or a source file is required")
	}
	return nil
}

func validateURL(label, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", label, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", label)
	}
	return nil
}
