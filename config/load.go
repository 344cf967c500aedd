// Package config holds updater configuration and loads it from flags,
// environment variables, .env files and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// UPDATER_SOURCE_URL or UPDATER_NOTIFY_SMTP_HOST.
const EnvPrefix = "UPDATER"

// Load builds a Config from v. Missing .env files and a missing default
// config file are not errors; an explicitly set config file that cannot be
// read is.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source_url", cfg.SourceURL)
	v.SetDefault("source_file", cfg.SourceFile)
	v.SetDefault("reference", cfg.ReferencePath)
	v.SetDefault("parallel", cfg.Parallelism)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("render_url", cfg.RenderURL)
	v.SetDefault("render_timeout", cfg.RenderTimeout)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("retry_backoff", cfg.RetryBackoff)
	v.SetDefault("retry_backoff_max", cfg.RetryBackoffMax)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("respect_robots", cfg.RespectRobotsTxt)
	v.SetDefault("output", cfg.OutputFile)
	v.SetDefault("format", cfg.OutputFormat)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)

	v.SetDefault("prerequisite_aware", cfg.PrerequisiteAware)
	v.SetDefault("similarity_threshold", cfg.SimilarityThreshold)
	v.SetDefault("schema.code", cfg.Schema.Code)
	v.SetDefault("schema.title", cfg.Schema.Title)
	v.SetDefault("schema.credits", cfg.Schema.Credits)
	v.SetDefault("schema.prerequisite", cfg.Schema.Prerequisite)
	v.SetDefault("schema.min_cells", cfg.Schema.MinCells)
	v.SetDefault("pipeline_buffer", cfg.PipelineBufferSize)
	v.SetDefault("dedupe_max", cfg.DedupeMaxSize)

	v.SetDefault("store_dir", cfg.StoreDir)
	v.SetDefault("database_url", cfg.DatabaseURL)

	v.SetDefault("notify.smtp_host", cfg.Notify.SMTPHost)
	v.SetDefault("notify.smtp_port", cfg.Notify.SMTPPort)
	v.SetDefault("notify.smtp_username", cfg.Notify.SMTPUsername)
	v.SetDefault("notify.smtp_password", cfg.Notify.SMTPPassword)
	v.SetDefault("notify.from", cfg.Notify.From)
	v.SetDefault("notify.to", cfg.Notify.To)
	v.SetDefault("notify.webhook_url", cfg.Notify.WebhookURL)
	v.SetDefault("notify.on_match", cfg.Notify.OnMatch)
	v.SetDefault("notify.timeout", cfg.Notify.Timeout)
}
