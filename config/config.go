// Package config loads and validates service configuration from a file
// and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/c360/textann/errors"
	"github.com/c360/textann/model"
	"github.com/c360/textann/pkg/retry"
)

// Config represents the complete service configuration.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service" json:"service"`
	HTTP       HTTPConfig       `mapstructure:"http" json:"http"`
	NATS       NATSConfig       `mapstructure:"nats" json:"nats"`
	Models     ModelsConfig     `mapstructure:"models" json:"models"`
	Extraction ExtractionConfig `mapstructure:"extraction" json:"extraction"`
	Reply      ReplyConfig      `mapstructure:"reply" json:"reply"`
	Logging    LoggingConfig    `mapstructure:"logging" json:"logging"`
}

// ServiceConfig identifies the running instance.
type ServiceConfig struct {
	Name        string `mapstructure:"name" json:"name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// HTTPConfig holds the gateway listener settings.
type HTTPConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" json:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// NATSConfig holds the optional event-publishing connection.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled"`
	URL           string        `mapstructure:"url" json:"url,omitempty"`
	Subject       string        `mapstructure:"subject" json:"subject,omitempty"`
	MaxReconnects int           `mapstructure:"max_reconnects" json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" json:"reconnect_wait,omitempty"`
}

// ModelsConfig controls language resource acquisition.
type ModelsConfig struct {
	// BaseURL is the artifact store root; artifacts live at
	// <base_url>/<tag>.model.
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// CacheDir enables the on-disk artifact cache when non-empty.
	CacheDir            string        `mapstructure:"cache_dir" json:"cache_dir,omitempty"`
	PreloadLanguages    []string      `mapstructure:"preload_languages" json:"preload_languages,omitempty"`
	AllowCellular       bool          `mapstructure:"allow_cellular" json:"allow_cellular"`
	AllowBackground     bool          `mapstructure:"allow_background" json:"allow_background"`
	DownloadAttempts    int           `mapstructure:"download_attempts" json:"download_attempts"`
	DownloadRetryDelay  time.Duration `mapstructure:"download_retry_delay" json:"download_retry_delay"`
	DownloadRetryCeil   time.Duration `mapstructure:"download_retry_ceil" json:"download_retry_ceil"`
}

// ExtractionConfig sizes the validation worker pool.
type ExtractionConfig struct {
	Workers   int `mapstructure:"workers" json:"workers"`
	QueueSize int `mapstructure:"queue_size" json:"queue_size"`
}

// ReplyConfig controls suggestion ranking.
type ReplyConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Load reads configuration from the given file path plus TEXTANN_*
// environment variables. An empty path loads defaults and environment
// only, so a bare deployment still starts.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TEXTANN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: reading %s: %w", errors.ErrInvalidConfig, path, err),
				"config", "Load", "check the config file path and syntax")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"config", "Load", "check config field types")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "textann")
	v.SetDefault("service.environment", "dev")

	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject", "textann.models")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("models.base_url", "http://localhost:9000/models")
	v.SetDefault("models.allow_cellular", true)
	v.SetDefault("models.allow_background", false)
	v.SetDefault("models.download_attempts", 3)
	v.SetDefault("models.download_retry_delay", "500ms")
	v.SetDefault("models.download_retry_ceil", "10s")

	v.SetDefault("extraction.workers", 4)
	v.SetDefault("extraction.queue_size", 256)

	v.SetDefault("reply.min_confidence", 0.30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true,
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...)),
			"config", "Validate", "fix the offending field")
	}

	if c.HTTP.ListenAddr == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: http.listen_addr", errors.ErrMissingConfig),
			"config", "Validate", "set http.listen_addr")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout must be positive, got %s", c.HTTP.ShutdownTimeout)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.url (nats.enabled is true)", errors.ErrMissingConfig),
			"config", "Validate", "set nats.url or disable nats")
	}
	if c.NATS.Enabled && c.NATS.Subject == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.subject (nats.enabled is true)", errors.ErrMissingConfig),
			"config", "Validate", "set nats.subject or disable nats")
	}

	if c.Models.BaseURL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: models.base_url", errors.ErrMissingConfig),
			"config", "Validate", "set models.base_url")
	}
	for _, tag := range c.Models.PreloadLanguages {
		if _, ok := model.FromLanguageTag(tag); !ok {
			return invalid("models.preload_languages contains unsupported tag %q", tag)
		}
	}
	if c.Models.DownloadAttempts < 1 {
		return invalid("models.download_attempts must be at least 1, got %d", c.Models.DownloadAttempts)
	}

	if c.Extraction.Workers < 1 {
		return invalid("extraction.workers must be at least 1, got %d", c.Extraction.Workers)
	}
	if c.Extraction.QueueSize < 1 {
		return invalid("extraction.queue_size must be at least 1, got %d", c.Extraction.QueueSize)
	}

	if c.Reply.MinConfidence < 0 || c.Reply.MinConfidence > 1 {
		return invalid("reply.min_confidence must be in [0, 1], got %g", c.Reply.MinConfidence)
	}

	if !validLogLevels[c.Logging.Level] {
		return invalid("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return invalid("logging.format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// PreloadIdentifiers resolves models.preload_languages to identifiers.
// Validate has already checked the tags, so resolution cannot fail after
// a successful Load.
func (c *Config) PreloadIdentifiers() ([]model.Identifier, error) {
	ids := make([]model.Identifier, 0, len(c.Models.PreloadLanguages))
	for _, tag := range c.Models.PreloadLanguages {
		id, ok := model.FromLanguageTag(tag)
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrUnsupportedLanguage, tag),
				"config", "PreloadIdentifiers", "remove the unsupported tag")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DownloadConditions returns the configured transfer policy.
func (c *Config) DownloadConditions() model.DownloadConditions {
	return model.DownloadConditions{
		AllowsCellularAccess:      c.Models.AllowCellular,
		AllowsBackgroundDownloading: c.Models.AllowBackground,
	}
}

// RetryConfig returns the download retry policy.
func (c *Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  c.Models.DownloadAttempts,
		InitialDelay: c.Models.DownloadRetryDelay,
		MaxDelay:     c.Models.DownloadRetryCeil,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

