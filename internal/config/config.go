// Package config provides Viper-based hierarchical configuration management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr          string `mapstructure:"addr" yaml:"addr"`
		MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
		PreviewRows   int    `mapstructure:"preview_rows" yaml:"preview_rows"`
		AllowedOrigin string `mapstructure:"allowed_origin" yaml:"allowed_origin"`
	} `mapstructure:"server" yaml:"server"`

	Data struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
	} `mapstructure:"data" yaml:"data"`

	Pipeline struct {
		QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
	} `mapstructure:"pipeline" yaml:"pipeline"`

	AI struct {
		Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
		Model             string `mapstructure:"model" yaml:"model"`
		RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
		TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey            string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`
}

// LedgerFile returns the path to the master transactions CSV.
func (c *Config) LedgerFile() string {
	return filepath.Join(c.Data.Directory, "master_transactions.csv")
}

// TaxonomyFile returns the path to the category taxonomy JSON.
func (c *Config) TaxonomyFile() string {
	return filepath.Join(c.Data.Directory, "category_data.json")
}

// ModelFile returns the path to the persisted classifier model artifact.
func (c *Config) ModelFile() string {
	return filepath.Join(c.Data.Directory, "classifier_model.json")
}

// KeywordsFile returns the path to the optional keyword-rules file used to
// seed the bootstrap classifier.
func (c *Config) KeywordsFile() string {
	return filepath.Join(c.Data.Directory, "keywords.yaml")
}

// InitializeConfig initializes Viper configuration with hierarchical loading.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.ledgercat")
	v.AddConfigPath(".ledgercat")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("LEDGERCAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Log the error but don't fail - continue with defaults and env vars
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// 5. The API key always comes from the unprefixed env var
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.preview_rows", 10)
	v.SetDefault("server.allowed_origin", "*")

	v.SetDefault("data.directory", "data")

	v.SetDefault("pipeline.queue_size", 256)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.requests_per_minute", 10)
	v.SetDefault("ai.timeout_seconds", 30)
}

// validateConfig validates the configuration values.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Data.Directory == "" {
		return fmt.Errorf("data.directory must not be empty")
	}

	if config.Server.MaxUploadMB < 1 || config.Server.MaxUploadMB > 1024 {
		return fmt.Errorf("server.max_upload_mb must be between 1 and 1024, got: %d", config.Server.MaxUploadMB)
	}

	if config.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline.queue_size must be positive, got: %d", config.Pipeline.QueueSize)
	}

	if config.AI.Enabled {
		if config.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
		}

		if config.AI.RequestsPerMinute < 1 || config.AI.RequestsPerMinute > 1000 {
			return fmt.Errorf("ai.requests_per_minute must be between 1 and 1000, got: %d", config.AI.RequestsPerMinute)
		}

		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
	}

	return nil
}
