// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Verification VerificationConfig `mapstructure:"verification"`
	Limits       LimitsConfig       `mapstructure:"limits"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// VerificationConfig holds the remote verification service parameters.
type VerificationConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
}

// LimitsConfig bounds what a single submission may contain.
type LimitsConfig struct {
	MaxEmails int `mapstructure:"max_emails"`
}

// StorageConfig sets the directories for session state and upload archives.
type StorageConfig struct {
	ResultsDir string `mapstructure:"results_dir"`
	UploadsDir string `mapstructure:"uploads_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VERIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("verification.base_url", "https://api.quickemailverification.com/v1/verify")
	v.SetDefault("verification.timeout_seconds", 20)
	v.SetDefault("verification.rate_per_second", 10)
	v.SetDefault("storage.results_dir", "results")
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("logging.development", true)

	// Empty defaults register the keys so AutomaticEnv can fill them; both
	// are required and their absence fails startup.
	v.SetDefault("verification.api_key", "")
	v.SetDefault("limits.max_emails", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Verification.APIKey == "" {
		return fmt.Errorf("verification.api_key must be set")
	}
	if c.Limits.MaxEmails <= 0 {
		return fmt.Errorf("limits.max_emails must be a positive integer")
	}
	if c.Verification.TimeoutSeconds <= 0 {
		return fmt.Errorf("verification.timeout_seconds must be > 0")
	}
	if c.Verification.RatePerSecond <= 0 {
		return fmt.Errorf("verification.rate_per_second must be > 0")
	}
	if strings.TrimSpace(c.Storage.ResultsDir) == "" {
		return fmt.Errorf("storage.results_dir must be set")
	}
	return nil
}

// VerifyTimeout converts the verification timeout into a duration.
func (c Config) VerifyTimeout() time.Duration {
	return time.Duration(c.Verification.TimeoutSeconds) * time.Second
}
