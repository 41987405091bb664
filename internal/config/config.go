// Package config loads application settings from environment variables and
// an optional .env file.
package config

import (
	stderrors "errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/protera/launchsync/internal/errors"
	"github.com/protera/launchsync/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	AWSRegion        string
	DesiredStatePath string
	Concurrency      int
	Timeout          time.Duration
	OutputFormat     string
	LogLevel         string
	MaxRetries       int
	RetryDelay       time.Duration
}

// Load reads configuration from the environment, with an optional .env file
// layered underneath. Flags override these values at the CLI layer.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DESIRED_STATE_PATH", "")
	v.SetDefault("CONCURRENCY", 10)
	v.SetDefault("TIMEOUT_SECONDS", 600)
	v.SetDefault("OUTPUT_FORMAT", "text")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_DELAY_SECONDS", 5)

	v.AutomaticEnv()

	// .env is optional; a malformed one is not.
	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, errors.CategoryConfig, "failed to read .env file")
		}
		logger.Debug("no .env file found, using environment and defaults")
	}

	concurrency := v.GetInt("CONCURRENCY")
	if concurrency <= 0 {
		return nil, errors.Newf(errors.CategoryConfig,
			"invalid CONCURRENCY %d, must be positive", concurrency)
	}

	timeoutSeconds := v.GetInt("TIMEOUT_SECONDS")
	if timeoutSeconds <= 0 {
		return nil, errors.Newf(errors.CategoryConfig,
			"invalid TIMEOUT_SECONDS %d, must be positive", timeoutSeconds)
	}

	maxRetries := v.GetInt("MAX_RETRIES")
	if maxRetries < 1 {
		return nil, errors.Newf(errors.CategoryConfig,
			"invalid MAX_RETRIES %d, must be at least 1", maxRetries)
	}

	retryDelaySeconds := v.GetInt("RETRY_DELAY_SECONDS")
	if retryDelaySeconds <= 0 {
		return nil, errors.Newf(errors.CategoryConfig,
			"invalid RETRY_DELAY_SECONDS %d, must be positive", retryDelaySeconds)
	}

	cfg := &Config{
		AWSRegion:        v.GetString("AWS_REGION"),
		DesiredStatePath: v.GetString("DESIRED_STATE_PATH"),
		Concurrency:      concurrency,
		Timeout:          time.Duration(timeoutSeconds) * time.Second,
		OutputFormat:     v.GetString("OUTPUT_FORMAT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		MaxRetries:       maxRetries,
		RetryDelay:       time.Duration(retryDelaySeconds) * time.Second,
	}

	logger.Debug("configuration loaded",
		"region", cfg.AWSRegion,
		"concurrency", cfg.Concurrency,
		"timeout", cfg.Timeout,
		"output", cfg.OutputFormat)
	return cfg, nil
}
