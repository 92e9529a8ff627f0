package config

import (
	"os"
	"strconv"
	"time"

	"gopfa/internal/errors"
)

// Config represents the complete compiler configuration
type Config struct {
	Engine     EngineConfig
	Validation ValidationConfig
	Fetch      FetchConfig
}

// EngineConfig holds external scoring engine settings. URL may be empty:
// compilation works without an engine, validation does not.
type EngineConfig struct {
	URL     string
	Timeout time.Duration
}

// ValidationConfig holds numeric comparison settings
type ValidationConfig struct {
	Tolerance   float64
	SampleLimit int
	Workers     int
}

// FetchConfig bounds document reads from remote sources
type FetchConfig struct {
	Timeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Engine: EngineConfig{
			URL:     getEnvOrDefault("PFA_ENGINE_URL", ""),
			Timeout: getEnvDurationOrDefault("PFA_ENGINE_TIMEOUT_MS", 10*time.Second),
		},
		Validation: ValidationConfig{
			Tolerance:   getEnvFloatOrDefault("PFA_VALIDATION_TOLERANCE", 1e-4),
			SampleLimit: getEnvIntOrDefault("PFA_VALIDATION_SAMPLES", 100),
			Workers:     getEnvIntOrDefault("PFA_VALIDATION_WORKERS", 4),
		},
		Fetch: FetchConfig{
			Timeout: getEnvDurationOrDefault("PFA_FETCH_TIMEOUT_MS", 10*time.Second),
		},
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Validation.Tolerance <= 0 {
		return errors.ConfigInvalid("validation tolerance must be positive")
	}
	if config.Validation.SampleLimit <= 0 {
		return errors.ConfigInvalid("validation sample limit must be positive")
	}
	if config.Validation.Workers <= 0 {
		return errors.ConfigInvalid("validation worker count must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
