// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis side cache; optional, the resolver runs without it
	RedisURL string `koanf:"redis_url"`

	// External volume source (SearchAds-style API)
	VolumeAPIBaseURL    string `koanf:"volume_api_base_url"`
	VolumeAPIKey        string `koanf:"volume_api_key"`
	VolumeAPICustomerID string `koanf:"volume_api_customer_id"`

	// Rank verification backend
	RankAPIBaseURL string `koanf:"rank_api_base_url"`

	// Cache freshness knobs
	VolumeCacheTTLDays   int `koanf:"volume_cache_ttl_days"`
	AlgoConfigTTLSeconds int `koanf:"algo_config_ttl_seconds"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporter     string  `koanf:"tracing_exporter"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingVolumeAPIBaseURL  = errors.New("VOLUME_API_BASE_URL is required")
	ErrMissingVolumeAPIKey      = errors.New("VOLUME_API_KEY is required")
	ErrMissingVolumeAPICustomer = errors.New("VOLUME_API_CUSTOMER_ID is required")
	ErrMissingRankAPIBaseURL    = errors.New("RANK_API_BASE_URL is required")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort                 = 8080
	DefaultEnv                  = "development"
	DefaultVolumeCacheTTLDays   = 30
	DefaultAlgoConfigTTLSeconds = 30
	DefaultTracingSamplingRate  = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try KEYTIER_PORT first, then PORT for platform compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"KEYTIER_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	cacheTTLDays, ttlErr := getEnvIntOrDefault("VOLUME_CACHE_TTL_DAYS", k.Int("volume_cache_ttl_days"), DefaultVolumeCacheTTLDays)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	configTTLSeconds, configTTLErr := getEnvIntOrDefault("ALGO_CONFIG_TTL_SECONDS", k.Int("algo_config_ttl_seconds"), DefaultAlgoConfigTTLSeconds)
	if configTTLErr != nil {
		loadErrs = append(loadErrs, configTTLErr)
	}

	samplingRate, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                 port,
		Env:                  getEnvOrDefaultMulti([]string{"KEYTIER_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:          getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:             getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		VolumeAPIBaseURL:     getEnvOrKoanf("VOLUME_API_BASE_URL", k, "volume_api_base_url"),
		VolumeAPIKey:         getEnvOrKoanf("VOLUME_API_KEY", k, "volume_api_key"),
		VolumeAPICustomerID:  getEnvOrKoanf("VOLUME_API_CUSTOMER_ID", k, "volume_api_customer_id"),
		RankAPIBaseURL:       getEnvOrKoanf("RANK_API_BASE_URL", k, "rank_api_base_url"),
		VolumeCacheTTLDays:   cacheTTLDays,
		AlgoConfigTTLSeconds: configTTLSeconds,
		TracingEnabled:       getEnvBool("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporter:      getEnvOrKoanf("TRACING_EXPORTER", k, "tracing_exporter"),
		TracingEndpoint:      getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSamplingRate:  samplingRate,
		TracingInsecure:      getEnvBool("TRACING_INSECURE", k, "tracing_insecure", false),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBool returns the environment variable as bool if set, otherwise the
// koanf value, or default. Env vars take precedence over file config.
func getEnvBool(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.VolumeAPIBaseURL == "" {
		errs = append(errs, ErrMissingVolumeAPIBaseURL)
	}
	if c.VolumeAPIKey == "" {
		errs = append(errs, ErrMissingVolumeAPIKey)
	}
	if c.VolumeAPICustomerID == "" {
		errs = append(errs, ErrMissingVolumeAPICustomer)
	}
	if c.RankAPIBaseURL == "" {
		errs = append(errs, ErrMissingRankAPIBaseURL)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                    fmt.Sprintf("%d", c.Port),
		"env":                     c.Env,
		"database_url":            maskDatabaseURL(c.DatabaseURL),
		"redis_url":               maskDatabaseURL(c.RedisURL),
		"volume_api_base_url":     c.VolumeAPIBaseURL,
		"volume_api_key":          maskSecret(c.VolumeAPIKey),
		"volume_api_customer_id":  maskSecret(c.VolumeAPICustomerID),
		"rank_api_base_url":       c.RankAPIBaseURL,
		"volume_cache_ttl_days":   fmt.Sprintf("%d", c.VolumeCacheTTLDays),
		"algo_config_ttl_seconds": fmt.Sprintf("%d", c.AlgoConfigTTLSeconds),
		"tracing_enabled":         fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":        c.TracingExporter,
		"tracing_endpoint":        c.TracingEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
