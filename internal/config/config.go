// Package config loads and validates the gateway configuration.
//
// DESIGN: Configuration is read once at process start and is read-only
// afterwards. Sources, later ones winning:
//  1. Default() - the values the Lambda deployment runs with
//  2. Optional YAML file with ${VAR:-default} expansion
//  3. Environment overrides (MODEL_ID, MAX_TOKENS, AWS_REGION, ...)
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - provider.go:   Provider and backend sections
//   - monitoring.go: Logging and metrics settings
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the chat gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server settings
	Provider   ProviderSection  `yaml:"provider"`   // Model selection and generation parameters
	Backend    BackendConfig    `yaml:"backend"`    // How the backend is reached
	Monitoring MonitoringConfig `yaml:"monitoring"` // Logging and metrics
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`           // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`   // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"`  // Max time to write response
	MaxBodyBytes int64         `yaml:"max_body_bytes"` // Inbound body limit
	RateLimit    int           `yaml:"rate_limit"`     // Requests per second per IP, 0 disables
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Provider: ProviderSection{
			ModelID:     "anthropic.claude-instant-v1",
			Temperature: 0.7,
			TopP:        0.9,
		},
		Backend: BackendConfig{
			Transport:   TransportSDK,
			Region:      "us-east-1",
			Timeout:     60 * time.Second,
			MaxAttempts: 1,
		},
		Monitoring: MonitoringConfig{
			LogLevel:             "info",
			LogFormat:            "json",
			LogOutput:            "stdout",
			HighLatencyThreshold: 10 * time.Second,
			MetricsEnabled:       true,
		},
	}
}

// envPattern matches ${VAR:-default} or ${VAR}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands environment variables with support for default values.
// Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	})
}

// ExpandEnvWithDefaults is the exported form of the ${VAR:-default} expander.
func ExpandEnvWithDefaults(s string) string {
	return expandEnvWithDefaults(s)
}

// Load reads configuration from a YAML file. An empty path means defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes on top of Default().
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()

	if len(data) > 0 {
		expanded := expandEnvWithDefaults(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies the environment variables the deployment sets.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("MODEL_ID"); v != "" {
		c.Provider.ModelID = v
	}
	if v := os.Getenv("PROVIDER_FAMILY"); v != "" {
		c.Provider.Family = v
	}
	if v := os.Getenv("MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_TOKENS must be an integer, got %q", v)
		}
		c.Provider.MaxTokens = n
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Backend.Region = v
	} else if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		c.Backend.Region = v
	}
	if v := os.Getenv("BACKEND_ENDPOINT"); v != "" {
		c.Backend.Endpoint = v
	}
	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BACKEND_TIMEOUT must be a duration, got %q", v)
		}
		c.Backend.Timeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Monitoring.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT must be an integer, got %q", v)
		}
		c.Server.Port = n
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}

	if err := c.Provider.Validate(); err != nil {
		return err
	}
	return c.Backend.Validate()
}
