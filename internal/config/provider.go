package config

import (
	"fmt"
	"time"

	"github.com/compresr/chat-gateway/external"
	"github.com/compresr/chat-gateway/internal/adapters"
)

// Backend transports.
const (
	TransportSDK  = "sdk"  // aws-sdk-go-v2 bedrockruntime client
	TransportHTTP = "http" // raw REST call, optionally SigV4-signed
)

// ProviderSection selects the model and its generation parameters.
type ProviderSection struct {
	Family          string         `yaml:"family"`           // Explicit family tag; empty resolves from model_id
	ModelID         string         `yaml:"model_id"`         // Bedrock model id
	MaxTokens       int            `yaml:"max_tokens"`       // 0 uses the family default
	ProtocolVersion string         `yaml:"protocol_version"` // e.g. bedrock-2023-05-31
	Temperature     float64        `yaml:"temperature"`      // [0, 1]
	TopP            float64        `yaml:"top_p"`            // [0, 1]
	StopSequences   []string       `yaml:"stop_sequences"`   // Optional
	ExtraParams     map[string]any `yaml:"extra_params"`     // Merged into every payload
}

// ProviderID returns the identifier used for adapter resolution.
func (p ProviderSection) ProviderID() string {
	if p.Family != "" {
		return p.Family
	}
	return p.ModelID
}

// Validate checks the provider section.
func (p ProviderSection) Validate() error {
	if p.ModelID == "" {
		return fmt.Errorf("provider.model_id is required")
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("invalid provider.max_tokens: %d (must be > 0, or 0 for the family default)", p.MaxTokens)
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("invalid provider.temperature: %v (must be 0-1)", p.Temperature)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return fmt.Errorf("invalid provider.top_p: %v (must be 0-1)", p.TopP)
	}
	for key := range p.ExtraParams {
		if err := adapters.ValidateExtraParamKey(key); err != nil {
			return fmt.Errorf("invalid provider.extra_params: %w", err)
		}
	}
	return nil
}

// ProviderConfig converts the section into the adapter-level configuration.
// Family defaults are not applied here; see adapters.Registry.ApplyDefaults.
func (c *Config) ProviderConfig() adapters.ProviderConfig {
	p := c.Provider
	return adapters.ProviderConfig{
		ProviderID:      p.ProviderID(),
		ModelID:         p.ModelID,
		MaxOutputTokens: p.MaxTokens,
		ProtocolVersion: p.ProtocolVersion,
		Temperature:     p.Temperature,
		TopP:            p.TopP,
		StopSequences:   p.StopSequences,
		ExtraParams:     p.ExtraParams,
	}
}

// BackendConfig describes how the backend is reached.
type BackendConfig struct {
	Transport string        `yaml:"transport"` // "sdk" or "http"
	Region    string        `yaml:"region"`    // AWS region
	Endpoint  string        `yaml:"endpoint"`  // Optional endpoint override
	Timeout   time.Duration `yaml:"timeout"`   // Upper bound on one backend call
	Sign      bool          `yaml:"sign"`      // SigV4-sign raw HTTP calls

	// Static credentials; empty uses the default AWS credential chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`

	// Retries are off by default (max_attempts: 1).
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
}

// Validate checks the backend section.
func (b BackendConfig) Validate() error {
	switch b.Transport {
	case TransportSDK, TransportHTTP:
	default:
		return fmt.Errorf("invalid backend.transport: %q (must be %q or %q)", b.Transport, TransportSDK, TransportHTTP)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if b.MaxAttempts < 1 {
		return fmt.Errorf("invalid backend.max_attempts: %d (must be >= 1)", b.MaxAttempts)
	}
	if b.AccessKeyID != "" && b.SecretAccessKey == "" {
		return fmt.Errorf("backend.secret_access_key is required with backend.access_key_id")
	}
	return nil
}

// GetEndpoint returns the configured endpoint or the public regional one.
func (b BackendConfig) GetEndpoint() string {
	if b.Endpoint != "" {
		return b.Endpoint
	}
	return external.BedrockEndpoint(b.Region)
}

// RetryPolicy returns the retry policy for external.WithRetry.
func (b BackendConfig) RetryPolicy() external.RetryPolicy {
	return external.RetryPolicy{
		MaxAttempts: b.MaxAttempts,
		BaseDelay:   b.RetryBaseDelay,
		MaxDelay:    b.RetryMaxDelay,
	}
}
