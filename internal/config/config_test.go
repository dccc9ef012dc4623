package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-gateway/internal/config"
)

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MODEL_ID", "PROVIDER_FAMILY", "MAX_TOKENS", "AWS_REGION", "AWS_DEFAULT_REGION",
		"BACKEND_ENDPOINT", "BACKEND_TIMEOUT", "LOG_LEVEL", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "anthropic.claude-instant-v1", cfg.Provider.ModelID)
	assert.Equal(t, 0.7, cfg.Provider.Temperature)
	assert.Equal(t, 0.9, cfg.Provider.TopP)
	assert.Equal(t, config.TransportSDK, cfg.Backend.Transport)
	assert.Equal(t, 60*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 1, cfg.Backend.MaxAttempts)
	assert.Equal(t, "https://bedrock-runtime.us-east-1.amazonaws.com", cfg.Backend.GetEndpoint())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_ID", "amazon.titan-text-lite-v1")
	t.Setenv("MAX_TOKENS", "512")
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("BACKEND_TIMEOUT", "30s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	pc := cfg.ProviderConfig()
	assert.Equal(t, "amazon.titan-text-lite-v1", pc.ProviderID)
	assert.Equal(t, "amazon.titan-text-lite-v1", pc.ModelID)
	assert.Equal(t, 512, pc.MaxOutputTokens)
	assert.Equal(t, "us-west-2", cfg.Backend.Region)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
}

func TestLoad_DefaultRegionFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_DEFAULT_REGION", "eu-central-1")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Backend.Region)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_TOKENS", "lots")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_TOKENS")
}

func TestLoadFromBytes_YAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_MODEL", "anthropic.claude-3-haiku-20240307-v1:0")

	data := []byte(`
server:
  port: 9090
provider:
  model_id: ${TEST_MODEL}
  family: ${TEST_FAMILY:-anthropic-messages}
  max_tokens: 256
  temperature: 0.2
  stop_sequences: ["END"]
  extra_params:
    top_k: 50
backend:
  transport: http
  endpoint: http://localhost:4566
  sign: true
  timeout: 15s
  max_attempts: 3
  retry_base_delay: 100ms
monitoring:
  log_level: debug
`)

	cfg, err := config.LoadFromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	// unspecified fields keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 0.9, cfg.Provider.TopP)

	pc := cfg.ProviderConfig()
	assert.Equal(t, "anthropic-messages", pc.ProviderID)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", pc.ModelID)
	assert.Equal(t, 256, pc.MaxOutputTokens)
	assert.Equal(t, 0.2, pc.Temperature)
	assert.Equal(t, []string{"END"}, pc.StopSequences)
	assert.Equal(t, 50, pc.ExtraParams["top_k"])

	assert.Equal(t, config.TransportHTTP, cfg.Backend.Transport)
	assert.True(t, cfg.Backend.Sign)
	assert.Equal(t, "http://localhost:4566", cfg.Backend.GetEndpoint())
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)

	policy := cfg.Backend.RetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, policy.BaseDelay)

	assert.Equal(t, "debug", cfg.Monitoring.LoggerConfig().Level)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  model_id: amazon.titan-text-express-v1\n"), 0600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "amazon.titan-text-express-v1", cfg.Provider.ModelID)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "server: [", "failed to parse"},
		{"port out of range", "server:\n  port: 70000", "server.port"},
		{"missing model", "provider:\n  model_id: \"\"", "provider.model_id"},
		{"negative tokens", "provider:\n  max_tokens: -1", "provider.max_tokens"},
		{"temperature too high", "provider:\n  temperature: 1.5", "provider.temperature"},
		{"top_p negative", "provider:\n  top_p: -0.1", "provider.top_p"},
		{"unknown transport", "backend:\n  transport: grpc", "backend.transport"},
		{"zero timeout", "backend:\n  timeout: 0s", "backend.timeout"},
		{"zero attempts", "backend:\n  max_attempts: 0", "backend.max_attempts"},
		{"key without secret", "backend:\n  access_key_id: AKID", "backend.secret_access_key"},
		{"negative rate limit", "server:\n  rate_limit: -5", "server.rate_limit"},
		{"dotted extra param", "provider:\n  extra_params:\n    \"a.b\": 1", "provider.extra_params"},
		{"empty extra param", "provider:\n  extra_params:\n    \"\": 1", "provider.extra_params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFromBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("SET_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	assert.Equal(t, "value", config.ExpandEnvWithDefaults("${SET_VAR}"))
	assert.Equal(t, "value", config.ExpandEnvWithDefaults("${SET_VAR:-other}"))
	assert.Equal(t, "fallback", config.ExpandEnvWithDefaults("${EMPTY_VAR:-fallback}"))
	assert.Equal(t, "", config.ExpandEnvWithDefaults("${EMPTY_VAR}"))
	assert.Equal(t, "a-value-b", config.ExpandEnvWithDefaults("a-${SET_VAR}-b"))
}
