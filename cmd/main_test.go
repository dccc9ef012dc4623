package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-gateway/external"
	"github.com/compresr/chat-gateway/internal/config"
)

func TestEmbeddedConfigLoads(t *testing.T) {
	for _, k := range []string{"PORT", "PROVIDER_FAMILY", "MODEL_ID", "AWS_REGION", "AWS_DEFAULT_REGION", "LOG_LEVEL", "MAX_TOKENS", "BACKEND_ENDPOINT", "BACKEND_TIMEOUT"} {
		t.Setenv(k, "")
	}

	data, err := getEmbeddedConfig("config")
	require.NoError(t, err)

	cfg, err := config.LoadFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "anthropic.claude-instant-v1", cfg.Provider.ModelID)
	assert.Empty(t, cfg.Provider.Family)
	assert.Equal(t, config.TransportSDK, cfg.Backend.Transport)

	names, err := listEmbeddedConfigs()
	require.NoError(t, err)
	assert.Contains(t, names, "config")
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path, err := resolveConfigPath("")
	require.NoError(t, err)
	assert.Empty(t, path, "no file means defaults plus env")

	_, err = resolveConfigPath("/does/not/exist.yaml")
	require.Error(t, err)

	require.NoError(t, os.MkdirAll("configs", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("configs", "config.yaml"), []byte("{}"), 0600))
	path, err = resolveConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, "configs/config.yaml", path)

	t.Setenv("CONFIG_PATH", "/etc/chat-gateway.yaml")
	path, err = resolveConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, "/etc/chat-gateway.yaml", path)
}

func TestBuildInvoker_HTTP(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		w.Header().Set("X-Amzn-Requestid", "req-1")
		_, _ = w.Write([]byte(`{"outputText":"Hi"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Backend.Transport = config.TransportHTTP
	cfg.Backend.Endpoint = srv.URL
	cfg.Backend.Sign = true
	cfg.Backend.AccessKeyID = "AKIDEXAMPLE"
	cfg.Backend.SecretAccessKey = "secret"

	inv, err := buildInvoker(context.Background(), &cfg)
	require.NoError(t, err)

	out, err := inv.Invoke(context.Background(), &external.InvokeInput{
		ModelID:     "amazon.titan-text-lite-v1",
		Body:        []byte(`{"inputText":"Hello"}`),
		ContentType: "application/json",
		Accept:      "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, "/model/amazon.titan-text-lite-v1/invoke", gotPath)
	assert.Contains(t, gotAuth, "AWS4-HMAC-SHA256")
	assert.Contains(t, gotAuth, "AKIDEXAMPLE")
}

func TestBuildInvoker_UnknownTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Transport = "carrier-pigeon"

	_, err := buildInvoker(context.Background(), &cfg)
	require.Error(t, err)
}

func TestSetupLogging_DebugOverride(t *testing.T) {
	logger := setupLogging(config.Default().Monitoring.LoggerConfig(), true)
	require.NotNil(t, logger)
	assert.Equal(t, "debug", logger.Zerolog().GetLevel().String())
}
