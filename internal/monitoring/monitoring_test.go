package monitoring_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-gateway/internal/monitoring"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestRequestIDContext(t *testing.T) {
	ctx := monitoring.WithRequestIDContext(context.Background(), "abc")
	assert.Equal(t, "abc", monitoring.RequestIDFromContext(ctx))
	assert.Empty(t, monitoring.RequestIDFromContext(context.Background()))
}

func TestAlertManager_HighLatencyThreshold(t *testing.T) {
	var buf bytes.Buffer
	am := monitoring.NewAlertManager(monitoring.NewWithWriter(&buf, zerolog.DebugLevel), monitoring.AlertConfig{HighLatencyThreshold: time.Second})

	am.FlagHighLatency("r1", 500*time.Millisecond, "amazon-titan", "/chat")
	assert.Empty(t, buf.String())

	am.FlagHighLatency("r2", 2*time.Second, "amazon-titan", "/chat")
	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "high_latency", entries[0]["message"])
	assert.Equal(t, "r2", entries[0]["request_id"])
}

func TestAlertManager_MalformedResponseTruncatesBody(t *testing.T) {
	var buf bytes.Buffer
	am := monitoring.NewAlertManager(monitoring.NewWithWriter(&buf, zerolog.DebugLevel), monitoring.AlertConfig{})

	raw := []byte(strings.Repeat("a", 20*1024))
	am.FlagMalformedResponse("r1", "anthropic-completion", raw, errors.New("missing completion field"))

	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	body := entries[0]["raw_body"].(string)
	assert.True(t, strings.HasSuffix(body, "(truncated)"))
	assert.Less(t, len(body), 11*1024)
}

func TestAlertManager_InvalidRequestIsDebug(t *testing.T) {
	var buf bytes.Buffer
	am := monitoring.NewAlertManager(monitoring.NewWithWriter(&buf, zerolog.InfoLevel), monitoring.AlertConfig{})

	am.FlagInvalidRequest("r1", "missing prompt")
	assert.Empty(t, buf.String())
}

func TestRequestLogger_LogBackend(t *testing.T) {
	var buf bytes.Buffer
	rl := monitoring.NewRequestLogger(monitoring.NewWithWriter(&buf, zerolog.DebugLevel))

	rl.LogBackend(&monitoring.BackendInfo{
		RequestID:        "r1",
		Provider:         "anthropic-messages",
		BackendRequestID: "b1",
		StatusCode:       200,
		Latency:          time.Second,
	})

	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "backend", entries[0]["message"])
	assert.Equal(t, "b1", entries[0]["backend_request_id"])
}

func TestMetrics(t *testing.T) {
	m, err := monitoring.NewMetrics(nil)
	require.NoError(t, err)

	m.RecordRequest(200)
	m.RecordRequest(200)
	m.RecordRequest(400)
	m.RecordBackendCall("amazon-titan", "success", 300*time.Millisecond)

	series, err := testutil.GatherAndCount(m.Registry(), "chat_gateway_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)

	series, err = testutil.GatherAndCount(m.Registry(), "chat_gateway_backend_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `chat_gateway_requests_total{status="200"} 2`)
	assert.Contains(t, rec.Body.String(), `chat_gateway_backend_calls_total{outcome="success",provider="amazon-titan"} 1`)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	_, err := monitoring.NewMetrics(nil)
	require.NoError(t, err)
	_, err = monitoring.NewMetrics(nil)
	require.NoError(t, err)
}
