package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/gateway"
)

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestRender_Success(t *testing.T) {
	r := gateway.Render(&gateway.Outcome{
		State:    gateway.StateSuccess,
		Response: &adapters.CanonicalResponse{Text: "Hi there!"},
	})

	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.JSONEq(t, `{"response":"Hi there!"}`, string(r.Body))
	assert.Equal(t, "application/json", r.Headers["Content-Type"])
	assert.Equal(t, "*", r.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "POST,OPTIONS", r.Headers["Access-Control-Allow-Methods"])
	assert.Contains(t, r.Headers["Access-Control-Allow-Headers"], "Content-Type")
}

func TestRender_InvalidInput(t *testing.T) {
	r := gateway.Render(&gateway.Outcome{
		State: gateway.StateRejected,
		Err:   adapters.NewError(adapters.KindInvalidInput, gateway.MsgMissingPrompt),
	})

	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
	assert.JSONEq(t, `{"message":"Missing 'prompt' in request body"}`, string(r.Body))
	assert.Equal(t, "application/json", r.Headers["Content-Type"])
	assert.Equal(t, "*", r.Headers["Access-Control-Allow-Origin"])
	assert.NotContains(t, r.Headers, "Access-Control-Allow-Methods")
}

func TestRender_BackendError(t *testing.T) {
	r := gateway.Render(&gateway.Outcome{
		State:   gateway.StateBackendError,
		ModelID: "amazon.titan-text-lite-v1",
		Err: &adapters.Error{
			Kind:             adapters.KindBackendInvocationFailed,
			Message:          "Too many requests",
			BackendStatus:    429,
			BackendRequestID: "req-1",
		},
	})

	assert.Equal(t, 429, r.StatusCode)
	assert.JSONEq(t, `{
		"message": "Error invoking Bedrock model",
		"error": "Too many requests",
		"details": {"requestId": "req-1", "httpStatusCode": 429},
		"modelIdUsed": "amazon.titan-text-lite-v1"
	}`, string(r.Body))
	assert.Equal(t, "*", r.Headers["Access-Control-Allow-Origin"])
}

func TestRender_DetailsNullWithoutBackendAnswer(t *testing.T) {
	r := gateway.Render(&gateway.Outcome{
		State: gateway.StateBackendError,
		Err:   &adapters.Error{Kind: adapters.KindBackendInvocationFailed, Message: gateway.MsgBackendTimeout},
	})

	assert.Equal(t, http.StatusInternalServerError, r.StatusCode)
	body := decode(t, r.Body)
	assert.Equal(t, gateway.MsgBackendTimeout, body["error"])
	details := body["details"].(map[string]interface{})
	assert.Nil(t, details["requestId"])
	assert.Nil(t, details["httpStatusCode"])
	assert.NotContains(t, string(r.Body), "goroutine")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  *adapters.Error
		want int
	}{
		{"invalid input", &adapters.Error{Kind: adapters.KindInvalidInput}, 400},
		{"unknown provider", &adapters.Error{Kind: adapters.KindUnknownProvider}, 500},
		{"malformed", &adapters.Error{Kind: adapters.KindMalformedBackendResponse, BackendStatus: 200}, 500},
		{"unsupported content", &adapters.Error{Kind: adapters.KindUnsupportedContent}, 500},
		{"configuration", &adapters.Error{Kind: adapters.KindConfiguration}, 500},
		{"backend no status", &adapters.Error{Kind: adapters.KindBackendInvocationFailed}, 500},
		{"backend 400", &adapters.Error{Kind: adapters.KindBackendInvocationFailed, BackendStatus: 400}, 400},
		{"backend 403", &adapters.Error{Kind: adapters.KindBackendInvocationFailed, BackendStatus: 403}, 403},
		{"backend 503", &adapters.Error{Kind: adapters.KindBackendInvocationFailed, BackendStatus: 503}, 503},
		{"backend redirect", &adapters.Error{Kind: adapters.KindBackendInvocationFailed, BackendStatus: 302}, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gateway.StatusFor(tt.err))
		})
	}
}

func TestRenderPreflight(t *testing.T) {
	r := gateway.RenderPreflight()

	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "{}", string(r.Body))
	assert.Equal(t, "POST,OPTIONS", r.Headers["Access-Control-Allow-Methods"])
	assert.Equal(t, "*", r.Headers["Access-Control-Allow-Origin"])
}

func TestRendered_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	gateway.RenderPreflight().Write(rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{}", rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
