// Formatter renders orchestrator outcomes into protocol-level responses.
//
// DESIGN: Rendering is pure and shared by the HTTP server and the Lambda
// handler, so both surfaces produce byte-identical responses:
//   - Success         → 200 {"response": text}
//   - InvalidInput    → 400 {"message": ...}
//   - everything else → backend status or 500 with message/error/details
//
// Every response carries Content-Type and Access-Control-Allow-Origin.
// Bodies never contain stack traces.
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/compresr/chat-gateway/internal/adapters"
)

// BackendName appears in server error messages.
const BackendName = "Bedrock"

// Response headers.
const (
	HeaderContentType  = "Content-Type"
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderRequestID    = "X-Request-ID"

	contentTypeJSON = "application/json"
	allowedHeaders  = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token"
	allowedMethods  = "POST,OPTIONS"
)

// Rendered is a fully formed response.
type Rendered struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Write sends the response to w.
func (r Rendered) Write(w http.ResponseWriter) {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write(r.Body)
}

type successBody struct {
	Response string `json:"response"`
}

type messageBody struct {
	Message string `json:"message"`
}

type errorDetails struct {
	RequestID      *string `json:"requestId"`
	HTTPStatusCode *int    `json:"httpStatusCode"`
}

type errorBody struct {
	Message     string       `json:"message"`
	Error       string       `json:"error"`
	Details     errorDetails `json:"details"`
	ModelIDUsed string       `json:"modelIdUsed,omitempty"`
}

// Render converts an outcome into a response.
func Render(o *Outcome) Rendered {
	if o == nil {
		return renderJSON(http.StatusInternalServerError, baseHeaders(), messageBody{Message: "internal error"})
	}

	if o.Err == nil {
		text := ""
		if o.Response != nil {
			text = o.Response.Text
		}
		return renderJSON(http.StatusOK, corsHeaders(), successBody{Response: text})
	}

	status := StatusFor(o.Err)
	if o.Err.Kind == adapters.KindInvalidInput {
		return renderJSON(status, baseHeaders(), messageBody{Message: o.Err.Message})
	}

	body := errorBody{
		Message:     "Error invoking " + BackendName + " model",
		Error:       o.Err.Detail(),
		ModelIDUsed: o.ModelID,
	}
	if o.Err.BackendRequestID != "" {
		id := o.Err.BackendRequestID
		body.Details.RequestID = &id
	}
	if o.Err.BackendStatus != 0 {
		code := o.Err.BackendStatus
		body.Details.HTTPStatusCode = &code
	}
	return renderJSON(status, baseHeaders(), body)
}

// RenderPreflight answers a CORS preflight request.
func RenderPreflight() Rendered {
	return Rendered{StatusCode: http.StatusOK, Headers: corsHeaders(), Body: []byte("{}")}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err *adapters.Error) int {
	switch err.Kind {
	case adapters.KindInvalidInput:
		return http.StatusBadRequest
	case adapters.KindBackendInvocationFailed:
		if err.BackendStatus >= 400 && err.BackendStatus <= 599 {
			return err.BackendStatus
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func baseHeaders() map[string]string {
	return map[string]string{
		HeaderContentType: contentTypeJSON,
		HeaderAllowOrigin: "*",
	}
}

func corsHeaders() map[string]string {
	h := baseHeaders()
	h[HeaderAllowHeaders] = allowedHeaders
	h[HeaderAllowMethods] = allowedMethods
	return h
}

func renderJSON(status int, headers map[string]string, v any) Rendered {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"message":"internal error"}`)
	}
	return Rendered{StatusCode: status, Headers: headers, Body: body}
}
