package external

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const bedrockHostPattern = "https://bedrock-runtime.%s.amazonaws.com"

// BedrockEndpoint returns the public bedrock-runtime endpoint for a region.
func BedrockEndpoint(region string) string {
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf(bedrockHostPattern, region)
}

// HTTPInvoker calls the InvokeModel REST route directly.
type HTTPInvoker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPInvoker creates an invoker for endpoint. Signing, if required, is
// the client's transport's job (see SigningTransport).
func NewHTTPInvoker(endpoint string, client *http.Client) *HTTPInvoker {
	if client == nil {
		client = &http.Client{} // timeout via context, not client
	}
	return &HTTPInvoker{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
	}
}

// InvokeURL builds the InvokeModel URL for a model id.
func (h *HTTPInvoker) InvokeURL(modelID string) string {
	return h.endpoint + "/model/" + url.PathEscape(modelID) + "/invoke"
}

// Invoke implements Invoker.
func (h *HTTPInvoker) Invoke(ctx context.Context, in *InvokeInput) (*InvokeOutput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.InvokeURL(in.ModelID), bytes.NewReader(in.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create bedrock request: %w", err)
	}
	req.Header.Set("Content-Type", in.ContentType)
	req.Header.Set("Accept", in.Accept)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &InvokeError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get("X-Amzn-Requestid")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &InvokeError{
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Message:    fmt.Sprintf("failed to read response: %v", err),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &InvokeError{
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Code:       errorType(resp.Header.Get("X-Amzn-Errortype")),
			Message:    errorMessage(body),
		}
	}

	return &InvokeOutput{Body: body, StatusCode: resp.StatusCode, RequestID: requestID}, nil
}

// errorType strips the documentation suffix from "ThrottlingException:http://...".
func errorType(header string) string {
	if idx := strings.Index(header, ":"); idx != -1 {
		return header[:idx]
	}
	return header
}

// errorMessage pulls the service message from a JSON error body.
func errorMessage(body []byte) string {
	for _, path := range []string{"message", "Message"} {
		if msg := gjson.GetBytes(body, path); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
	}
	if len(body) == 0 {
		return "empty error body"
	}
	return truncate(string(body), maxErrorBodyLen)
}
