package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/monitoring"
)

// LambdaHandler serves API Gateway HTTP API (payload v2) events through the
// same orchestrator and formatter as the HTTP server.
type LambdaHandler struct {
	orchestrator  *Orchestrator
	requestLogger *monitoring.RequestLogger
	alerts        *monitoring.AlertManager
	metrics       *monitoring.Metrics
}

// NewLambdaHandler creates a handler around o. metrics may be nil.
func NewLambdaHandler(o *Orchestrator, logger *monitoring.Logger, metrics *monitoring.Metrics) *LambdaHandler {
	if logger == nil {
		logger = monitoring.Nop()
	}
	return &LambdaHandler{
		orchestrator:  o,
		requestLogger: monitoring.NewRequestLogger(logger),
		alerts:        monitoring.NewAlertManager(logger, monitoring.AlertConfig{}),
		metrics:       metrics,
	}
}

// Handle processes one event. The returned error is always nil: every
// failure is rendered into the response so the invocation never faults.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	start := time.Now()
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = monitoring.WithRequestIDContext(ctx, requestID)

	rendered := h.safeRender(ctx, requestID, req)
	rendered.Headers[HeaderRequestID] = requestID

	h.requestLogger.LogResponse(&monitoring.ResponseInfo{
		RequestID:  requestID,
		StatusCode: rendered.StatusCode,
		Latency:    time.Since(start),
	})
	if h.metrics != nil {
		h.metrics.RecordRequest(rendered.StatusCode)
	}

	return events.APIGatewayV2HTTPResponse{
		StatusCode: rendered.StatusCode,
		Headers:    rendered.Headers,
		Body:       string(rendered.Body),
	}, nil
}

// safeRender turns a panic below the handler into a 500 response so the
// invocation still returns a JSON body.
func (h *LambdaHandler) safeRender(ctx context.Context, requestID string, req events.APIGatewayV2HTTPRequest) (rendered Rendered) {
	defer func() {
		if v := recover(); v != nil {
			h.alerts.FlagPanic(requestID, v, string(debug.Stack()))
			rendered = renderJSON(http.StatusInternalServerError, baseHeaders(), messageBody{Message: "internal error"})
		}
	}()
	return h.render(ctx, req)
}

func (h *LambdaHandler) render(ctx context.Context, req events.APIGatewayV2HTTPRequest) Rendered {
	if strings.EqualFold(req.RequestContext.HTTP.Method, http.MethodOptions) {
		return RenderPreflight()
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return Render(&Outcome{
				State: StateRejected,
				Err:   adapters.NewError(adapters.KindInvalidInput, MsgInvalidJSON),
			})
		}
		body = decoded
	}

	return Render(h.orchestrator.Handle(ctx, body))
}
