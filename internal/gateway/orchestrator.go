// Orchestrator runs one chat invocation end to end.
//
// DESIGN: One Handle call per inbound request, no state shared between calls:
//  1. Resolve the adapter for the configured provider (UnknownProvider wins over input errors)
//  2. Validate the body into a CanonicalRequest (InvalidInput, no backend I/O)
//  3. Build the family payload
//  4. Invoke the backend once under a timeout
//  5. Parse the raw response (MalformedBackendResponse / UnsupportedContent)
//
// Every path returns an Outcome carrying exactly one of Response or Err.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/compresr/chat-gateway/external"
	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/monitoring"
)

// Client-facing validation messages.
const (
	MsgInvalidJSON    = "Invalid JSON in request body"
	MsgMissingPrompt  = "Missing 'prompt' in request body"
	MsgBackendTimeout = "backend call timed out"
)

// State is the position of an invocation in its lifecycle.
type State string

const (
	StateReceived          State = "received"
	StateValidated         State = "validated"
	StatePayloadBuilt      State = "payload_built"
	StateBackendCalled     State = "backend_called"
	StateSuccess           State = "success"
	StateBackendError      State = "backend_error"
	StateMalformedResponse State = "malformed_response"
	StateRejected          State = "rejected"
)

// Outcome is the result of one invocation.
type Outcome struct {
	State            State
	Response         *adapters.CanonicalResponse
	Err              *adapters.Error
	Provider         string // Adapter name, or the configured id when resolution failed
	ModelID          string
	RequestID        string // Gateway request id
	BackendRequestID string // Backend request id, when the backend answered
	Latency          time.Duration
}

// OK reports whether the invocation produced a completion.
func (out *Outcome) OK() bool {
	return out.Err == nil && out.Response != nil
}

// Orchestrator validates requests, calls the backend and classifies failures.
// Safe for concurrent use; all fields are read-only after construction.
type Orchestrator struct {
	cfg           adapters.ProviderConfig
	registry      *adapters.Registry
	invoker       external.Invoker
	timeout       time.Duration
	logger        *monitoring.Logger
	requestLogger *monitoring.RequestLogger
	alerts        *monitoring.AlertManager
	metrics       *monitoring.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for lifecycle and alert logging.
func WithLogger(l *monitoring.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithAlerts sets the alert manager.
func WithAlerts(am *monitoring.AlertManager) Option {
	return func(o *Orchestrator) {
		o.alerts = am
	}
}

// WithMetrics enables Prometheus recording of backend calls.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator for one configured provider.
// Family defaults are applied to cfg here.
func NewOrchestrator(cfg adapters.ProviderConfig, reg *adapters.Registry, inv external.Invoker, opts ...Option) *Orchestrator {
	if reg == nil {
		reg = adapters.NewRegistry()
	}
	o := &Orchestrator{
		cfg:      reg.ApplyDefaults(cfg),
		registry: reg,
		invoker:  inv,
		timeout:  external.DefaultTimeout,
		logger:   monitoring.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.alerts == nil {
		o.alerts = monitoring.NewAlertManager(o.logger, monitoring.AlertConfig{})
	}
	o.requestLogger = monitoring.NewRequestLogger(o.logger)
	return o
}

// Config returns the effective provider configuration.
func (o *Orchestrator) Config() adapters.ProviderConfig {
	return o.cfg
}

// Handle runs one invocation for the raw inbound body.
func (o *Orchestrator) Handle(ctx context.Context, raw []byte) *Outcome {
	start := time.Now()
	out := &Outcome{
		State:     StateReceived,
		Provider:  o.cfg.ProviderID,
		ModelID:   o.cfg.ModelID,
		RequestID: monitoring.RequestIDFromContext(ctx),
	}
	defer func() { out.Latency = time.Since(start) }()

	adapter, err := o.registry.Resolve(o.cfg.ProviderID)
	if err != nil {
		o.logger.Error().Str("request_id", out.RequestID).Err(err).Msg("provider resolution failed")
		return out.fail(StateRejected, err)
	}
	out.Provider = adapter.Name()

	req, verr := parseRequest(raw)
	if verr != nil {
		o.alerts.FlagInvalidRequest(out.RequestID, verr.Message)
		return out.fail(StateRejected, verr)
	}
	out.State = StateValidated

	payload, err := adapter.BuildPayload(req, o.cfg)
	if err != nil {
		o.logger.Error().
			Str("request_id", out.RequestID).
			Str("provider", out.Provider).
			Str("kind", string(adapters.KindOf(err))).
			Err(err).
			Msg("payload build failed")
		return out.fail(StateRejected, err)
	}
	out.State = StatePayloadBuilt

	o.requestLogger.LogOutgoing(&monitoring.OutgoingRequestInfo{
		RequestID: out.RequestID,
		Provider:  out.Provider,
		Model:     payload.ModelID,
		BodySize:  len(payload.Body),
	})

	resp, latency, err := o.invoke(ctx, payload)
	out.State = StateBackendCalled
	if err != nil {
		return out.fail(StateBackendError, o.backendFailure(out, err, latency))
	}
	out.BackendRequestID = resp.RequestID

	o.requestLogger.LogBackend(&monitoring.BackendInfo{
		RequestID:        out.RequestID,
		Provider:         out.Provider,
		BackendRequestID: resp.RequestID,
		StatusCode:       resp.StatusCode,
		Latency:          latency,
		BodySize:         len(resp.Body),
	})
	o.alerts.FlagHighLatency(out.RequestID, latency, out.Provider, "")

	parsed, err := adapter.ParseResponse(resp.Body)
	if err != nil {
		cerr := toCanonical(err, adapters.KindMalformedBackendResponse)
		cerr.BackendRequestID = resp.RequestID
		o.alerts.FlagMalformedResponse(out.RequestID, out.Provider, resp.Body, err)
		o.recordBackend(out.Provider, outcomeLabel(cerr.Kind), latency)
		return out.fail(StateMalformedResponse, cerr)
	}

	o.recordBackend(out.Provider, "success", latency)
	out.State = StateSuccess
	out.Response = parsed
	return out
}

// invoke performs the single backend call under the configured timeout.
func (o *Orchestrator) invoke(ctx context.Context, payload *adapters.BackendPayload) (*external.InvokeOutput, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.invoker.Invoke(callCtx, &external.InvokeInput{
		ModelID:     payload.ModelID,
		Body:        payload.Body,
		ContentType: payload.ContentType,
		Accept:      payload.Accept,
	})
	latency := time.Since(start)

	// An invoker that ignores ctx must still not outlive the deadline.
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err == nil && resp == nil {
		err = errors.New("backend returned no response")
	}
	return resp, latency, err
}

// backendFailure classifies a failed backend call and emits its alert and metric.
func (o *Orchestrator) backendFailure(out *Outcome, err error, latency time.Duration) *adapters.Error {
	cerr := &adapters.Error{
		Kind:    adapters.KindBackendInvocationFailed,
		Message: err.Error(),
		Err:     err,
	}

	timedOut := errors.Is(err, context.DeadlineExceeded)
	var ie *external.InvokeError
	if errors.As(err, &ie) {
		cerr.BackendStatus = ie.StatusCode
		cerr.BackendRequestID = ie.RequestID
		cerr.Message = ie.Message
		cerr.Err = nil
		timedOut = ie.Timeout()
	}

	if timedOut {
		cerr.Message = MsgBackendTimeout
		cerr.Err = nil
		o.alerts.FlagUpstreamTimeout(out.RequestID, out.Provider, out.ModelID, o.timeout)
		o.recordBackend(out.Provider, "timeout", latency)
	} else {
		o.alerts.FlagProviderError(out.RequestID, out.Provider, cerr.BackendStatus, cerr.BackendRequestID, cerr.Message)
		o.recordBackend(out.Provider, "backend_error", latency)
	}
	out.BackendRequestID = cerr.BackendRequestID
	return cerr
}

func (o *Orchestrator) recordBackend(provider, outcome string, latency time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordBackendCall(provider, outcome, latency)
	}
}

// fail sets the terminal error state.
func (out *Outcome) fail(state State, err error) *Outcome {
	out.State = state
	out.Response = nil
	out.Err = toCanonical(err, adapters.KindBackendInvocationFailed)
	return out
}

// parseRequest validates the inbound body. The body must be a JSON object
// whose "prompt" is a string with non-whitespace content. When "prompt"
// appears more than once the last occurrence wins.
func parseRequest(raw []byte) (adapters.CanonicalRequest, *adapters.Error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return adapters.CanonicalRequest{}, adapters.NewError(adapters.KindInvalidInput, MsgInvalidJSON)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return adapters.CanonicalRequest{}, adapters.NewError(adapters.KindInvalidInput, MsgInvalidJSON)
	}

	var prompt gjson.Result
	root.ForEach(func(key, value gjson.Result) bool {
		if key.Str == "prompt" {
			prompt = value
		}
		return true
	})
	if prompt.Type != gjson.String || strings.TrimSpace(prompt.Str) == "" {
		return adapters.CanonicalRequest{}, adapters.NewError(adapters.KindInvalidInput, MsgMissingPrompt)
	}
	return adapters.CanonicalRequest{Prompt: prompt.Str}, nil
}

// toCanonical converts err to *adapters.Error, using fallback for foreign errors.
func toCanonical(err error, fallback adapters.ErrorKind) *adapters.Error {
	if e, ok := adapters.AsError(err); ok {
		return e
	}
	return &adapters.Error{Kind: fallback, Message: err.Error(), Err: err}
}

func outcomeLabel(kind adapters.ErrorKind) string {
	if kind == adapters.KindUnsupportedContent {
		return "unsupported_content"
	}
	return "malformed"
}
