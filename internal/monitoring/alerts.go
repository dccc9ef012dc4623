// Package monitoring - alerts.go flags anomalies and errors.
//
// DESIGN: AlertManager logs notable events at appropriate levels:
//   - FlagHighLatency:       Warn when a request exceeds threshold
//   - FlagProviderError:     Warn on backend 4xx/5xx responses
//   - FlagUpstreamTimeout:   Error when the backend call hits its deadline
//   - FlagMalformedResponse: Error with the raw body for diagnosing contract drift
//   - FlagInvalidRequest:    Debug only, client errors are not system faults
//   - FlagPanic:             Error on recovered panics
package monitoring

import "time"

// maxLoggedBodyLen caps raw backend bodies written to logs (10KB).
const maxLoggedBodyLen = 10 * 1024

// AlertManager flags anomalies and errors.
type AlertManager struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 10 * time.Second
	}
	return &AlertManager{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when request latency exceeds threshold.
func (am *AlertManager) FlagHighLatency(requestID string, latency time.Duration, provider, path string) {
	if latency < am.highLatencyThreshold {
		return
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Dur("latency", latency).
		Str("provider", provider).
		Str("path", path).
		Msg("high_latency")
}

// FlagProviderError logs a backend-reported error.
func (am *AlertManager) FlagProviderError(requestID, provider string, statusCode int, backendRequestID, errorMsg string) {
	am.logger.Warn().
		Str("request_id", requestID).
		Str("provider", provider).
		Int("status", statusCode).
		Str("backend_request_id", backendRequestID).
		Str("error", errorMsg).
		Msg("provider_error")
}

// FlagUpstreamTimeout logs a backend call that exceeded its deadline.
func (am *AlertManager) FlagUpstreamTimeout(requestID, provider, model string, timeout time.Duration) {
	am.logger.Error().
		Str("request_id", requestID).
		Str("provider", provider).
		Str("model", model).
		Dur("timeout", timeout).
		Msg("upstream_timeout")
}

// FlagMalformedResponse logs a backend body no adapter shape matched.
func (am *AlertManager) FlagMalformedResponse(requestID, provider string, raw []byte, err error) {
	body := string(raw)
	if len(body) > maxLoggedBodyLen {
		body = body[:maxLoggedBodyLen] + "... (truncated)"
	}
	am.logger.Error().
		Str("request_id", requestID).
		Str("provider", provider).
		Str("raw_body", body).
		Err(err).
		Msg("malformed_backend_response")
}

// FlagInvalidRequest logs invalid request.
func (am *AlertManager) FlagInvalidRequest(requestID, reason string) {
	am.logger.Debug().
		Str("request_id", requestID).
		Str("reason", reason).
		Msg("invalid_request")
}

// FlagPanic logs recovered panic.
func (am *AlertManager) FlagPanic(requestID string, panicValue interface{}, stack string) {
	am.logger.Error().
		Str("request_id", requestID).
		Interface("panic", panicValue).
		Str("stack", stack).
		Msg("panic_recovered")
}
