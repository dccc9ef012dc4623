// Package gateway serves the chat endpoint.
//
// DESIGN: The gateway is stateless across requests. Process-wide state
// (config, registry, invoker, metrics) is built once in New and shared
// read-only by every request.
//
// FILES:
//   - gateway.go:      Gateway struct, routes, Start/Shutdown
//   - orchestrator.go: Validate → resolve → build → invoke → parse
//   - formatter.go:    Outcome → status, headers, body
//   - middleware.go:   Logging, panic recovery, rate limiting, security headers
//   - lambda.go:       API Gateway HTTP API events through the same orchestrator
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/compresr/chat-gateway/external"
	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/monitoring"
)

// MaxRateLimitBuckets caps the number of tracked client IPs.
const MaxRateLimitBuckets = 10000

// Gateway is the HTTP front of the orchestrator.
type Gateway struct {
	cfg           *config.Config
	orchestrator  *Orchestrator
	server        *http.Server
	logger        *monitoring.Logger
	requestLogger *monitoring.RequestLogger
	alerts        *monitoring.AlertManager
	metrics       *monitoring.Metrics
	rateLimiter   *rateLimiter
}

// New creates a gateway for cfg that calls the backend through inv.
func New(cfg *config.Config, inv external.Invoker, logger *monitoring.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if inv == nil {
		return nil, errors.New("invoker is required")
	}
	if logger == nil {
		logger = monitoring.Nop()
	}

	g := &Gateway{
		cfg:           cfg,
		logger:        logger,
		requestLogger: monitoring.NewRequestLogger(logger),
		alerts:        monitoring.NewAlertManager(logger, cfg.Monitoring.AlertConfig()),
	}

	// Metrics are always collected; MetricsEnabled only controls /metrics.
	metrics, err := monitoring.NewMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	g.metrics = metrics

	registry := adapters.NewRegistry()
	g.orchestrator = NewOrchestrator(cfg.ProviderConfig(), registry, inv,
		WithTimeout(cfg.Backend.Timeout),
		WithLogger(logger),
		WithAlerts(g.alerts),
		WithMetrics(metrics),
	)
	if _, err := registry.Resolve(cfg.Provider.ProviderID()); err != nil {
		// Requests will fail with 500 until the config is fixed.
		families := make([]string, 0, 3)
		for _, f := range registry.Families() {
			families = append(families, f.String())
		}
		logger.Error().Err(err).Strs("families", families).Msg("configured provider does not match any adapter")
	}

	if cfg.Server.RateLimit > 0 {
		g.rateLimiter = newRateLimiter(cfg.Server.RateLimit)
	}

	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return g, nil
}

// Orchestrator returns the gateway's orchestrator.
func (g *Gateway) Orchestrator() *Orchestrator {
	return g.orchestrator
}

// Metrics returns the gateway's metrics.
func (g *Gateway) Metrics() *monitoring.Metrics {
	return g.metrics
}

// Handler returns the routed handler wrapped in middleware.
// Chain (outermost first): logging → panic recovery → rate limit → security.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleNotFound)
	mux.HandleFunc("/chat", g.handleChat)
	mux.HandleFunc("/health", g.handleHealth)
	if g.cfg.Monitoring.MetricsEnabled {
		mux.Handle("/metrics", g.metrics.Handler())
	}

	var h http.Handler = mux
	h = g.security(h)
	if g.rateLimiter != nil {
		h = g.rateLimit(h)
	}
	h = g.panicRecovery(h)
	h = g.loggingMiddleware(h)
	return h
}

// Start listens until Shutdown is called.
func (g *Gateway) Start() error {
	cfg := g.orchestrator.Config()
	log.Info().
		Str("addr", g.server.Addr).
		Str("provider", cfg.ProviderID).
		Str("model", cfg.ModelID).
		Msg("chat gateway listening")

	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.rateLimiter != nil {
		g.rateLimiter.stop()
	}
	return g.server.Shutdown(ctx)
}

// handleChat serves POST /chat and its preflight.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		RenderPreflight().Write(w)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.cfg.Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		g.writeError(w, MsgInvalidJSON, http.StatusBadRequest)
		return
	}

	outcome := g.orchestrator.Handle(r.Context(), body)
	Render(outcome).Write(w)
}

// handleHealth reports liveness and the configured model.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := g.orchestrator.Config()
	renderJSON(http.StatusOK, baseHeaders(), map[string]string{
		"status":   "ok",
		"provider": cfg.ProviderID,
		"model":    cfg.ModelID,
	}).Write(w)
}

// handleNotFound answers unrouted paths with a JSON 404.
func (g *Gateway) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	g.writeError(w, "not found", http.StatusNotFound)
}

// writeError writes a {"message": msg} JSON body.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	renderJSON(status, baseHeaders(), messageBody{Message: msg}).Write(w)
}
