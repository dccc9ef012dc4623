// Monitoring configuration - logging and metrics settings.
//
// DESIGN: Logging (zerolog) is for operators; metrics (Prometheus) are for
// dashboards and alerting on backend latency and error rates.
package config

import (
	"time"

	"github.com/compresr/chat-gateway/internal/monitoring"
)

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Alerts
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"` // Serve /metrics
}

// LoggerConfig returns the logger settings.
func (m MonitoringConfig) LoggerConfig() monitoring.LoggerConfig {
	return monitoring.LoggerConfig{
		Level:  m.LogLevel,
		Format: m.LogFormat,
		Output: m.LogOutput,
	}
}

// AlertConfig returns the alert thresholds.
func (m MonitoringConfig) AlertConfig() monitoring.AlertConfig {
	return monitoring.AlertConfig{HighLatencyThreshold: m.HighLatencyThreshold}
}
