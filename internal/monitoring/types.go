// Package monitoring - types.go defines shared configuration types.
//
// TYPES:
//   - LoggerConfig: level, format, output of the zerolog logger
//   - AlertConfig:  thresholds for AlertManager
package monitoring

import "time"

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
