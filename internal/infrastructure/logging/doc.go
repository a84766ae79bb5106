// Package logging provides structured logging for Gray Logic Notify.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: JSON in production, text for development, and the
// default fields service and version on every entry.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("reaper").Info("sweep complete", "deleted", 12)
//
// Never log message payloads: they are opaque producer data and may carry
// device credentials or personal data.
package logging
