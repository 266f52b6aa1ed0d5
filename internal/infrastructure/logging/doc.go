// Package logging provides structured logging for Gray Logic Access.
//
// It wraps log/slog with JSON output for production, text output for
// development, level filtering and default service/version attributes.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//
// Never log passwords, password hashes or tokens.
package logging
