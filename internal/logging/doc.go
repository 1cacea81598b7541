// Package logging provides structured logging utilities for attachdrop.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from configuration (level, text or JSON output)
//   - Consistent attribute naming for messages, parts, folders and accounts
//   - PII sanitization (email anonymization)
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "transfer.bulk")
//	logger.Info("attachment saved",
//	    logging.MessageID(msgID),
//	    logging.PartID(partID),
//	    logging.Status(logging.StatusSuccess))
//
// Account names that are email addresses are hashed by Account, so the
// same call is safe for configured account aliases and OAuth identities.
package logging
