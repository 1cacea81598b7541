package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyAccount   = "account"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyMessageID = "message_id"
	KeyPartID    = "part_id"
	KeyFolderID  = "folder_id"
	KeyBytes     = "bytes"
	KeyBackend   = "backend"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Account returns a slog attribute for the account. Accounts that look like
// email addresses are hashed so logs never carry the address itself.
func Account(account string) slog.Attr {
	if isEmail(account) {
		return slog.String(KeyAccount, AnonymizeEmail(account))
	}
	return slog.String(KeyAccount, account)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// MessageID returns a slog attribute for a message id.
func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

// PartID returns a slog attribute for an attachment part id.
func PartID(id string) slog.Attr {
	return slog.String(KeyPartID, id)
}

// FolderID returns a slog attribute for a storage folder id.
func FolderID(id string) slog.Attr {
	return slog.String(KeyFolderID, id)
}

// Bytes returns a slog attribute for a payload size.
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Backend returns a slog attribute naming a mail or storage backend.
func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
// This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

func isEmail(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '@' {
			return i > 0 && i < len(s)-1
		}
	}
	return false
}
