package attachment

import (
	"fmt"
	"strings"
)

// StructureError reports a malformed or too deeply nested part tree.
type StructureError struct {
	PartID string
	Reason string
}

func (e *StructureError) Error() string {
	if e.PartID == "" {
		return fmt.Sprintf("invalid message structure: %s", e.Reason)
	}
	return fmt.Sprintf("invalid message structure at part %q: %s", e.PartID, e.Reason)
}

// NotFoundError reports a part id that is absent from the current snapshot
// of a message. AvailablePartIDs lists only the part ids that carry an
// attachment, in tree order. Container and body-text parts are valid ids
// but are left out because they cannot be transferred.
type NotFoundError struct {
	MessageID        string
	PartID           string
	AvailablePartIDs []string
}

func (e *NotFoundError) Error() string {
	available := "none"
	if len(e.AvailablePartIDs) > 0 {
		available = strings.Join(e.AvailablePartIDs, ", ")
	}
	return fmt.Sprintf("attachment part %q not found in message %s (available part ids: %s)",
		e.PartID, e.MessageID, available)
}

// DecodeError reports attachment data that is not valid URL-safe base64.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode attachment data at byte %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
