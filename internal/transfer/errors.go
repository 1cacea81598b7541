package transfer

import "fmt"

// UploadError reports a write that the storage backend rejected. The
// backend's own message is kept intact.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload file %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request that lacks a required field, or,
// when Reason is set, one that could not be read.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Reason == "":
		return "missing required field: " + e.Field
	case e.Field == "":
		return "invalid request: " + e.Reason
	default:
		return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
	}
}
