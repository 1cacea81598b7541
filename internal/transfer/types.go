package transfer

import (
	"context"
	"strings"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Default file metadata used when a message does not provide it.
const (
	DefaultFilename = "unknown_file"
	DefaultMimeType = "application/octet-stream"
)

// Request identifies one attachment to transfer.
type Request struct {
	MessageID string `json:"messageId"`
	PartID    string `json:"partId"`
	FolderID  string `json:"folderId,omitempty"`
	Rename    string `json:"rename,omitempty"`

	// Invalid is set by decoders that could not read the request. The
	// transfer then fails with it instead of contacting any backend.
	Invalid *ValidationError `json:"-"`
}

// Validate reports Invalid if set, then checks the required fields in
// order: messageId, then partId.
func (r Request) Validate() error {
	if r.Invalid != nil {
		return r.Invalid
	}
	if strings.TrimSpace(r.MessageID) == "" {
		return &ValidationError{Field: "messageId"}
	}
	if strings.TrimSpace(r.PartID) == "" {
		return &ValidationError{Field: "partId"}
	}
	return nil
}

// withDefaults fills folder and rename from batch defaults when the request
// leaves them empty.
func (r Request) withDefaults(d Defaults) Request {
	if r.FolderID == "" {
		r.FolderID = d.FolderID
	}
	if r.Rename == "" {
		r.Rename = d.Rename
	}
	return r
}

// Defaults are batch-level values applied to requests that omit them.
type Defaults struct {
	FolderID string `json:"folderId,omitempty"`
	Rename   string `json:"rename,omitempty"`
}

// Result is the outcome of one transfer.
type Result struct {
	Status       string `json:"status"`
	MessageID    string `json:"messageId,omitempty"`
	PartID       string `json:"partId,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Size         int64  `json:"size,omitempty"`
	FileID       string `json:"fileId,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func errorResult(req Request, err error) Result {
	return Result{
		Status:       StatusError,
		MessageID:    req.MessageID,
		PartID:       req.PartID,
		ErrorMessage: err.Error(),
	}
}

// File is the content and metadata of a file to create in storage.
// An empty FolderID selects the backend's root.
type File struct {
	Name     string
	MimeType string
	FolderID string
	Content  []byte
}

// StoredFile describes a file created in storage.
type StoredFile struct {
	ID          string
	Name        string
	WebViewLink string
	Size        int64
}

// StorageHandle is an authenticated view of one account's storage.
type StorageHandle interface {
	CreateFile(ctx context.Context, file File) (*StoredFile, error)
}
