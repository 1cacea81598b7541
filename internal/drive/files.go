package drive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/teemow/attachdrop/internal/instrumentation"
	"github.com/teemow/attachdrop/internal/transfer"
)

const createFields = "id, name, webViewLink, size"

// CreateFile uploads file.Content as a new Drive file. An empty FolderID
// places the file in the root of My Drive.
func (c *Client) CreateFile(ctx context.Context, file transfer.File) (stored *transfer.StoredFile, err error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendDrive, instrumentation.OperationCreateFile,
		instrumentation.NewSpanAttributeBuilder().WithResource("folder", file.FolderID).Build()...)
	start := time.Now()
	defer func() {
		c.observe(ctx, instrumentation.OperationCreateFile, start, err)
		instrumentation.EndSpan(span, err)
	}()

	if file.Name == "" {
		return nil, fmt.Errorf("file name is required")
	}

	meta := &drive.File{
		Name:     file.Name,
		MimeType: file.MimeType,
	}
	if file.FolderID != "" {
		meta.Parents = []string{file.FolderID}
	}

	created, err := c.service.Files.Create(meta).
		Media(bytes.NewReader(file.Content), googleapi.ContentType(file.MimeType)).
		Fields(createFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &transfer.StoredFile{
		ID:          created.Id,
		Name:        created.Name,
		WebViewLink: created.WebViewLink,
		Size:        created.Size,
	}, nil
}

var _ transfer.StorageHandle = (*Client)(nil)
