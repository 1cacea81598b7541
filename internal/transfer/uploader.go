package transfer

import (
	"context"
	"errors"
)

// Upload is decoded attachment content waiting to be written to storage.
type Upload struct {
	Content  []byte
	Filename string
	MimeType string
	FolderID string
	Rename   string
}

// Uploader writes decoded attachments to a storage handle.
type Uploader struct {
	defaultFolder string
}

// NewUploader creates an Uploader. defaultFolder is used for uploads that
// name no folder; when it is empty those go to the storage root.
func NewUploader(defaultFolder string) *Uploader {
	return &Uploader{defaultFolder: defaultFolder}
}

// Upload creates a single file in storage. Rename changes the stored name
// only; the content is written as given.
func (u *Uploader) Upload(ctx context.Context, storage StorageHandle, up Upload) (*StoredFile, error) {
	file := File{
		Name:     u.filename(up),
		MimeType: up.MimeType,
		FolderID: up.FolderID,
		Content:  up.Content,
	}
	if file.MimeType == "" {
		file.MimeType = DefaultMimeType
	}
	if file.FolderID == "" {
		file.FolderID = u.defaultFolder
	}

	stored, err := storage.CreateFile(ctx, file)
	if err != nil {
		return nil, &UploadError{Filename: file.Name, Err: err}
	}
	if stored == nil {
		return nil, &UploadError{Filename: file.Name, Err: errors.New("storage returned no file")}
	}
	if stored.Name == "" {
		stored.Name = file.Name
	}
	if stored.Size == 0 {
		stored.Size = int64(len(file.Content))
	}
	return stored, nil
}

func (u *Uploader) filename(up Upload) string {
	switch {
	case up.Rename != "":
		return up.Rename
	case up.Filename != "":
		return up.Filename
	default:
		return DefaultFilename
	}
}
