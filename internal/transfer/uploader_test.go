package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploader_Defaults(t *testing.T) {
	tests := []struct {
		name       string
		upload     Upload
		defaultDir string
		wantName   string
		wantMime   string
		wantFolder string
	}{
		{
			name:       "original metadata",
			upload:     Upload{Filename: "a.pdf", MimeType: "application/pdf", FolderID: "f1"},
			wantName:   "a.pdf",
			wantMime:   "application/pdf",
			wantFolder: "f1",
		},
		{
			name:       "rename wins",
			upload:     Upload{Filename: "a.pdf", Rename: "invoice.pdf", MimeType: "application/pdf"},
			wantName:   "invoice.pdf",
			wantMime:   "application/pdf",
			wantFolder: "",
		},
		{
			name:       "fallbacks",
			upload:     Upload{},
			wantName:   DefaultFilename,
			wantMime:   DefaultMimeType,
			wantFolder: "",
		},
		{
			name:       "configured default folder",
			upload:     Upload{Filename: "a.pdf"},
			defaultDir: "inbox-files",
			wantName:   "a.pdf",
			wantMime:   DefaultMimeType,
			wantFolder: "inbox-files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{}
			stored, err := NewUploader(tt.defaultDir).Upload(context.Background(), storage, tt.upload)
			require.NoError(t, err)
			require.Len(t, storage.files, 1)

			got := storage.files[0]
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantMime, got.MimeType)
			assert.Equal(t, tt.wantFolder, got.FolderID)
			assert.Equal(t, tt.wantName, stored.Name)
		})
	}
}

func TestUploader_ErrorKeepsCollaboratorMessage(t *testing.T) {
	cause := errors.New("googleapi: Error 403: The user's Drive storage quota has been exceeded., storageQuotaExceeded")
	storage := &fakeStorage{failOn: "big.iso", err: cause}

	_, err := NewUploader("").Upload(context.Background(), storage, Upload{Filename: "big.iso", Content: []byte("x")})

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), cause.Error())
	assert.Equal(t, "big.iso", uploadErr.Filename)
}

func TestUploader_SizeDefaultsToContentLength(t *testing.T) {
	stored, err := NewUploader("").Upload(context.Background(), &fakeStorage{}, Upload{Filename: "a", Content: []byte("12345")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Size)
}
