package transfer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/attachdrop/internal/attachment"
)

func newTestOrchestrator(metrics MetricsRecorder) *Orchestrator {
	return NewOrchestrator(attachment.NewResolver(0), NewUploader(""), nil, metrics)
}

func TestOrchestrator_BulkMissingPartID(t *testing.T) {
	mail := newFakeMail()
	storage := &fakeStorage{}

	results := newTestOrchestrator(nil).Run(context.Background(), mail, storage, []Request{
		{MessageID: "msg-1", PartID: "0.1"},
		{MessageID: "msg-1"},
		{MessageID: "msg-1", PartID: "0.2"},
	}, Defaults{})

	require.Len(t, results, 3)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, Result{Status: StatusError, MessageID: "msg-1", ErrorMessage: "missing required field: partId"}, results[1])
	assert.Equal(t, StatusSuccess, results[2].Status)

	assert.NotEmpty(t, results[0].FileID)
	assert.NotEmpty(t, results[0].WebViewLink)
	assert.Len(t, storage.files, 2)
	assert.Equal(t, 2, mail.snapshots, "the invalid item must not touch the mail handle")
}

func TestOrchestrator_ValidationOrder(t *testing.T) {
	results := newTestOrchestrator(nil).Run(context.Background(), newFakeMail(), &fakeStorage{}, []Request{
		{},
		{PartID: "0.1"},
	}, Defaults{})

	require.Len(t, results, 2)
	assert.Equal(t, "missing required field: messageId", results[0].ErrorMessage)
	assert.Equal(t, "missing required field: messageId", results[1].ErrorMessage)
}

func TestOrchestrator_ErrorsAreIsolated(t *testing.T) {
	mail := newFakeMail()
	mail.corrupt["0.2"] = true
	storage := &fakeStorage{failOn: "report.pdf", err: errors.New("googleapi: Error 404: File not found: folder-x., notFound")}
	metrics := &fakeMetrics{}

	results := newTestOrchestrator(metrics).Run(context.Background(), mail, storage, []Request{
		{MessageID: "msg-1", PartID: "0.1"},
		{MessageID: "msg-1", PartID: "0.2"},
		{MessageID: "msg-1", PartID: "9.9"},
		{MessageID: "missing", PartID: "0.1"},
		{MessageID: "msg-2", PartID: "0.1"},
	}, Defaults{})

	require.Len(t, results, 5)
	assert.Contains(t, results[0].ErrorMessage, "File not found: folder-x.")
	assert.Contains(t, results[1].ErrorMessage, "failed to decode attachment data")
	assert.Contains(t, results[2].ErrorMessage, "available part ids: 0.1, 0.2")
	assert.Contains(t, results[3].ErrorMessage, "Requested entity was not found")
	assert.Equal(t, StatusSuccess, results[4].Status)
	assert.Equal(t, DefaultFilename, results[4].Filename)

	for i := 0; i < 4; i++ {
		assert.Equal(t, StatusError, results[i].Status, "item %d", i)
	}
	assert.Equal(t, []string{StatusError, StatusError, StatusError, StatusError, StatusSuccess}, metrics.statuses)
	assert.Equal(t, int64(len("no metadata")), metrics.bytes)
}

func TestOrchestrator_RenameKeepsBytes(t *testing.T) {
	mail := newFakeMail()
	storage := &fakeStorage{}
	orch := newTestOrchestrator(nil)
	ctx := context.Background()

	plain, err := orch.Transfer(ctx, mail, storage, Request{MessageID: "msg-1", PartID: "0.2"})
	require.NoError(t, err)
	renamed, err := orch.Transfer(ctx, mail, storage, Request{MessageID: "msg-1", PartID: "0.2", Rename: "holiday.jpg"})
	require.NoError(t, err)

	require.Len(t, storage.files, 2)
	assert.Equal(t, "photo.jpg", plain.Filename)
	assert.Equal(t, "holiday.jpg", renamed.Filename)
	assert.Equal(t, "holiday.jpg", storage.files[1].Name)
	assert.Equal(t, "image/jpeg", storage.files[1].MimeType)

	original := mail.messages["msg-1"][1].content
	assert.True(t, bytes.Equal(original, storage.files[0].Content))
	assert.True(t, bytes.Equal(original, storage.files[1].Content))

	redecoded, err := attachment.Decode(attachment.Encode(storage.files[1].Content))
	require.NoError(t, err)
	assert.Equal(t, original, redecoded)
}

func TestOrchestrator_DefaultsAndOverrides(t *testing.T) {
	storage := &fakeStorage{}

	results := newTestOrchestrator(nil).Run(context.Background(), newFakeMail(), storage, []Request{
		{MessageID: "msg-1", PartID: "0.1"},
		{MessageID: "msg-1", PartID: "0.2", FolderID: "own-folder", Rename: "own.jpg"},
	}, Defaults{FolderID: "batch-folder", Rename: "batch.bin"})

	require.Len(t, results, 2)
	require.Len(t, storage.files, 2)
	assert.Equal(t, "batch-folder", storage.files[0].FolderID)
	assert.Equal(t, "batch.bin", storage.files[0].Name)
	assert.Equal(t, "own-folder", storage.files[1].FolderID)
	assert.Equal(t, "own.jpg", storage.files[1].Name)
}

func TestOrchestrator_FreshSnapshotPerItem(t *testing.T) {
	mail := newFakeMail()

	results := newTestOrchestrator(nil).Run(context.Background(), mail, &fakeStorage{}, []Request{
		{MessageID: "msg-1", PartID: "0.1"},
		{MessageID: "msg-1", PartID: "0.1"},
		{MessageID: "msg-1", PartID: "0.2"},
	}, Defaults{})

	for _, r := range results {
		assert.Equal(t, StatusSuccess, r.Status)
	}
	assert.Equal(t, 3, mail.snapshots)
	assert.Equal(t, 3, mail.fetches)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	storage := &cancellingStorage{fakeStorage: &fakeStorage{}, cancel: cancel}

	results := newTestOrchestrator(nil).Run(ctx, newFakeMail(), storage, []Request{
		{MessageID: "msg-1", PartID: "0.1"},
		{MessageID: "msg-1", PartID: "0.2"},
		{MessageID: "msg-2", PartID: "0.1"},
	}, Defaults{})

	require.Len(t, results, 3)
	assert.Equal(t, StatusSuccess, results[0].Status)
	for _, r := range results[1:] {
		assert.Equal(t, StatusError, r.Status)
		assert.Equal(t, context.Canceled.Error(), r.ErrorMessage)
	}
	assert.Len(t, storage.files, 1)
}

func TestOrchestrator_EmptyBatch(t *testing.T) {
	results := newTestOrchestrator(nil).Run(context.Background(), newFakeMail(), &fakeStorage{}, nil, Defaults{})
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

// cancellingStorage cancels the run after the first successful upload.
type cancellingStorage struct {
	*fakeStorage
	cancel context.CancelFunc
}

func (s *cancellingStorage) CreateFile(ctx context.Context, file File) (*StoredFile, error) {
	stored, err := s.fakeStorage.CreateFile(ctx, file)
	s.cancel()
	return stored, err
}
