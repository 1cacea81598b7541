package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/attachdrop/internal/attachment"
)

type fakeAttachment struct {
	partID   string
	filename string
	mimeType string
	content  []byte
}

// fakeMail serves single-level multipart messages. Fetch ids change with
// every snapshot, and only ids from the latest snapshot are accepted.
type fakeMail struct {
	messages  map[string][]fakeAttachment
	snapshots int
	current   map[string][]byte
	fetches   int
	corrupt   map[string]bool // part ids whose payload is not valid base64
}

func newFakeMail() *fakeMail {
	return &fakeMail{
		messages: map[string][]fakeAttachment{
			"msg-1": {
				{partID: "0.1", filename: "report.pdf", mimeType: "application/pdf", content: []byte("%PDF-1.7 report")},
				{partID: "0.2", filename: "photo.jpg", mimeType: "image/jpeg", content: []byte{0xff, 0xd8, 0xff, 0x00, 0xfe}},
			},
			"msg-2": {
				{partID: "0.1", filename: "", mimeType: "", content: []byte("no metadata")},
			},
		},
		corrupt: map[string]bool{},
	}
}

func (m *fakeMail) MessageTree(_ context.Context, messageID string) (*attachment.Tree, error) {
	atts, ok := m.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("googleapi: Error 404: Requested entity was not found")
	}
	m.snapshots++
	m.current = make(map[string][]byte)

	b := attachment.NewTreeBuilder()
	root, _, err := b.Add(-1, attachment.PartSpec{PartID: "", MimeType: "multipart/mixed", HasChildren: true})
	if err != nil {
		return nil, err
	}
	if _, _, err := b.Add(root, attachment.PartSpec{PartID: "0.0", MimeType: "text/plain", Data: "aGk="}); err != nil {
		return nil, err
	}
	for _, a := range atts {
		fetchID := fmt.Sprintf("snap%d-%s", m.snapshots, a.partID)
		mimeType := a.mimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		if _, _, err := b.Add(root, attachment.PartSpec{
			PartID:   a.partID,
			MimeType: mimeType,
			Filename: a.filename,
			FetchID:  fetchID,
			Size:     int64(len(a.content)),
		}); err != nil {
			return nil, err
		}
		m.current[fetchID] = a.content
		if m.corrupt[a.partID] {
			m.current[fetchID] = nil
		}
	}
	return b.Build()
}

func (m *fakeMail) AttachmentData(_ context.Context, _ string, fetchID string) (string, error) {
	m.fetches++
	content, ok := m.current[fetchID]
	if !ok {
		return "", errors.New("googleapi: Error 400: Invalid attachment token")
	}
	if content == nil {
		return "not*base64", nil
	}
	return attachment.Encode(content), nil
}

type fakeStorage struct {
	files  []File
	failOn string
	err    error
}

func (s *fakeStorage) CreateFile(_ context.Context, file File) (*StoredFile, error) {
	if s.failOn != "" && file.Name == s.failOn {
		return nil, s.err
	}
	s.files = append(s.files, file)
	id := fmt.Sprintf("file-%d", len(s.files))
	return &StoredFile{
		ID:          id,
		Name:        file.Name,
		WebViewLink: "https://drive.google.com/file/d/" + id + "/view",
	}, nil
}

type fakeMetrics struct {
	statuses []string
	bytes    int64
}

func (f *fakeMetrics) RecordTransfer(_ context.Context, status string, bytes int64) {
	f.statuses = append(f.statuses, status)
	f.bytes += bytes
}

type staticProviders struct {
	mail       attachment.MailHandle
	storage    StorageHandle
	mailErr    error
	storageErr error
}

func (p *staticProviders) MailHandle(context.Context, string) (attachment.MailHandle, error) {
	if p.mailErr != nil {
		return nil, p.mailErr
	}
	return p.mail, nil
}

func (p *staticProviders) StorageHandle(context.Context, string) (StorageHandle, error) {
	if p.storageErr != nil {
		return nil, p.storageErr
	}
	return p.storage, nil
}
