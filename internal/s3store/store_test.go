package s3store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/attachdrop/internal/transfer"
)

type putCall struct {
	bucket      string
	key         string
	contentType string
	length      int64
	body        []byte
}

// mockS3Client implements PutObjectAPI for testing.
type mockS3Client struct {
	calls []putCall
	err   error
}

func (m *mockS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	m.calls = append(m.calls, putCall{
		bucket:      aws.ToString(params.Bucket),
		key:         aws.ToString(params.Key),
		contentType: aws.ToString(params.ContentType),
		length:      aws.ToInt64(params.ContentLength),
		body:        body,
	})
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil
}

func newTestStore(cfg Config, client PutObjectAPI) *Store {
	s := NewWithClient(cfg, client)
	s.newID = func() string { return "id-1" }
	return s
}

func TestStore_CreateFile(t *testing.T) {
	mock := &mockS3Client{}
	s := newTestStore(Config{Bucket: "inbox", Region: "eu-west-1"}, mock)
	content := []byte("%PDF-1.4 body")

	stored, err := s.CreateFile(context.Background(), transfer.File{
		Name:     "Q3 report.pdf",
		MimeType: "application/pdf",
		FolderID: "/invoices/2026/",
		Content:  content,
	})
	require.NoError(t, err)

	require.Len(t, mock.calls, 1)
	call := mock.calls[0]
	assert.Equal(t, "inbox", call.bucket)
	assert.Equal(t, "invoices/2026/id-1/Q3 report.pdf", call.key)
	assert.Equal(t, "application/pdf", call.contentType)
	assert.Equal(t, int64(len(content)), call.length)
	assert.Equal(t, content, call.body)

	assert.Equal(t, "invoices/2026/id-1/Q3 report.pdf", stored.ID)
	assert.Equal(t, "Q3 report.pdf", stored.Name)
	assert.Equal(t, int64(len(content)), stored.Size)
	assert.Equal(t, "https://inbox.s3.eu-west-1.amazonaws.com/invoices/2026/id-1/Q3%20report.pdf", stored.WebViewLink)
}

func TestStore_CreateFileAtRoot(t *testing.T) {
	mock := &mockS3Client{}
	s := newTestStore(Config{Bucket: "inbox"}, mock)

	stored, err := s.CreateFile(context.Background(), transfer.File{Name: "../etc/passwd", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "id-1/__etc_passwd", stored.ID)
	assert.Empty(t, mock.calls[0].contentType)
}

func TestStore_CreateFileError(t *testing.T) {
	mock := &mockS3Client{err: errors.New("AccessDenied")}
	s := newTestStore(Config{Bucket: "inbox"}, mock)

	_, err := s.CreateFile(context.Background(), transfer.File{Name: "a.txt", Content: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload file")
	assert.Contains(t, err.Error(), "AccessDenied")

	_, err = s.CreateFile(context.Background(), transfer.File{})
	assert.ErrorContains(t, err, "file name is required")
}

func TestStore_ObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"aws virtual hosted", Config{Bucket: "b", Region: "us-west-2"}, "https://b.s3.us-west-2.amazonaws.com/k/x.pdf"},
		{"aws default region", Config{Bucket: "b"}, "https://b.s3.us-east-1.amazonaws.com/k/x.pdf"},
		{"aws path style", Config{Bucket: "b", Region: "us-west-2", UsePathStyle: true}, "https://s3.us-west-2.amazonaws.com/b/k/x.pdf"},
		{"custom endpoint path style", Config{Bucket: "b", Endpoint: "http://localhost:9000/", UsePathStyle: true}, "http://localhost:9000/b/k/x.pdf"},
		{"custom endpoint virtual hosted", Config{Bucket: "b", Endpoint: "https://minio.example.com"}, "https://b.minio.example.com/k/x.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWithClient(tt.cfg, &mockS3Client{})
			assert.Equal(t, tt.want, s.objectURL("k/x.pdf"))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"normal.pdf", "normal.pdf"},
		{"../../../etc/passwd", "______etc_passwd"},
		{"folder/file.txt", "folder_file.txt"},
		{"folder\\file.txt", "folder_file.txt"},
		{"..hidden", "_hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.filename))
		})
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorContains(t, err, "bucket is required")
}
