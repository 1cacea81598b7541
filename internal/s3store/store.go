package s3store

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/teemow/attachdrop/internal/instrumentation"
	"github.com/teemow/attachdrop/internal/transfer"
)

// Config holds the settings needed to reach a bucket.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// PutObjectAPI is the subset of the S3 client used by Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes files into a single bucket.
type Store struct {
	cfg     Config
	client  PutObjectAPI
	metrics *instrumentation.Metrics
	newID   func() string
}

// New creates a Store using the AWS default configuration chain. Static
// credentials in cfg take precedence over the chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(cfg, client), nil
}

// NewWithClient creates a Store with a custom client, used for testing.
func NewWithClient(cfg Config, client PutObjectAPI) *Store {
	return &Store{cfg: cfg, client: client, newID: uuid.NewString}
}

// WithMetrics records backend operation metrics for every upload.
func (s *Store) WithMetrics(m *instrumentation.Metrics) *Store {
	s.metrics = m
	return s
}

// CreateFile uploads file.Content as a new object. The returned ID is the
// object key.
func (s *Store) CreateFile(ctx context.Context, file transfer.File) (stored *transfer.StoredFile, err error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendS3, instrumentation.OperationCreateFile,
		instrumentation.NewSpanAttributeBuilder().WithResource("folder", file.FolderID).Build()...)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		s.metrics.RecordBackendOperation(ctx, instrumentation.BackendS3, instrumentation.OperationCreateFile, status, time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	if file.Name == "" {
		return nil, fmt.Errorf("file name is required")
	}

	key := s.objectKey(file.FolderID, file.Name)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Content),
		ContentLength: aws.Int64(int64(len(file.Content))),
	}
	if file.MimeType != "" {
		input.ContentType = aws.String(file.MimeType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &transfer.StoredFile{
		ID:          key,
		Name:        file.Name,
		WebViewLink: s.objectURL(key),
		Size:        int64(len(file.Content)),
	}, nil
}

func (s *Store) objectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	return path.Join(folder, s.newID(), SanitizeFilename(name))
}

// objectURL returns the HTTPS location of key, honouring custom endpoints
// and path-style addressing.
func (s *Store) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()

	if s.cfg.Endpoint != "" {
		base := strings.TrimRight(s.cfg.Endpoint, "/")
		if s.cfg.UsePathStyle {
			return base + "/" + s.cfg.Bucket + "/" + escaped
		}
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			u.Host = s.cfg.Bucket + "." + u.Host
			return u.String() + "/" + escaped
		}
		return base + "/" + s.cfg.Bucket + "/" + escaped
	}

	region := s.cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	if s.cfg.UsePathStyle {
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", region, s.cfg.Bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, region, escaped)
}

// SanitizeFilename replaces path separators and parent references so a
// filename stays a single key segment.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}

var _ transfer.StorageHandle = (*Store)(nil)
