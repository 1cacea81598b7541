package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/attachdrop/internal/attachment"
	"github.com/teemow/attachdrop/internal/logging"
)

// MailProvider returns the mail handle of an account.
type MailProvider interface {
	MailHandle(ctx context.Context, account string) (attachment.MailHandle, error)
}

// StorageProvider returns the storage handle of an account.
type StorageProvider interface {
	StorageHandle(ctx context.Context, account string) (StorageHandle, error)
}

// Service exposes attachment listing and transfer for configured accounts.
type Service struct {
	mail    MailProvider
	storage StorageProvider

	logger        *slog.Logger
	metrics       MetricsRecorder
	maxDepth      int
	defaultFolder string

	resolver     *attachment.Resolver
	orchestrator *Orchestrator
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the recorder that observes finished transfers.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxDepth bounds part tree nesting. Values <= 0 select
// attachment.DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(s *Service) {
		s.maxDepth = depth
	}
}

// WithDefaultFolder sets the folder used when neither a request nor its
// batch names one.
func WithDefaultFolder(folderID string) Option {
	return func(s *Service) {
		s.defaultFolder = folderID
	}
}

// NewService creates a Service backed by the given providers.
func NewService(mail MailProvider, storage StorageProvider, opts ...Option) *Service {
	s := &Service{
		mail:    mail,
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.resolver = attachment.NewResolver(s.maxDepth)
	s.orchestrator = NewOrchestrator(s.resolver, NewUploader(s.defaultFolder), s.logger, s.metrics)
	return s
}

// ExtractAttachments lists the attachments of a message in document order.
func (s *Service) ExtractAttachments(ctx context.Context, account, messageID string) ([]attachment.Descriptor, error) {
	if messageID == "" {
		return nil, &ValidationError{Field: "messageId"}
	}

	mail, err := s.mailHandle(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.resolver.Extract(ctx, mail, messageID)
}

// TransferAttachment copies one attachment to storage.
func (s *Service) TransferAttachment(ctx context.Context, account string, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return errorResult(req, err), err
	}

	mail, err := s.mailHandle(ctx, account)
	if err != nil {
		return errorResult(req, err), err
	}
	storage, err := s.storageHandle(ctx, account)
	if err != nil {
		return errorResult(req, err), err
	}

	return s.orchestrator.Transfer(ctx, mail, storage, req)
}

// TransferAttachmentsBulk copies many attachments in order. The result has
// one entry per request at the same index.
func (s *Service) TransferAttachmentsBulk(ctx context.Context, account string, reqs []Request, defaults Defaults) []Result {
	logger := logging.WithOperation(s.logger, "transfer.bulk").With(logging.Account(account))

	mail, err := s.mailHandle(ctx, account)
	if err == nil {
		var storage StorageHandle
		storage, err = s.storageHandle(ctx, account)
		if err == nil {
			results := s.orchestrator.Run(ctx, mail, storage, reqs, defaults)
			logger.Info("bulk transfer finished",
				slog.Int("total", len(results)),
				slog.Int("failed", countFailed(results)))
			return results
		}
	}

	logger.Warn("bulk transfer could not start", logging.Err(err))
	results := make([]Result, len(reqs))
	for i, req := range reqs {
		if verr := req.Validate(); verr != nil {
			results[i] = errorResult(req, verr)
			continue
		}
		results[i] = errorResult(req, err)
	}
	return results
}

func (s *Service) mailHandle(ctx context.Context, account string) (attachment.MailHandle, error) {
	mail, err := s.mail.MailHandle(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get mail handle for account %s: %w", account, err)
	}
	return mail, nil
}

func (s *Service) storageHandle(ctx context.Context, account string) (StorageHandle, error) {
	storage, err := s.storage.StorageHandle(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage handle for account %s: %w", account, err)
	}
	return storage, nil
}

func countFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
