package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/attachdrop/internal/attachment"
	"github.com/teemow/attachdrop/internal/config"
	"github.com/teemow/attachdrop/internal/drive"
	"github.com/teemow/attachdrop/internal/gmail"
	"github.com/teemow/attachdrop/internal/google"
	"github.com/teemow/attachdrop/internal/instrumentation"
	"github.com/teemow/attachdrop/internal/logging"
	"github.com/teemow/attachdrop/internal/mailbox"
	"github.com/teemow/attachdrop/internal/s3store"
	"github.com/teemow/attachdrop/internal/transfer"
)

// ErrShutdown is returned for handle requests after Shutdown.
var ErrShutdown = errors.New("server is shutting down")

// ServerContext owns the per-account mail and storage handles and the
// transfer service built on top of them. Handles are created lazily on
// first use and cached by account.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg     *config.Config
	tokens  *google.FileTokenProvider
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger

	auditConfig *instrumentation.AuditLoggingConfig

	mu             sync.RWMutex
	mailHandles    map[string]attachment.MailHandle
	storageHandles map[string]transfer.StorageHandle
	eml            *mailbox.Source
	bucket         *s3store.Store
	shutdown       bool

	service *transfer.Service
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		sc.logger = logger
	}
}

// WithInstrumentation wires metrics and audit logging from provider.
func WithInstrumentation(provider *instrumentation.Provider, audit instrumentation.AuditLoggingConfig) Option {
	return func(sc *ServerContext) {
		if provider != nil {
			sc.metrics = provider.Metrics()
		}
		sc.auditConfig = &audit
	}
}

// NewServerContext creates a ServerContext for cfg. No backend is
// contacted until a handle is first requested.
func NewServerContext(ctx context.Context, cfg *config.Config, opts ...Option) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		cfg:            cfg,
		tokens:         google.NewFileTokenProvider(cfg.CredentialsDir),
		logger:         slog.Default(),
		mailHandles:    make(map[string]attachment.MailHandle),
		storageHandles: make(map[string]transfer.StorageHandle),
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.auditConfig != nil {
		sc.audit = instrumentation.NewAuditLogger(sc.logger, *sc.auditConfig)
	}

	var recorder transfer.MetricsRecorder
	if sc.metrics != nil {
		recorder = sc.metrics
	}
	sc.service = transfer.NewService(sc, sc,
		transfer.WithLogger(sc.logger),
		transfer.WithMetrics(recorder),
		transfer.WithMaxDepth(cfg.Mail.MaxDepth),
		transfer.WithDefaultFolder(cfg.Storage.DefaultFolder),
	)
	return sc, nil
}

// Context returns the server context. It is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the configuration the server was created with.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Service returns the transfer service.
func (sc *ServerContext) Service() *transfer.Service {
	return sc.service
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder. It may be nil; all of its methods
// accept a nil receiver.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger. It may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// ResolveAccount returns the canonical account name for account: the
// configured default when empty, and the account name when an email of a
// configured account is given.
func (sc *ServerContext) ResolveAccount(account string) string {
	name := sc.cfg.ResolveAccount(account)
	if a, ok := sc.cfg.Account(name); ok {
		return a.Name
	}
	return name
}

// MailHandle returns the cached mail handle of account, creating it on
// first use. Handles outlive the request that created them, so they are
// bound to the server context rather than ctx.
func (sc *ServerContext) MailHandle(_ context.Context, account string) (attachment.MailHandle, error) {
	account = sc.ResolveAccount(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil, ErrShutdown
	}
	if h, ok := sc.mailHandles[account]; ok {
		return h, nil
	}

	h, err := sc.newMailHandle(sc.ctx, account)
	if err != nil {
		return nil, err
	}
	sc.mailHandles[account] = h
	sc.logger.Debug("created mail handle", logging.Operation("mail_handle"), logging.Account(account), logging.Backend(sc.cfg.Mail.Source))
	return h, nil
}

// StorageHandle returns the cached storage handle of account, creating it
// on first use.
func (sc *ServerContext) StorageHandle(_ context.Context, account string) (transfer.StorageHandle, error) {
	account = sc.ResolveAccount(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil, ErrShutdown
	}
	if h, ok := sc.storageHandles[account]; ok {
		return h, nil
	}

	h, err := sc.newStorageHandle(sc.ctx, account)
	if err != nil {
		return nil, err
	}
	sc.storageHandles[account] = h
	sc.logger.Debug("created storage handle", logging.Operation("storage_handle"), logging.Account(account), logging.Backend(sc.cfg.Storage.Backend))
	return h, nil
}

// SetMailHandle overrides the mail handle of account.
func (sc *ServerContext) SetMailHandle(account string, h attachment.MailHandle) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.mailHandles[sc.ResolveAccount(account)] = h
}

// SetStorageHandle overrides the storage handle of account.
func (sc *ServerContext) SetStorageHandle(account string, h transfer.StorageHandle) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.storageHandles[sc.ResolveAccount(account)] = h
}

// newMailHandle must be called with sc.mu held.
func (sc *ServerContext) newMailHandle(ctx context.Context, account string) (attachment.MailHandle, error) {
	switch sc.cfg.Mail.Source {
	case config.SourceEML:
		// One directory serves every account.
		if sc.eml == nil {
			src, err := mailbox.NewSource(sc.cfg.Mail.EMLDir, sc.cfg.Mail.MaxDepth)
			if err != nil {
				return nil, err
			}
			sc.eml = src.WithMetrics(sc.metrics)
		}
		return sc.eml, nil
	default:
		if err := google.ValidateAccountName(account); err != nil {
			return nil, err
		}
		client, err := gmail.NewClientForAccount(ctx, sc.tokens, account)
		if err != nil {
			return nil, err
		}
		return client.WithMetrics(sc.metrics), nil
	}
}

// newStorageHandle must be called with sc.mu held.
func (sc *ServerContext) newStorageHandle(ctx context.Context, account string) (transfer.StorageHandle, error) {
	switch sc.cfg.Storage.Backend {
	case config.BackendS3:
		// One bucket serves every account.
		if sc.bucket == nil {
			s3cfg := sc.cfg.Storage.S3
			store, err := s3store.New(ctx, s3store.Config{
				Bucket:          s3cfg.Bucket,
				Region:          s3cfg.Region,
				Endpoint:        s3cfg.Endpoint,
				AccessKeyID:     s3cfg.AccessKeyID,
				SecretAccessKey: s3cfg.SecretAccessKey,
				UsePathStyle:    s3cfg.UsePathStyle,
			})
			if err != nil {
				return nil, err
			}
			sc.bucket = store.WithMetrics(sc.metrics)
		}
		return sc.bucket, nil
	default:
		if err := google.ValidateAccountName(account); err != nil {
			return nil, err
		}
		client, err := drive.NewClientForAccount(ctx, sc.tokens, account)
		if err != nil {
			return nil, err
		}
		return client.WithMetrics(sc.metrics), nil
	}
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and drops all cached handles.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.mailHandles = make(map[string]attachment.MailHandle)
	sc.storageHandles = make(map[string]transfer.StorageHandle)
	sc.cancel()
	return nil
}
