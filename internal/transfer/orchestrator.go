package transfer

import (
	"context"
	"log/slog"

	"github.com/teemow/attachdrop/internal/attachment"
	"github.com/teemow/attachdrop/internal/instrumentation"
	"github.com/teemow/attachdrop/internal/logging"
)

// MetricsRecorder receives one observation per finished transfer.
type MetricsRecorder interface {
	RecordTransfer(ctx context.Context, status string, bytes int64)
}

// Orchestrator runs the resolve, decode and upload pipeline for one or
// many requests.
type Orchestrator struct {
	resolver *attachment.Resolver
	uploader *Uploader
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// NewOrchestrator creates an Orchestrator. logger and metrics may be nil.
func NewOrchestrator(resolver *attachment.Resolver, uploader *Uploader, logger *slog.Logger, metrics MetricsRecorder) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		resolver: resolver,
		uploader: uploader,
		logger:   logger,
		metrics:  metrics,
	}
}

// Transfer copies one attachment. On failure the returned Result carries
// the error message and the error itself is returned unchanged.
func (o *Orchestrator) Transfer(ctx context.Context, mail attachment.MailHandle, storage StorageHandle, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return errorResult(req, err), err
	}

	ctx, span := instrumentation.StartSpan(ctx, "attachment.transfer",
		instrumentation.NewSpanAttributeBuilder().
			WithResource("message", req.MessageID).
			WithPart(req.PartID).
			Build()...)
	defer span.End()

	result, err := o.transfer(ctx, mail, storage, req)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		o.record(ctx, StatusError, 0)
		o.logger.Warn("attachment transfer failed",
			logging.MessageID(req.MessageID),
			logging.PartID(req.PartID),
			logging.Err(err))
		return result, err
	}

	instrumentation.SetSpanSuccess(span)
	o.record(ctx, StatusSuccess, result.Size)
	o.logger.Debug("attachment transferred",
		logging.MessageID(req.MessageID),
		logging.PartID(req.PartID),
		logging.FolderID(req.FolderID),
		logging.Bytes(int(result.Size)))
	return result, nil
}

// Run transfers every request in order and returns one Result per request
// at the same index. Item-level folder and rename values take precedence
// over defaults. Run never fails: errors become error results. Once ctx is
// done the remaining items are recorded as errors without being attempted.
func (o *Orchestrator) Run(ctx context.Context, mail attachment.MailHandle, storage StorageHandle, reqs []Request, defaults Defaults) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			results = append(results, errorResult(req, err))
			continue
		}
		// Transfer already turns every failure into an error result.
		result, _ := o.Transfer(ctx, mail, storage, req.withDefaults(defaults))
		results = append(results, result)
	}
	return results
}

func (o *Orchestrator) transfer(ctx context.Context, mail attachment.MailHandle, storage StorageHandle, req Request) (Result, error) {
	resolved, err := o.resolver.Resolve(ctx, mail, req.MessageID, req.PartID)
	if err != nil {
		return errorResult(req, err), err
	}

	content, err := attachment.Decode(resolved.Encoded)
	if err != nil {
		return errorResult(req, err), err
	}

	stored, err := o.uploader.Upload(ctx, storage, Upload{
		Content:  content,
		Filename: resolved.Filename,
		MimeType: resolved.MimeType,
		FolderID: req.FolderID,
		Rename:   req.Rename,
	})
	if err != nil {
		return errorResult(req, err), err
	}

	return Result{
		Status:      StatusSuccess,
		MessageID:   req.MessageID,
		PartID:      req.PartID,
		Filename:    stored.Name,
		Size:        int64(len(content)),
		FileID:      stored.ID,
		WebViewLink: stored.WebViewLink,
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, status string, bytes int64) {
	if o.metrics != nil {
		o.metrics.RecordTransfer(ctx, status, bytes)
	}
}
