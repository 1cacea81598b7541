package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/teemow/attachdrop/internal/attachment"
	"github.com/teemow/attachdrop/internal/instrumentation"
)

const (
	emlExt  = ".eml"
	mboxExt = ".mbox"

	// maxSnapshots bounds how many messages keep fetchable bodies. Reading
	// one more message drops the bodies of the least recently read one.
	maxSnapshots = 32
)

// ErrInvalidFetchID is returned for fetch ids that do not belong to the
// latest snapshot of a message.
var ErrInvalidFetchID = errors.New("invalid or expired attachment fetch id")

// Source is an attachment.MailHandle over a directory of .eml and .mbox
// files. Bodies are handed out exactly as the transfer encoding decodes
// them; declared charsets of text parts are not applied.
type Source struct {
	dir          string
	maxDepth     int
	maxSnapshots int
	metrics      *instrumentation.Metrics
	newToken     func() string

	mu        sync.Mutex
	snapshots map[string]map[string][]byte // message id -> fetch id -> body
	order     []string                     // message ids, least recently read first
}

// NewSource creates a Source reading from dir. maxDepth bounds how deeply
// multipart entities may nest; values <= 0 select attachment.DefaultMaxDepth.
func NewSource(dir string, maxDepth int) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mail directory %s is not a directory", dir)
	}
	if maxDepth <= 0 {
		maxDepth = attachment.DefaultMaxDepth
	}
	return &Source{
		dir:          dir,
		maxDepth:     maxDepth,
		maxSnapshots: maxSnapshots,
		newToken:     uuid.NewString,
		snapshots:    make(map[string]map[string][]byte),
	}, nil
}

// WithMetrics records backend operation metrics for every read.
func (s *Source) WithMetrics(m *instrumentation.Metrics) *Source {
	s.metrics = m
	return s
}

// MessageTree parses the message and returns its part tree. Fetch ids
// from earlier calls for the same message stop working.
func (s *Source) MessageTree(ctx context.Context, messageID string) (tree *attachment.Tree, err error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendEML, instrumentation.OperationGetMessage,
		instrumentation.NewSpanAttributeBuilder().WithResource("message", messageID).Build()...)
	start := time.Now()
	defer func() {
		s.observe(ctx, instrumentation.OperationGetMessage, start, err)
		instrumentation.EndSpan(span, err)
	}()

	raw, err := s.readMessage(messageID)
	if err != nil {
		return nil, err
	}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("failed to parse message %s: %w", messageID, err)
	}

	p := parser{
		builder:  attachment.NewTreeBuilder(),
		bodies:   make(map[string][]byte),
		newToken: s.newToken,
		maxDepth: s.maxDepth,
	}
	if err := p.add(-1, "", entity, 0); err != nil {
		return nil, err
	}
	tree, err = p.builder.Build()
	if err != nil {
		return nil, err
	}

	s.storeSnapshot(messageID, p.bodies)
	return tree, nil
}

// storeSnapshot replaces the bodies of messageID and evicts the least
// recently read messages beyond maxSnapshots.
func (s *Source) storeSnapshot(messageID string, bodies map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[messageID]; ok {
		for i, id := range s.order {
			if id == messageID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.snapshots[messageID] = bodies
	s.order = append(s.order, messageID)

	for len(s.order) > s.maxSnapshots {
		delete(s.snapshots, s.order[0])
		s.order = s.order[1:]
	}
}

// AttachmentData returns the URL-safe base64 body behind fetchID.
func (s *Source) AttachmentData(ctx context.Context, messageID, fetchID string) (data string, err error) {
	_, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendEML, instrumentation.OperationGetAttachment,
		instrumentation.NewSpanAttributeBuilder().WithResource("message", messageID).Build()...)
	start := time.Now()
	defer func() {
		s.observe(ctx, instrumentation.OperationGetAttachment, start, err)
		instrumentation.EndSpan(span, err)
	}()

	s.mu.Lock()
	body, ok := s.snapshots[messageID][fetchID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("message %s: %w", messageID, ErrInvalidFetchID)
	}
	return attachment.Encode(body), nil
}

func (s *Source) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordBackendOperation(ctx, instrumentation.BackendEML, operation, status, time.Since(start))
}

// readMessage returns the raw bytes of the message named by messageID.
func (s *Source) readMessage(messageID string) ([]byte, error) {
	if messageID == "" || strings.ContainsAny(messageID, `/\`) || strings.HasPrefix(messageID, ".") {
		return nil, fmt.Errorf("invalid message id %q", messageID)
	}

	if name, index, ok := strings.Cut(messageID, ":"); ok {
		n, err := strconv.Atoi(index)
		if err != nil || n < 1 || !strings.HasSuffix(name, mboxExt) {
			return nil, fmt.Errorf("invalid message id %q: expected <file>.mbox:<n>", messageID)
		}
		return s.readMboxMessage(name, n)
	}

	name := messageID
	if !strings.HasSuffix(name, emlExt) {
		name += emlExt
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("message %s not found in %s", messageID, s.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", messageID, err)
	}
	return raw, nil
}

// readMboxMessage returns the n-th (1-based) message of an mbox file.
func (s *Source) readMboxMessage(name string, n int) ([]byte, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("mailbox %s not found in %s", name, s.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open mailbox %s: %w", name, err)
	}
	defer f.Close()

	reader := mbox.NewReader(f)
	for i := 1; ; i++ {
		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("mailbox %s has %d messages, no message %d", name, i-1, n)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mailbox %s: %w", name, err)
		}
		if i == n {
			return io.ReadAll(msg)
		}
	}
}

// parser converts a parsed entity into a part tree, keeping the decoded
// body of every fetchable leaf.
type parser struct {
	builder  *attachment.TreeBuilder
	bodies   map[string][]byte
	newToken func() string
	maxDepth int
}

func (p *parser) add(parent int, partID string, e *message.Entity, depth int) error {
	if depth > p.maxDepth {
		return &attachment.StructureError{PartID: partID, Reason: fmt.Sprintf("parts nest deeper than %d levels", p.maxDepth)}
	}

	mimeType, _, _ := e.Header.ContentType()
	if mimeType == "" {
		mimeType = "text/plain"
	}
	disposition, _, _ := e.Header.ContentDisposition()
	ah := mail.AttachmentHeader{Header: e.Header}
	filename, _ := ah.Filename()

	mr := e.MultipartReader()
	spec := attachment.PartSpec{
		PartID:      partID,
		MimeType:    mimeType,
		Filename:    filename,
		Disposition: disposition,
		HasChildren: mr != nil,
	}

	if mr == nil {
		// No charset reader is registered, so text bodies stay in their
		// declared charset and attachments keep their exact bytes.
		body, err := io.ReadAll(e.Body)
		if err != nil && !message.IsUnknownEncoding(err) {
			return fmt.Errorf("failed to read part %q: %w", partID, err)
		}
		spec.Size = int64(len(body))
		if filename == "" && strings.HasPrefix(strings.ToLower(mimeType), "text/") {
			spec.Data = attachment.Encode(body)
		} else {
			spec.FetchID = p.newToken()
			p.bodies[spec.FetchID] = body
		}
	}

	idx, kind, err := p.builder.Add(parent, spec)
	if err != nil {
		return err
	}
	if kind != attachment.KindContainer {
		return nil
	}

	for i := 0; ; i++ {
		child, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return fmt.Errorf("failed to read parts of %q: %w", partID, err)
		}
		childID := strconv.Itoa(i)
		if partID != "" {
			childID = partID + "." + childID
		}
		if err := p.add(idx, childID, child, depth+1); err != nil {
			return err
		}
	}
}

var _ attachment.MailHandle = (*Source)(nil)
