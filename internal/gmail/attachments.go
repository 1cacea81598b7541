package gmail

import (
	"context"
	"mime"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/attachdrop/internal/attachment"
	"github.com/teemow/attachdrop/internal/instrumentation"
)

// MessageTree fetches a message in full format and converts its payload
// into a part tree.
func (c *Client) MessageTree(ctx context.Context, messageID string) (tree *attachment.Tree, err error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendGmail, instrumentation.OperationGetMessage,
		instrumentation.NewSpanAttributeBuilder().WithResource("message", messageID).Build()...)
	start := time.Now()
	defer func() {
		c.observe(ctx, instrumentation.OperationGetMessage, start, err)
		instrumentation.EndSpan(span, err)
	}()

	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if msg.Payload == nil {
		return nil, &attachment.StructureError{Reason: "message has no payload"}
	}
	return BuildTree(msg.Payload)
}

// AttachmentData fetches the URL-safe base64 body of an attachment.
func (c *Client) AttachmentData(ctx context.Context, messageID, fetchID string) (data string, err error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendGmail, instrumentation.OperationGetAttachment,
		instrumentation.NewSpanAttributeBuilder().WithResource("message", messageID).Build()...)
	start := time.Now()
	defer func() {
		c.observe(ctx, instrumentation.OperationGetAttachment, start, err)
		instrumentation.EndSpan(span, err)
	}()

	body, err := c.svc.Messages.Attachments.Get("me", messageID, fetchID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return body.Data, nil
}

// BuildTree converts a Gmail message payload into a part tree, visiting
// parts breadth first.
func BuildTree(payload *gmail.MessagePart) (*attachment.Tree, error) {
	type pending struct {
		parent int
		part   *gmail.MessagePart
	}

	b := attachment.NewTreeBuilder()
	queue := []pending{{parent: -1, part: payload}}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next.part == nil {
			return nil, &attachment.StructureError{Reason: "empty part"}
		}

		idx, kind, err := b.Add(next.parent, partSpec(next.part))
		if err != nil {
			return nil, err
		}
		if kind != attachment.KindContainer {
			continue
		}
		for _, child := range next.part.Parts {
			queue = append(queue, pending{parent: idx, part: child})
		}
	}
	return b.Build()
}

func partSpec(p *gmail.MessagePart) attachment.PartSpec {
	spec := attachment.PartSpec{
		PartID:      p.PartId,
		MimeType:    p.MimeType,
		Filename:    p.Filename,
		Disposition: disposition(p.Headers),
		HasChildren: len(p.Parts) > 0,
	}
	if p.Body != nil {
		spec.FetchID = p.Body.AttachmentId
		spec.Data = p.Body.Data
		spec.Size = p.Body.Size
	}
	return spec
}

// disposition returns the Content-Disposition type of a part, or "".
func disposition(headers []*gmail.MessagePartHeader) string {
	value := HeaderValue(headers, "Content-Disposition")
	if value == "" {
		return ""
	}
	if dispType, _, err := mime.ParseMediaType(value); err == nil {
		return dispType
	}
	// Tolerate malformed parameters; only the type matters here.
	dispType, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(dispType))
}

// HeaderValue returns the first header named name, case-insensitively.
func HeaderValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

var _ attachment.MailHandle = (*Client)(nil)
