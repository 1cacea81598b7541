package attachment

import (
	"context"
	"fmt"
)

// MailHandle is an authenticated view of one account's mailbox.
type MailHandle interface {
	// MessageTree returns a fresh snapshot of a message's part tree.
	MessageTree(ctx context.Context, messageID string) (*Tree, error)

	// AttachmentData returns the URL-safe base64 body referenced by fetchID.
	// fetchID must come from the most recent MessageTree snapshot.
	AttachmentData(ctx context.Context, messageID, fetchID string) (string, error)
}

// Resolved is an attachment's encoded payload together with its metadata.
type Resolved struct {
	Descriptor
	MessageID string
	Encoded   string
}

// Resolver maps stable part ids onto the current fetch ids of a message
// and downloads attachment payloads.
type Resolver struct {
	maxDepth int
}

// NewResolver creates a Resolver that rejects part trees nested deeper
// than maxDepth (DefaultMaxDepth when <= 0).
func NewResolver(maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{maxDepth: maxDepth}
}

// Extract lists the attachments of a message.
func (r *Resolver) Extract(ctx context.Context, mail MailHandle, messageID string) ([]Descriptor, error) {
	tree, err := mail.MessageTree(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return Walk(tree, r.maxDepth)
}

// Resolve downloads the encoded payload of the attachment identified by
// partID. The message tree is re-read on every call so the fetch id used
// for the download is always the current one.
func (r *Resolver) Resolve(ctx context.Context, mail MailHandle, messageID, partID string) (*Resolved, error) {
	tree, err := mail.MessageTree(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	indices, err := walk(tree, r.maxDepth)
	if err != nil {
		return nil, err
	}

	available := make([]string, 0, len(indices))
	var node *Node
	for _, i := range indices {
		n := tree.Node(i)
		available = append(available, n.PartID)
		if n.PartID == partID && node == nil {
			node = n
		}
	}
	if node == nil {
		return nil, &NotFoundError{
			MessageID:        messageID,
			PartID:           partID,
			AvailablePartIDs: available,
		}
	}

	resolved := &Resolved{
		Descriptor: describe(node),
		MessageID:  messageID,
	}

	switch {
	case node.FetchID != "":
		data, err := mail.AttachmentData(ctx, messageID, node.FetchID)
		if err != nil {
			return nil, fmt.Errorf("failed to get attachment part %s of message %s: %w", partID, messageID, err)
		}
		resolved.Encoded = data
	case node.Data != "":
		resolved.Encoded = node.Data
	default:
		return nil, &StructureError{PartID: partID, Reason: "attachment part has no content"}
	}

	return resolved, nil
}
