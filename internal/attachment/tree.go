package attachment

import (
	"fmt"
	"strings"
)

// NodeKind distinguishes container parts from content parts.
type NodeKind int

const (
	// KindContainer is a multipart (or encapsulated message) part. It has
	// children and no payload of its own.
	KindContainer NodeKind = iota
	// KindLeaf is a content part with either inline data or a fetch id.
	KindLeaf
)

func (k NodeKind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Disposition values as reported by the Content-Disposition header.
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// rootPartID is assigned to a single-part message whose source reports an
// empty part id for the top-level part.
const rootPartID = "0"

// Node is one part of a message. Nodes live in a Tree and reference each
// other by index.
type Node struct {
	Kind        NodeKind
	PartID      string
	MimeType    string
	Filename    string
	Disposition string

	// FetchID references externally stored content. It is only valid for
	// the snapshot it was read from.
	FetchID string

	// Data holds inline URL-safe base64 content when the source embeds the
	// body instead of handing out a fetch id.
	Data string

	Size     int64
	Parent   int
	Children []int
}

// Tree is an arena of message parts. The root is always at index 0.
type Tree struct {
	Nodes []Node
}

// Root returns the index of the root node, or -1 for an empty tree.
func (t *Tree) Root() int {
	if t == nil || len(t.Nodes) == 0 {
		return -1
	}
	return 0
}

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node {
	return &t.Nodes[i]
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Nodes)
}

// PartSpec describes a part as reported by a mail source, before it has
// been classified as a container or a leaf.
type PartSpec struct {
	PartID      string
	MimeType    string
	Filename    string
	Disposition string
	FetchID     string
	Data        string
	Size        int64

	// HasChildren reports whether the source listed nested parts.
	HasChildren bool
}

// TreeBuilder assembles a Tree from source parts, classifying each part
// into a container or a leaf and rejecting anything that matches neither.
type TreeBuilder struct {
	tree  Tree
	seen  map[string]bool
	built bool
}

// NewTreeBuilder creates an empty TreeBuilder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{seen: make(map[string]bool)}
}

// Add classifies spec and appends it under parent (-1 for the root).
// It returns the new node index and its kind; callers descend into the
// source's nested parts only when the kind is KindContainer.
func (b *TreeBuilder) Add(parent int, spec PartSpec) (int, NodeKind, error) {
	if b.built {
		return -1, KindLeaf, fmt.Errorf("tree builder already finished")
	}

	if parent < 0 {
		if len(b.tree.Nodes) > 0 {
			return -1, KindLeaf, &StructureError{PartID: spec.PartID, Reason: "message has more than one root part"}
		}
	} else {
		if parent >= len(b.tree.Nodes) {
			return -1, KindLeaf, &StructureError{PartID: spec.PartID, Reason: fmt.Sprintf("parent index %d out of range", parent)}
		}
		if b.tree.Nodes[parent].Kind != KindContainer {
			return -1, KindLeaf, &StructureError{PartID: spec.PartID, Reason: "parent part is not a container"}
		}
	}

	kind, err := classify(spec)
	if err != nil {
		return -1, KindLeaf, err
	}

	partID := spec.PartID
	if partID == "" {
		switch {
		case parent >= 0:
			return -1, KindLeaf, &StructureError{Reason: fmt.Sprintf("nested %s part has no part id", spec.MimeType)}
		case kind == KindLeaf:
			partID = rootPartID
		}
	}
	if partID != "" {
		if b.seen[partID] {
			return -1, KindLeaf, &StructureError{PartID: partID, Reason: "duplicate part id"}
		}
		b.seen[partID] = true
	}

	node := Node{
		Kind:        kind,
		PartID:      partID,
		MimeType:    strings.ToLower(spec.MimeType),
		Filename:    spec.Filename,
		Disposition: strings.ToLower(spec.Disposition),
		Size:        spec.Size,
		Parent:      parent,
	}
	if kind == KindLeaf {
		node.FetchID = spec.FetchID
		node.Data = spec.Data
	}

	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, node)
	if parent >= 0 {
		b.tree.Nodes[parent].Children = append(b.tree.Nodes[parent].Children, idx)
	}
	return idx, kind, nil
}

// Build returns the assembled tree. A tree without any part is a
// StructureError.
func (b *TreeBuilder) Build() (*Tree, error) {
	if len(b.tree.Nodes) == 0 {
		return nil, &StructureError{Reason: "message has no parts"}
	}
	b.built = true
	return &b.tree, nil
}

// classify maps a source part onto the closed set of node kinds.
func classify(spec PartSpec) (NodeKind, error) {
	mimeType := strings.ToLower(strings.TrimSpace(spec.MimeType))
	switch {
	case mimeType == "":
		return KindLeaf, &StructureError{PartID: spec.PartID, Reason: "part has no mime type"}

	case IsContainerType(mimeType):
		if spec.FetchID != "" || spec.Data != "" {
			return KindLeaf, &StructureError{PartID: spec.PartID, Reason: mimeType + " part carries its own body"}
		}
		return KindContainer, nil

	case strings.HasPrefix(mimeType, "message/") && spec.HasChildren && spec.FetchID == "" && spec.Data == "":
		// Encapsulated message whose content is only reachable through
		// its nested parts.
		return KindContainer, nil

	case strings.HasPrefix(mimeType, "message/"):
		// Encapsulated message with a body of its own is transferred as
		// one file; its nested parts are not descended into.
		return KindLeaf, nil

	case spec.HasChildren:
		return KindLeaf, &StructureError{PartID: spec.PartID, Reason: mimeType + " part has nested parts"}

	default:
		return KindLeaf, nil
	}
}

// IsContainerType reports whether mimeType denotes a multipart container.
// The subtype carries no meaning for extraction.
func IsContainerType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "multipart/")
}
