package attachment

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds how deeply containers may nest before a message is
// rejected as malformed.
const DefaultMaxDepth = 50

// Descriptor is the stable, externally visible identity of an attachment.
type Descriptor struct {
	PartID      string `json:"partId"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mimeType"`
	Disposition string `json:"disposition,omitempty"`
	Size        int64  `json:"size"`
}

// IsAttachment reports whether a node carries an attachment: either it has
// a filename, or it is non-text content stored behind a fetch id (inline
// images referenced from an HTML body, for example).
func IsAttachment(n *Node) bool {
	if n.Kind != KindLeaf {
		return false
	}
	if n.Filename != "" {
		return true
	}
	return n.FetchID != "" && !strings.HasPrefix(n.MimeType, "text/")
}

// Walk returns a descriptor for every attachment in the tree in depth-first
// pre-order, which is the order the parts appear in the message. maxDepth
// values <= 0 select DefaultMaxDepth.
func Walk(tree *Tree, maxDepth int) ([]Descriptor, error) {
	indices, err := walk(tree, maxDepth)
	if err != nil {
		return nil, err
	}

	descriptors := make([]Descriptor, 0, len(indices))
	for _, i := range indices {
		descriptors = append(descriptors, describe(tree.Node(i)))
	}
	return descriptors, nil
}

// PartIDs returns the part ids of the given descriptors in order.
func PartIDs(descriptors []Descriptor) []string {
	ids := make([]string, len(descriptors))
	for i, d := range descriptors {
		ids[i] = d.PartID
	}
	return ids
}

type frame struct {
	index int
	depth int
}

// walk returns the indices of attachment nodes in pre-order. It uses an
// explicit stack so malformed input cannot exhaust the call stack.
func walk(tree *Tree, maxDepth int) ([]int, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	root := tree.Root()
	if root < 0 {
		return nil, &StructureError{Reason: "message has no parts"}
	}

	var found []int
	stack := []frame{{index: root, depth: 0}}
	visited := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > tree.Len() {
			return nil, &StructureError{Reason: "part tree contains a cycle"}
		}

		node := tree.Node(f.index)
		if f.depth > maxDepth {
			return nil, &StructureError{
				PartID: node.PartID,
				Reason: fmt.Sprintf("parts nested deeper than %d levels", maxDepth),
			}
		}

		if node.Kind == KindContainer {
			// Push in reverse so the first child is visited first.
			for c := len(node.Children) - 1; c >= 0; c-- {
				child := node.Children[c]
				if child <= 0 || child >= tree.Len() {
					return nil, &StructureError{PartID: node.PartID, Reason: fmt.Sprintf("child index %d out of range", child)}
				}
				stack = append(stack, frame{index: child, depth: f.depth + 1})
			}
			continue
		}

		if IsAttachment(node) {
			found = append(found, f.index)
		}
	}

	return found, nil
}

func describe(n *Node) Descriptor {
	disposition := n.Disposition
	if disposition == "" && n.Filename != "" {
		disposition = DispositionAttachment
	}
	return Descriptor{
		PartID:      n.PartID,
		Filename:    n.Filename,
		MimeType:    n.MimeType,
		Disposition: disposition,
		Size:        n.Size,
	}
}
