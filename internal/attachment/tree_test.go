package attachment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// part is a nested test fixture converted into a Tree through TreeBuilder,
// the same way mail sources build trees.
type part struct {
	id          string
	mime        string
	filename    string
	disposition string
	fetchID     string
	data        string
	size        int64
	parts       []part
}

func buildTree(t *testing.T, root part) *Tree {
	t.Helper()
	tree, err := tryBuildTree(root)
	require.NoError(t, err)
	return tree
}

func tryBuildTree(root part) (*Tree, error) {
	b := NewTreeBuilder()
	type pending struct {
		parent int
		p      part
	}
	queue := []pending{{parent: -1, p: root}}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		idx, kind, err := b.Add(next.parent, PartSpec{
			PartID:      next.p.id,
			MimeType:    next.p.mime,
			Filename:    next.p.filename,
			Disposition: next.p.disposition,
			FetchID:     next.p.fetchID,
			Data:        next.p.data,
			Size:        next.p.size,
			HasChildren: len(next.p.parts) > 0,
		})
		if err != nil {
			return nil, err
		}
		if kind != KindContainer {
			continue
		}
		for _, child := range next.p.parts {
			queue = append(queue, pending{parent: idx, p: child})
		}
	}
	return b.Build()
}

func TestTreeBuilder_Classification(t *testing.T) {
	tree := buildTree(t, part{
		id:   "",
		mime: "multipart/mixed",
		parts: []part{
			{id: "0", mime: "text/plain", data: "aGk="},
			{id: "1", mime: "message/rfc822", parts: []part{
				{id: "1.0", mime: "application/pdf", filename: "inner.pdf", fetchID: "f-inner"},
			}},
			{id: "2", mime: "message/rfc822", filename: "fwd.eml", fetchID: "f-eml", parts: []part{
				{id: "2.0", mime: "text/plain"},
			}},
		},
	})

	require.Equal(t, 5, tree.Len())
	assert.Equal(t, KindContainer, tree.Node(0).Kind)
	assert.Equal(t, KindLeaf, tree.Node(1).Kind)
	assert.Equal(t, KindContainer, tree.Node(2).Kind, "message/rfc822 without a body is a container")
	assert.Equal(t, KindLeaf, tree.Node(3).Kind, "message/rfc822 with a body is a leaf")
	assert.Equal(t, "1.0", tree.Node(4).PartID)
	assert.Equal(t, []int{1, 2, 3}, tree.Node(0).Children)
	assert.Equal(t, 2, tree.Node(4).Parent)
}

func TestTreeBuilder_RootLeafGetsPartID(t *testing.T) {
	tree := buildTree(t, part{mime: "application/pdf", filename: "only.pdf", fetchID: "f1"})
	assert.Equal(t, "0", tree.Node(0).PartID)
}

func TestTreeBuilder_Rejects(t *testing.T) {
	tests := []struct {
		name string
		root part
	}{
		{
			name: "missing mime type",
			root: part{id: "0"},
		},
		{
			name: "multipart carrying a fetch id",
			root: part{id: "0", mime: "multipart/mixed", fetchID: "f1"},
		},
		{
			name: "leaf with nested parts",
			root: part{id: "0", mime: "application/pdf", parts: []part{{id: "0.0", mime: "text/plain"}}},
		},
		{
			name: "duplicate part ids",
			root: part{id: "0", mime: "multipart/mixed", parts: []part{
				{id: "0.1", mime: "image/png", fetchID: "a"},
				{id: "0.1", mime: "image/png", fetchID: "b"},
			}},
		},
		{
			name: "nested part without part id",
			root: part{id: "0", mime: "multipart/mixed", parts: []part{{mime: "image/png", fetchID: "a"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tryBuildTree(tt.root)
			require.Error(t, err)
			var structErr *StructureError
			assert.True(t, errors.As(err, &structErr), "expected StructureError, got %T", err)
		})
	}
}

func TestTreeBuilder_EmptyTree(t *testing.T) {
	_, err := NewTreeBuilder().Build()
	var structErr *StructureError
	assert.ErrorAs(t, err, &structErr)
}

func TestTreeBuilder_SecondRoot(t *testing.T) {
	b := NewTreeBuilder()
	_, _, err := b.Add(-1, PartSpec{PartID: "0", MimeType: "multipart/mixed"})
	require.NoError(t, err)
	_, _, err = b.Add(-1, PartSpec{PartID: "1", MimeType: "multipart/mixed"})
	var structErr *StructureError
	assert.ErrorAs(t, err, &structErr)
}

func TestTreeBuilder_ParentMustBeContainer(t *testing.T) {
	b := NewTreeBuilder()
	leaf, kind, err := b.Add(-1, PartSpec{PartID: "0", MimeType: "image/png", FetchID: "f"})
	require.NoError(t, err)
	require.Equal(t, KindLeaf, kind)

	_, _, err = b.Add(leaf, PartSpec{PartID: "0.1", MimeType: "image/png", FetchID: "g"})
	var structErr *StructureError
	assert.ErrorAs(t, err, &structErr)
}

func TestNodeKindString(t *testing.T) {
	assert.Equal(t, "container", KindContainer.String())
	assert.Equal(t, "leaf", KindLeaf.String())
	assert.Equal(t, "unknown", NodeKind(7).String())
}
