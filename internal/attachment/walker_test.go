package attachment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk_FlatMessage(t *testing.T) {
	tree := buildTree(t, part{
		id:   "0",
		mime: "multipart/mixed",
		parts: []part{
			{id: "0.0", mime: "text/plain", data: "aGVsbG8="},
			{id: "0.1", mime: "application/pdf", filename: "report.pdf", disposition: "attachment", fetchID: "ANGjdJ8", size: 2048},
		},
	})

	got, err := Walk(tree, 0)
	require.NoError(t, err)
	assert.Equal(t, []Descriptor{{
		PartID:      "0.1",
		Filename:    "report.pdf",
		MimeType:    "application/pdf",
		Disposition: "attachment",
		Size:        2048,
	}}, got)
}

func TestWalk_InlineImageInRelated(t *testing.T) {
	tree := buildTree(t, part{
		id:   "0",
		mime: "multipart/mixed",
		parts: []part{
			{id: "0.1", mime: "multipart/related", parts: []part{
				{id: "0.1.0", mime: "text/html", fetchID: "html-body"},
				{id: "0.1.1", mime: "image/png", disposition: "inline", fetchID: "img-1", size: 512},
			}},
		},
	})

	got, err := Walk(tree, DefaultMaxDepth)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0.1.1", got[0].PartID)
	assert.Equal(t, "inline", got[0].Disposition)
	assert.Equal(t, "", got[0].Filename)
}

func TestWalk_SubtypeIndependent(t *testing.T) {
	subtypes := []string{"mixed", "alternative", "related", "signed", "report", "x-vendor-custom"}

	for _, outer := range subtypes {
		for _, inner := range subtypes {
			t.Run(outer+"/"+inner, func(t *testing.T) {
				tree := buildTree(t, part{
					id:   "0",
					mime: "multipart/" + outer,
					parts: []part{
						{id: "0.0", mime: "text/plain", data: "eA=="},
						{id: "0.1", mime: "multipart/" + inner, parts: []part{
							{id: "0.1.0", mime: "application/zip", filename: "a.zip", fetchID: "f1"},
							{id: "0.1.1", mime: "multipart/" + outer, parts: []part{
								{id: "0.1.1.0", mime: "image/jpeg", fetchID: "f2"},
							}},
						}},
						{id: "0.2", mime: "text/csv", filename: "b.csv", fetchID: "f3"},
					},
				})

				got, err := Walk(tree, DefaultMaxDepth)
				require.NoError(t, err)
				assert.Equal(t, []string{"0.1.0", "0.1.1.0", "0.2"}, PartIDs(got))
			})
		}
	}
}

func TestWalk_PreOrderMatchesDocumentOrder(t *testing.T) {
	tree := buildTree(t, part{
		id:   "0",
		mime: "multipart/mixed",
		parts: []part{
			{id: "0.0", mime: "multipart/alternative", parts: []part{
				{id: "0.0.0", mime: "image/gif", fetchID: "a"},
				{id: "0.0.1", mime: "multipart/related", parts: []part{
					{id: "0.0.1.0", mime: "image/png", fetchID: "b"},
				}},
			}},
			{id: "0.1", mime: "application/pdf", filename: "c.pdf", fetchID: "c"},
			{id: "0.2", mime: "multipart/mixed", parts: []part{
				{id: "0.2.0", mime: "audio/mpeg", filename: "d.mp3", fetchID: "d"},
			}},
		},
	})

	first, err := Walk(tree, 0)
	require.NoError(t, err)
	second, err := Walk(tree, 0)
	require.NoError(t, err)

	want := []string{"0.0.0", "0.0.1.0", "0.1", "0.2.0"}
	assert.Equal(t, want, PartIDs(first))
	assert.Equal(t, first, second)
}

func TestWalk_EmptyContainer(t *testing.T) {
	tree := buildTree(t, part{
		id:   "0",
		mime: "multipart/mixed",
		parts: []part{
			{id: "0.0", mime: "multipart/alternative", parts: []part{
				{id: "0.0.0", mime: "text/plain", data: "eA=="},
				{id: "0.0.1", mime: "text/html", fetchID: "html"},
			}},
			{id: "0.1", mime: "multipart/related"},
		},
	})

	got, err := Walk(tree, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// nestedChain returns a message whose only attachment sits below depth
// nested containers.
func nestedChain(depth int) part {
	leaf := part{mime: "application/octet-stream", filename: "deep.bin", fetchID: "deep"}
	ids := make([]string, depth+1)
	ids[0] = "0"
	for i := 1; i <= depth; i++ {
		ids[i] = fmt.Sprintf("%s.0", ids[i-1])
	}
	leaf.id = ids[depth]

	current := leaf
	for i := depth - 1; i >= 0; i-- {
		current = part{id: ids[i], mime: "multipart/mixed", parts: []part{current}}
	}
	return current
}

func TestWalk_DepthBound(t *testing.T) {
	tests := []struct {
		name     string
		depth    int
		maxDepth int
		wantErr  bool
	}{
		{name: "shallow", depth: 3, maxDepth: DefaultMaxDepth},
		{name: "exactly at bound", depth: DefaultMaxDepth, maxDepth: DefaultMaxDepth},
		{name: "one past bound", depth: DefaultMaxDepth + 1, maxDepth: DefaultMaxDepth, wantErr: true},
		{name: "far past bound", depth: 500, maxDepth: DefaultMaxDepth, wantErr: true},
		{name: "custom bound", depth: 6, maxDepth: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t, nestedChain(tt.depth))
			got, err := Walk(tree, tt.maxDepth)
			if tt.wantErr {
				var structErr *StructureError
				require.ErrorAs(t, err, &structErr)
				assert.Contains(t, structErr.Error(), "nested deeper")
				return
			}
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "deep.bin", got[0].Filename)
		})
	}
}

func TestWalk_EmptyTree(t *testing.T) {
	_, err := Walk(&Tree{}, 0)
	var structErr *StructureError
	assert.ErrorAs(t, err, &structErr)
}

func TestIsAttachment(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want bool
	}{
		{name: "filename", node: Node{Kind: KindLeaf, MimeType: "text/plain", Filename: "notes.txt"}, want: true},
		{name: "inline image", node: Node{Kind: KindLeaf, MimeType: "image/png", FetchID: "x"}, want: true},
		{name: "text body behind fetch id", node: Node{Kind: KindLeaf, MimeType: "text/html", FetchID: "x"}, want: false},
		{name: "inline data without fetch id", node: Node{Kind: KindLeaf, MimeType: "image/png", Data: "eA=="}, want: false},
		{name: "container", node: Node{Kind: KindContainer, MimeType: "multipart/mixed", Filename: "x"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAttachment(&tt.node))
		})
	}
}
