package mailbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/attachdrop/internal/attachment"
)

// crlf turns a fixture written with \n line endings into wire format.
func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

const invoiceEML = `From: billing@example.com
To: jane@example.com
Subject: Invoice
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/related; boundary="inner"

--inner
Content-Type: text/html; charset=utf-8

<b>hi</b><img src="cid:logo">
--inner
Content-Type: image/png
Content-Disposition: inline
Content-ID: <logo>
Content-Transfer-Encoding: base64

iVBORw0K
--inner--

--outer
Content-Type: application/pdf; name="ignored.pdf"
Content-Disposition: attachment; filename*=UTF-8''Rechnung%20M%C3%A4rz.pdf
Content-Transfer-Encoding: base64

JVBERi0xLjQgYm9keQ==
--outer--
`

const plainEML = `From: a@example.com
Subject: Plain

just text
`

const singlePartPDF = `From: a@example.com
Subject: Scan
MIME-Version: 1.0
Content-Type: application/pdf
Content-Disposition: attachment; filename="scan.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQgYm9keQ==
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(crlf(content)), 0o600))
}

func newTestSource(t *testing.T) *Source {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "invoice.eml", invoiceEML)
	writeFixture(t, dir, "plain.eml", plainEML)
	writeFixture(t, dir, "scan.eml", singlePartPDF)

	s, err := NewSource(dir, 0)
	require.NoError(t, err)

	n := 0
	s.newToken = func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}
	return s
}

func TestSource_MessageTree(t *testing.T) {
	s := newTestSource(t)

	tree, err := s.MessageTree(context.Background(), "invoice")
	require.NoError(t, err)

	descriptors, err := attachment.Walk(tree, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"0.1", "1"}, attachment.PartIDs(descriptors))

	logo := descriptors[0]
	assert.Equal(t, "image/png", logo.MimeType)
	assert.Equal(t, "inline", logo.Disposition)
	assert.Equal(t, "", logo.Filename)

	pdf := descriptors[1]
	assert.Equal(t, "Rechnung März.pdf", pdf.Filename)
	assert.Equal(t, "application/pdf", pdf.MimeType)
	assert.Equal(t, "attachment", pdf.Disposition)
	assert.Equal(t, int64(len("%PDF-1.4 body")), pdf.Size)
}

func TestSource_SinglePartMessage(t *testing.T) {
	s := newTestSource(t)

	tree, err := s.MessageTree(context.Background(), "scan.eml")
	require.NoError(t, err)

	descriptors, err := attachment.Walk(tree, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, attachment.PartIDs(descriptors))
	assert.Equal(t, "scan.pdf", descriptors[0].Filename)
}

func TestSource_TextOnlyMessage(t *testing.T) {
	s := newTestSource(t)

	tree, err := s.MessageTree(context.Background(), "plain")
	require.NoError(t, err)

	descriptors, err := attachment.Walk(tree, 0)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestSource_ResolveAndDecode(t *testing.T) {
	s := newTestSource(t)
	resolver := attachment.NewResolver(0)
	ctx := context.Background()

	resolved, err := resolver.Resolve(ctx, s, "invoice", "1")
	require.NoError(t, err)

	data, err := attachment.Decode(resolved.Encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 body"), data)
}

func TestSource_FetchIDsRotate(t *testing.T) {
	s := newTestSource(t)
	ctx := context.Background()

	first, err := s.MessageTree(ctx, "invoice")
	require.NoError(t, err)
	firstID := first.Node(first.Len() - 1).FetchID

	_, err = s.AttachmentData(ctx, "invoice", firstID)
	require.NoError(t, err)

	second, err := s.MessageTree(ctx, "invoice")
	require.NoError(t, err)
	secondID := second.Node(second.Len() - 1).FetchID
	assert.NotEqual(t, firstID, secondID)

	_, err = s.AttachmentData(ctx, "invoice", firstID)
	assert.True(t, errors.Is(err, ErrInvalidFetchID))

	data, err := s.AttachmentData(ctx, "invoice", secondID)
	require.NoError(t, err)
	assert.Equal(t, attachment.Encode([]byte("%PDF-1.4 body")), data)
}

func TestSource_MessageErrors(t *testing.T) {
	s := newTestSource(t)
	ctx := context.Background()

	tests := []struct {
		messageID string
		wantErr   string
	}{
		{"missing", "not found"},
		{"../invoice", "invalid message id"},
		{".hidden", "invalid message id"},
		{"", "invalid message id"},
		{"archive:1", "expected <file>.mbox:<n>"},
		{"archive.mbox:0", "expected <file>.mbox:<n>"},
		{"archive.mbox:1", "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.messageID, func(t *testing.T) {
			_, err := s.MessageTree(ctx, tt.messageID)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSource_MboxMessage(t *testing.T) {
	dir := t.TempDir()
	mboxData := "From a@example.com Mon Jan  5 10:00:00 2026\n" + plainEML + "\n" +
		"From a@example.com Mon Jan  5 11:00:00 2026\n" + singlePartPDF + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive.mbox"), []byte(mboxData), 0o600))

	s, err := NewSource(dir, 0)
	require.NoError(t, err)
	ctx := context.Background()

	tree, err := s.MessageTree(ctx, "archive.mbox:2")
	require.NoError(t, err)
	descriptors, err := attachment.Walk(tree, 0)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "scan.pdf", descriptors[0].Filename)

	_, err = s.MessageTree(ctx, "archive.mbox:3")
	assert.ErrorContains(t, err, "has 2 messages")
}

func TestSource_MaxDepth(t *testing.T) {
	dir := t.TempDir()
	nested := `MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="a"

--a
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: application/pdf
Content-Disposition: attachment; filename="deep.pdf"

x
--b--
--a--
`
	writeFixture(t, dir, "nested.eml", nested)

	s, err := NewSource(dir, 1)
	require.NoError(t, err)

	_, err = s.MessageTree(context.Background(), "nested")
	var structErr *attachment.StructureError
	assert.ErrorAs(t, err, &structErr)
}

func TestNewSource_Errors(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = NewSource(file, 0)
	assert.ErrorContains(t, err, "not a directory")
}

// latin1CSV carries an 8bit ISO-8859-1 attachment; "caf\xe9" is "café".
const latin1CSV = "From: a@example.com\n" +
	"Subject: Export\n" +
	"MIME-Version: 1.0\n" +
	"Content-Type: multipart/mixed; boundary=\"b\"\n" +
	"\n" +
	"--b\n" +
	"Content-Type: text/plain; charset=iso-8859-1\n" +
	"Content-Transfer-Encoding: 8bit\n" +
	"\n" +
	"see attached\n" +
	"--b\n" +
	"Content-Type: text/csv; charset=iso-8859-1\n" +
	"Content-Disposition: attachment; filename=\"data.csv\"\n" +
	"Content-Transfer-Encoding: 8bit\n" +
	"\n" +
	"caf\xe9\n" +
	"--b--\n"

func TestSource_TextAttachmentBytesUnchanged(t *testing.T) {
	s := newTestSource(t)
	writeFixture(t, s.dir, "export.eml", latin1CSV)
	ctx := context.Background()

	resolved, err := attachment.NewResolver(0).Resolve(ctx, s, "export", "1")
	require.NoError(t, err)
	assert.Equal(t, "data.csv", resolved.Filename)

	data, err := attachment.Decode(resolved.Encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, data)
}

func TestSource_SnapshotsAreBounded(t *testing.T) {
	s := newTestSource(t)
	s.maxSnapshots = 2
	ctx := context.Background()

	fetchID := func(messageID string) string {
		t.Helper()
		tree, err := s.MessageTree(ctx, messageID)
		require.NoError(t, err)
		return tree.Node(tree.Len() - 1).FetchID
	}

	fetchID("invoice")
	scanID := fetchID("scan")

	// Re-reading invoice makes scan the least recently read message.
	invoiceID := fetchID("invoice")
	writeFixture(t, s.dir, "copy.eml", singlePartPDF)
	copyID := fetchID("copy")

	_, err := s.AttachmentData(ctx, "scan", scanID)
	assert.True(t, errors.Is(err, ErrInvalidFetchID))

	_, err = s.AttachmentData(ctx, "invoice", invoiceID)
	assert.NoError(t, err)
	_, err = s.AttachmentData(ctx, "copy", copyID)
	assert.NoError(t, err)
	assert.Len(t, s.snapshots, 2)
}
