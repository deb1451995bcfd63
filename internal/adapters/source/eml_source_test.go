package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const plainEML = "From: Helpdesk CDC <helpdesk.cdc@vit.ac.in>\r\n" +
	"To: student@vitstudent.ac.in\r\n" +
	"Subject: =?UTF-8?Q?Interview_schedule_=E2=80=93_Nvidia?=\r\n" +
	"Message-Id: <abc123@vit.ac.in>\r\n" +
	"\r\n" +
	"Dear students,\r\n\r\n  The interview   is tomorrow.\r\n"

const multipartEML = "From: placement@vit.ac.in\r\n" +
	"Subject: Registration deadline\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Register before Friday.\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>Register before Friday.</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"\r\n" +
	"%PDF-1.4\r\n" +
	"--outer--\r\n"

func TestParseEML_Plain(t *testing.T) {
	msg, err := ParseEML(strings.NewReader(plainEML), "fallback")
	require.NoError(t, err)

	assert.Equal(t, "abc123@vit.ac.in", msg.ID)
	assert.Equal(t, "Interview schedule – Nvidia", msg.Subject)
	assert.Equal(t, "Helpdesk CDC <helpdesk.cdc@vit.ac.in>", msg.From)
	assert.Equal(t, "student@vitstudent.ac.in", msg.To)
	assert.Equal(t, "Dear students, The interview is tomorrow.", msg.Snippet)
}

func TestParseEML_NestedMultipart(t *testing.T) {
	msg, err := ParseEML(strings.NewReader(multipartEML), "m2")
	require.NoError(t, err)

	assert.Equal(t, "m2", msg.ID)
	assert.Equal(t, "Register before Friday.", msg.Snippet)
}

func TestParseEML_SnippetIsTruncated(t *testing.T) {
	raw := "Subject: long\r\n\r\n" + strings.Repeat("word ", 100)

	msg, err := ParseEML(strings.NewReader(raw), "m3")
	require.NoError(t, err)
	assert.Len(t, []rune(msg.Snippet), SnippetLength)
}

func TestParseEML_NoID(t *testing.T) {
	_, err := ParseEML(strings.NewReader("Subject: x\r\n\r\nbody"), "")
	assert.ErrorContains(t, err, "no id")
}

func TestMaildirSource_FetchUnread(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.eml"), []byte(plainEML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02.eml"), []byte(multipartEML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03.eml"), []byte("not a message"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(plainEML), 0o644))

	src := NewMaildirSource(dir, zap.NewNop())

	msgs, err := src.FetchUnread(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "abc123@vit.ac.in", msgs[0].ID)
	assert.Equal(t, "02", msgs[1].ID)

	msgs, err = src.FetchUnread(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
