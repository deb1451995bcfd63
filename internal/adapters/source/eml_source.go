package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
)

// SnippetLength is the number of runes kept from a message body
const SnippetLength = 200

// ParseError reports a message that is not valid RFC 5322 or lacks an id
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse message: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MaildirSource reads raw RFC 5322 messages from *.eml files in a directory.
// Files are returned in name order and every file is treated as unread.
type MaildirSource struct {
	dir    string
	logger *zap.Logger
}

// NewMaildirSource creates a new maildir source
func NewMaildirSource(dir string, logger *zap.Logger) *MaildirSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaildirSource{dir: dir, logger: logger}
}

// FetchUnread parses up to max messages. Files that fail to parse are skipped.
func (s *MaildirSource) FetchUnread(ctx context.Context, max int) ([]*core.Message, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.eml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list mail directory: %w", err)
	}
	sort.Strings(paths)

	var msgs []*core.Message
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if max > 0 && len(msgs) >= max {
			break
		}

		msg, err := ParseEMLFile(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable message", zap.String("path", path), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// ParseEMLFile parses one .eml file. The file name without extension is the
// id when the message has no Message-Id header.
func ParseEMLFile(path string) (*core.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseEML(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// ParseEML reads a raw message and keeps the headers and a plain-text snippet
func ParseEML(r io.Reader, fallbackID string) (*core.Message, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	id := strings.Trim(strings.TrimSpace(m.Header.Get("Message-Id")), "<>")
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return nil, &ParseError{Err: errors.New("message has no id")}
	}

	body, err := extractText(m.Header.Get("Content-Type"), m.Body)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return &core.Message{
		ID:      id,
		Subject: decodeHeader(m.Header.Get("Subject")),
		From:    decodeHeader(m.Header.Get("From")),
		To:      decodeHeader(m.Header.Get("To")),
		Snippet: snippet(body),
	}, nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value on failure
func decodeHeader(value string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// extractText returns the text/plain content of a body. Multipart bodies
// contribute their text/plain parts, recursing into nested multiparts.
func extractText(contentType string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var text bytes.Buffer
	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// keep what was read before a malformed part
			if text.Len() > 0 {
				break
			}
			return "", err
		}

		partType := strings.ToLower(part.Header.Get("Content-Type"))
		switch {
		case strings.HasPrefix(partType, "multipart/"):
			nested, err := extractText(part.Header.Get("Content-Type"), part)
			if err == nil && nested != "" {
				text.WriteString(nested)
				text.WriteString("\n")
			}
		case partType == "" || strings.HasPrefix(partType, "text/plain"):
			data, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			text.Write(data)
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func snippet(body string) string {
	collapsed := strings.Join(strings.Fields(body), " ")
	runes := []rune(collapsed)
	if len(runes) > SnippetLength {
		return string(runes[:SnippetLength])
	}
	return collapsed
}
