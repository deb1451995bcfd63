// Package source provides the mail sources a batch reads unread messages from.
package source

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
)

// FileSource reads messages from a JSON array on disk. Every message in the
// file is treated as unread.
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a new file source
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{path: path, logger: logger}
}

// FetchUnread returns up to max messages from the file
func (s *FileSource) FetchUnread(ctx context.Context, max int) ([]*core.Message, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read message file: %w", err)
	}

	var msgs []*core.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode message file: %w", err)
	}

	kept := msgs[:0]
	for _, m := range msgs {
		if m == nil || m.ID == "" {
			s.logger.Warn("Skipping message without id", zap.String("path", s.path))
			continue
		}
		kept = append(kept, m)
	}
	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}
	return kept, nil
}
