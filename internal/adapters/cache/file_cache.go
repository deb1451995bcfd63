package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/utils"
)

// FileCache stores one JSON document per message id in a directory. File
// names are derived from a hash of the id so arbitrary ids are safe.
type FileCache struct {
	dir    string
	logger *zap.Logger
}

// NewFileCache creates the cache directory if needed
func NewFileCache(dir string, logger *zap.Logger) (*FileCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir, logger: logger}, nil
}

func (c *FileCache) key(messageID string) string {
	sum := sha256.Sum256([]byte(messageID))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) verdictPath(messageID string) string {
	return filepath.Join(c.dir, c.key(messageID)+".json")
}

// RawPath returns where the raw reply of an attempt is written
func (c *FileCache) RawPath(messageID string, attempt core.DebugAttempt) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s.%s.raw.txt", c.key(messageID), attempt))
}

// Get retrieves a cached verdict. An unreadable or corrupt file counts as a miss.
func (c *FileCache) Get(ctx context.Context, messageID string) (*core.LLMVerdict, error) {
	data, err := os.ReadFile(c.verdictPath(messageID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var verdict core.LLMVerdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		c.logger.Warn("Ignoring corrupt cache file",
			zap.String("id", messageID),
			zap.Error(err))
		return nil, core.ErrCacheMiss
	}
	return &verdict, nil
}

// Set stores a verdict
func (c *FileCache) Set(ctx context.Context, messageID string, verdict *core.LLMVerdict) error {
	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	return utils.WriteFileAtomic(c.verdictPath(messageID), data)
}

// SaveRaw writes the raw reply, or the transport error text when there is
// no reply, next to the verdict file.
func (c *FileCache) SaveRaw(ctx context.Context, entry *core.DebugEntry) error {
	body := entry.Raw
	if body == "" && entry.Error != "" {
		body = entry.Error
	}
	return utils.WriteFileAtomic(c.RawPath(entry.MessageID, entry.Attempt), []byte(body))
}
