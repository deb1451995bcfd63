package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
)

// MemoryCache is an in-memory implementation of VerdictCache and DebugStore.
// Verdicts never expire; the cache lives as long as the process.
type MemoryCache struct {
	verdicts map[string]*core.LLMVerdict
	debug    map[string][]*core.DebugEntry
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryCache{
		verdicts: make(map[string]*core.LLMVerdict),
		debug:    make(map[string][]*core.DebugEntry),
		logger:   logger,
	}
}

// Get retrieves a cached verdict
func (c *MemoryCache) Get(ctx context.Context, messageID string) (*core.LLMVerdict, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	verdict, ok := c.verdicts[messageID]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	return copyVerdict(verdict), nil
}

// Set stores a verdict
func (c *MemoryCache) Set(ctx context.Context, messageID string, verdict *core.LLMVerdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verdicts[messageID] = copyVerdict(verdict)
	c.logger.Debug("Cached verdict", zap.String("id", messageID))
	return nil
}

// SaveRaw appends a raw reply to the in-memory audit log
func (c *MemoryCache) SaveRaw(ctx context.Context, entry *core.DebugEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := *entry
	c.debug[entry.MessageID] = append(c.debug[entry.MessageID], &e)
	return nil
}

// DebugEntries returns the recorded raw replies for a message in call order
func (c *MemoryCache) DebugEntries(messageID string) []*core.DebugEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]*core.DebugEntry, len(c.debug[messageID]))
	copy(entries, c.debug[messageID])
	return entries
}

// Len returns the number of cached verdicts
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.verdicts)
}

func copyVerdict(v *core.LLMVerdict) *core.LLMVerdict {
	if v == nil {
		return nil
	}
	out := *v
	out.Companies = append([]string{}, v.Companies...)
	if v.Deadline != nil {
		d := *v.Deadline
		out.Deadline = &d
	}
	return &out
}
