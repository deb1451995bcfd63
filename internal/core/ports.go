package core

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by a VerdictCache when no verdict is stored for an id
var ErrCacheMiss = errors.New("verdict not cached")

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a prompt and returns the raw text reply
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// VerdictCache stores validated (or fallback) verdicts keyed by message id
type VerdictCache interface {
	// Get retrieves a cached verdict, returning ErrCacheMiss when absent
	Get(ctx context.Context, messageID string) (*LLMVerdict, error)

	// Set stores a verdict
	Set(ctx context.Context, messageID string, verdict *LLMVerdict) error
}

// DebugStore records raw model replies for audit
type DebugStore interface {
	SaveRaw(ctx context.Context, entry *DebugEntry) error
}

// MessageSource yields unread messages to classify
type MessageSource interface {
	FetchUnread(ctx context.Context, max int) ([]*Message, error)
}

// RecordStore persists classified records and the processed-id set
type RecordStore interface {
	// ProcessedIDs returns the ids already classified for the user
	ProcessedIDs(ctx context.Context, userID string) (map[string]struct{}, error)

	// SaveRecord stores the record and marks its id processed
	SaveRecord(ctx context.Context, userID string, record *ClassifiedRecord) error

	// DeleteOlderThan removes records received more than days ago
	DeleteOlderThan(ctx context.Context, userID string, days int) (int64, error)
}

// ProfileStore exposes the per-user profile managed outside this service
type ProfileStore interface {
	Companies(ctx context.Context, userID string) ([]string, error)
	Keywords(ctx context.Context, userID string) ([]ProfileKeyword, error)
}
