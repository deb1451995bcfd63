package cache

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
)

// DefaultRedisPrefix namespaces the keys written by RedisCache
const DefaultRedisPrefix = "placement-triage"

// RedisCache is a Redis implementation of VerdictCache and DebugStore.
// Verdicts are stored without expiry; raw replies are appended to a list
// per message.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(client *redis.Client, prefix string, logger *zap.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) verdictKey(messageID string) string {
	return fmt.Sprintf("%s:verdict:%s", c.prefix, messageID)
}

func (c *RedisCache) debugKey(messageID string) string {
	return fmt.Sprintf("%s:debug:%s", c.prefix, messageID)
}

// Get retrieves a cached verdict
func (c *RedisCache) Get(ctx context.Context, messageID string) (*core.LLMVerdict, error) {
	data, err := c.client.Get(ctx, c.verdictKey(messageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verdict from redis: %w", err)
	}

	var verdict core.LLMVerdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		c.logger.Warn("Ignoring corrupt cached verdict", zap.String("id", messageID), zap.Error(err))
		return nil, core.ErrCacheMiss
	}
	return &verdict, nil
}

// Set stores a verdict
func (c *RedisCache) Set(ctx context.Context, messageID string, verdict *core.LLMVerdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	return c.client.Set(ctx, c.verdictKey(messageID), data, 0).Err()
}

// SaveRaw appends the raw reply entry to the message's debug list
func (c *RedisCache) SaveRaw(ctx context.Context, entry *core.DebugEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode debug entry: %w", err)
	}
	return c.client.RPush(ctx, c.debugKey(entry.MessageID), data).Err()
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
