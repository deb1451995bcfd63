package factory

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/cache"
	"github.com/mikey/placement-triage/internal/adapters/sqlstore"
	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
)

// CacheFactory creates verdict caches based on configuration
type CacheFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers *Closers
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger, closers *Closers) *CacheFactory {
	return &CacheFactory{
		cfg:     cfg,
		logger:  logger,
		closers: closers,
	}
}

// CreateCache creates the verdict cache and the debug store that keeps raw
// model replies next to it.
func (f *CacheFactory) CreateCache(ctx context.Context) (core.VerdictCache, core.DebugStore, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "memory":
		c := cache.NewMemoryCache(f.logger)
		return c, c, nil
	case "file":
		c, err := cache.NewFileCache(cacheCfg.Dir, f.logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cacheCfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c := cache.NewRedisCache(client, cacheCfg.RedisPrefix, f.logger)
		f.closers.Add(c)
		return c, c, nil
	case "sqlite", "mysql", "postgres":
		dialect, dsn := sqlTarget(cacheCfg.Type, cacheCfg.SQLitePath, cacheCfg.MySQLDSN, cacheCfg.PostgresDSN)
		store, err := sqlstore.Open(ctx, dialect, dsn, f.logger)
		if err != nil {
			return nil, nil, err
		}
		f.closers.Add(store)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// sqlTarget maps a configured backend name to its driver and DSN
func sqlTarget(kind, sqlitePath, mysqlDSN, postgresDSN string) (string, string) {
	switch kind {
	case "mysql":
		return sqlstore.DialectMySQL, mysqlDSN
	case "postgres":
		return sqlstore.DialectPostgres, postgresDSN
	default:
		return sqlstore.DialectSQLite, sqlitePath
	}
}
