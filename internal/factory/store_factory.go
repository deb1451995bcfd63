package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/filestore"
	"github.com/mikey/placement-triage/internal/adapters/sqlstore"
	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
)

// StoreFactory creates record and profile stores based on configuration
type StoreFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers *Closers
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger, closers *Closers) *StoreFactory {
	return &StoreFactory{
		cfg:     cfg,
		logger:  logger,
		closers: closers,
	}
}

// CreateStores returns the record store and, for SQL backends, the profile
// store. The file backend has no profile store and returns nil for it.
func (f *StoreFactory) CreateStores(ctx context.Context) (core.RecordStore, core.ProfileStore, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "file":
		store, err := filestore.New(storeCfg.Dir, f.logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "sqlite", "mysql", "postgres":
		dialect, dsn := sqlTarget(storeCfg.Type, storeCfg.SQLitePath, storeCfg.MySQLDSN, storeCfg.PostgresDSN)
		store, err := sqlstore.Open(ctx, dialect, dsn, f.logger)
		if err != nil {
			return nil, nil, err
		}
		f.closers.Add(store)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
