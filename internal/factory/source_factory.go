package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/source"
	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/telemetry"
)

// SourceFactory creates message sources based on configuration
type SourceFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) *SourceFactory {
	return &SourceFactory{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateSource creates the configured message source
func (f *SourceFactory) CreateSource(ctx context.Context) (core.MessageSource, error) {
	sourceCfg := f.cfg.GetSource()

	switch sourceCfg.Type {
	case "file":
		return source.NewFileSource(sourceCfg.File, f.logger), nil
	case "maildir":
		return source.NewMaildirSource(sourceCfg.Dir, f.logger), nil
	case "gmail":
		breakerCfg, err := f.cfg.GetBreaker()
		if err != nil {
			return nil, err
		}
		return source.NewGmailSource(ctx, sourceCfg.CredentialsFile, sourceCfg.Query,
			BreakerSettings("gmail", breakerCfg), f.metrics, f.logger)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceCfg.Type)
	}
}
