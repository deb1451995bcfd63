package factory

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/bedrock"
	"github.com/mikey/placement-triage/internal/adapters/gemini"
	"github.com/mikey/placement-triage/internal/adapters/openai"
	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/resilience"
	"github.com/mikey/placement-triage/internal/telemetry"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *telemetry.Metrics
	closers *Closers
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics, closers *Closers) *LLMFactory {
	return &LLMFactory{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		closers: closers,
	}
}

// CreateLLMClient creates the configured provider client, wrapped in a
// circuit breaker when enabled. It returns nil when the LLM is disabled.
func (f *LLMFactory) CreateLLMClient(ctx context.Context) (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()
	if !llmConfig.Enabled {
		f.logger.Info("LLM disabled, classifying with rules only")
		return nil, nil
	}

	var (
		client core.LLMClient
		err    error
	)
	switch llmConfig.Provider {
	case "gemini":
		client, err = gemini.NewFactory(f.cfg, f.logger).CreateLLMClient(ctx)
	case "openai":
		client, err = openai.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "bedrock":
		client, err = bedrock.NewFactory(f.cfg, f.logger).CreateLLMClient(ctx)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, err
	}
	if closer, ok := client.(io.Closer); ok && f.closers != nil {
		f.closers.Add(closer)
	}

	breakerCfg, err := f.cfg.GetBreaker()
	if err != nil {
		return nil, err
	}
	if !breakerCfg.Enabled {
		return client, nil
	}

	f.logger.Info("LLM client created",
		zap.String("provider", llmConfig.Provider),
		zap.Uint32("breaker_failures", breakerCfg.ConsecutiveFailures))

	return resilience.NewBreakerClient(client, BreakerSettings("llm", breakerCfg), f.metrics, f.logger), nil
}

// BreakerSettings converts the configured breaker into resilience settings
func BreakerSettings(name string, c config.BreakerConfig) resilience.BreakerSettings {
	s := resilience.DefaultBreakerSettings(name)
	if c.MaxRequests > 0 {
		s.MaxRequests = c.MaxRequests
	}
	if c.Interval > 0 {
		s.Interval = c.Interval
	}
	if c.Timeout > 0 {
		s.Timeout = c.Timeout
	}
	if c.ConsecutiveFailures > 0 {
		s.ConsecutiveFailures = c.ConsecutiveFailures
	}
	return s
}
