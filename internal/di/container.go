package di

import (
	"context"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/classifier"
	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/factory"
	"github.com/mikey/placement-triage/internal/logging"
	"github.com/mikey/placement-triage/internal/runner"
	"github.com/mikey/placement-triage/internal/telemetry"
	"github.com/mikey/placement-triage/internal/triage"
	"github.com/mikey/placement-triage/internal/utils"
)

// BuildContainer creates and configures the container for batch runs.
// configFile may be empty to search the default locations.
func BuildContainer(ctx context.Context, configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register context and configuration
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewWithFile(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register verdict cache and debug store
	if err := container.Provide(func(ctx context.Context, f *factory.CacheFactory) (core.VerdictCache, core.DebugStore, error) {
		return f.CreateCache(ctx)
	}); err != nil {
		return nil, err
	}

	// Register message source and stores
	if err := container.Provide(func(ctx context.Context, f *factory.SourceFactory) (core.MessageSource, error) {
		return f.CreateSource(ctx)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(ctx context.Context, f *factory.StoreFactory) (core.RecordStore, core.ProfileStore, error) {
		return f.CreateStores(ctx)
	}); err != nil {
		return nil, err
	}

	// Register printer and batch runner
	if err := container.Provide(func(cfg *config.Config) *runner.Printer {
		return runner.NewPrinter(os.Stdout, cfg.GetRunner().Verbose)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		source core.MessageSource,
		store core.RecordStore,
		profiles core.ProfileStore,
		service *triage.Service,
		base core.ClassificationConfig,
		cfg *config.Config,
		printer *runner.Printer,
		metrics *telemetry.Metrics,
		logger *zap.Logger,
	) *runner.BatchRunner {
		runnerCfg := cfg.GetRunner()
		return runner.NewBatchRunner(source, store, profiles, service, base, runner.Config{
			UserID:     runnerCfg.UserID,
			MaxResults: cfg.GetSource().MaxResults,
			Workers:    runnerCfg.Workers,
		}, printer, metrics, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers the pieces shared by the batch and CLI containers.
// The caller provides context, config, logger and the verdict cache.
func provideCommon(container *dig.Container) error {
	providers := []interface{}{
		factory.NewClosers,
		telemetry.NewMetrics,

		// Register factories
		factory.NewTextProcessorFactory,
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewStoreFactory,
		factory.NewSourceFactory,

		// Register text processor
		func(f *factory.TextProcessorFactory) *utils.TextProcessor {
			return f.CreateTextProcessor()
		},

		// Register LLM client, nil when disabled
		func(ctx context.Context, f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient(ctx)
		},

		// Register classification config
		func(cfg *config.Config, logger *zap.Logger) (core.ClassificationConfig, error) {
			return config.LoadClassification(cfg.GetString("classification.file"), logger)
		},

		// Register verdict classifier
		func(
			llm core.LLMClient,
			cache core.VerdictCache,
			debug core.DebugStore,
			text *utils.TextProcessor,
			metrics *telemetry.Metrics,
			cfg *config.Config,
			logger *zap.Logger,
		) triage.VerdictClassifier {
			if llm == nil {
				return nil
			}
			llmCfg := cfg.GetLLM()
			return classifier.New(llm, cache, debug, text, metrics, classifier.Config{
				MaxTokens:       llmCfg.MaxTokens,
				RepairMaxTokens: llmCfg.RepairMaxTokens,
				SubjectLimit:    llmCfg.SubjectLimit,
				SnippetLimit:    llmCfg.SnippetLimit,
			}, logger)
		},

		// Register triage service
		func(cls triage.VerdictClassifier, cfg *config.Config, metrics *telemetry.Metrics, logger *zap.Logger) *triage.Service {
			t := cfg.GetTriage()
			return triage.NewService(cls, triage.Config{
				AmbiguousLow:  t.AmbiguousLow,
				AmbiguousHigh: t.AmbiguousHigh,
				Force:         t.Force,
			}, metrics, logger)
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}
