package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/factory"
	"github.com/mikey/placement-triage/internal/logging"
)

// CLIFlags contains the command line flags shared by the CLI commands
type CLIFlags struct {
	// ConfigFile switches to file-backed configuration and caching
	ConfigFile string
	// ClassificationFile overrides classification.file
	ClassificationFile string
	UserID             string

	// LLM provider flags
	Provider     string
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string
	NoLLM        bool
	Force        bool

	Verbose bool
	JSONLog bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(ctx context.Context, flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags and context
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		return createConfigFromFlags(flags, logger)
	}); err != nil {
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

	// Register stores, used by prune and profile commands
	if err := container.Provide(func(ctx context.Context, f *factory.StoreFactory) (core.RecordStore, core.ProfileStore, error) {
		return f.CreateStores(ctx)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags loads the config file when one is given and applies
// the explicitly set flags on top. Without a file verdicts are cached in memory.
func createConfigFromFlags(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if flags.ConfigFile != "" {
		var err error
		cfg, err = config.NewWithFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = config.NewDefault()
		cfg.Set("cache.type", "memory")
	}

	if flags.ClassificationFile != "" {
		cfg.Set("classification.file", flags.ClassificationFile)
	}
	if flags.UserID != "" {
		cfg.Set("user_id", flags.UserID)
	}
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.Model != "" {
		switch cfg.GetLLM().Provider {
		case "gemini":
			cfg.Set("gemini.model_name", flags.Model)
		case "openai":
			cfg.Set("openai.model_name", flags.Model)
		case "bedrock":
			cfg.Set("bedrock.model_id", flags.Model)
		}
	}
	if flags.GeminiAPIKey != "" {
		cfg.Set("gemini.api_key", flags.GeminiAPIKey)
	}
	if flags.OpenAIAPIKey != "" {
		cfg.Set("openai.api_key", flags.OpenAIAPIKey)
	}
	if flags.NoLLM {
		cfg.Set("llm.enabled", false)
	}
	if flags.Force {
		cfg.Set("triage.force", true)
	}

	return cfg, nil
}
