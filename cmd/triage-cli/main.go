// Package main provides a command line tool to classify and explain single
// messages and to maintain the stored records and profile.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/di"
	"github.com/mikey/placement-triage/internal/factory"
)

var flags = &di.CLIFlags{}

var rootCmd = &cobra.Command{
	Use:           "triage-cli",
	Short:         "Placement mail urgency triage",
	Long:          "triage-cli scores placement and recruitment mail with the keyword rules, optionally asks an LLM for a second opinion, and manages the stored records.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "Path to config file (enables configured cache and stores)")
	pf.StringVar(&flags.ClassificationFile, "classification", "", "Path to classification config JSON (default from config)")
	pf.StringVar(&flags.UserID, "user-id", "", "User whose records and profile are used")
	pf.StringVar(&flags.Provider, "provider", "", "LLM provider (gemini, openai, bedrock)")
	pf.StringVar(&flags.Model, "model", "", "Model name for the selected provider")
	pf.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	pf.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	pf.BoolVar(&flags.NoLLM, "no-llm", false, "Classify with the rules only")
	pf.BoolVar(&flags.Force, "force", false, "Ignore cached LLM verdicts")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// invoke builds the CLI container and calls fn with its dependencies.
// Resources opened by the factories are closed afterwards.
func invoke(ctx context.Context, fn interface{}) error {
	container, err := di.BuildCLIContainer(ctx, flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	defer func() {
		_ = container.Invoke(func(closers *factory.Closers, logger *zap.Logger) {
			if err := closers.Close(); err != nil {
				logger.Warn("Failed to close resources", zap.Error(err))
			}
			_ = logger.Sync()
		})
	}()
	return container.Invoke(fn)
}
