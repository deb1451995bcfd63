package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/di"
	"github.com/mikey/placement-triage/internal/factory"
	"github.com/mikey/placement-triage/internal/runner"
	"github.com/mikey/placement-triage/internal/telemetry"
)

var configFile = flag.String("config", "", "Path to config file (searches the default locations if empty)")

func main() {
	flag.Parse()

	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run processes one batch of unread mail and gets all dependencies injected
func run(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	batch *runner.BatchRunner,
	metrics *telemetry.Metrics,
	closers *factory.Closers,
) error {
	defer logger.Sync()
	defer func() {
		if err := closers.Close(); err != nil {
			logger.Error("Failed to close resources", zap.Error(err))
		}
	}()

	_, runErr := batch.Run(ctx)

	if url := cfg.GetString("metrics.pushgateway_url"); url != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, url, cfg.GetString("metrics.job")); err != nil {
			logger.Warn("Failed to push metrics", zap.String("url", url), zap.Error(err))
		}
	}

	return runErr
}
