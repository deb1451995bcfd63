// Package runner drives one batch: fetch unread mail, skip what was already
// processed, classify the rest and persist the records.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/rules"
	"github.com/mikey/placement-triage/internal/telemetry"
	"github.com/mikey/placement-triage/internal/triage"
)

// Batch statuses reported to metrics
const (
	StatusClassified = "classified"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// Config holds the runner settings
type Config struct {
	UserID     string
	MaxResults int
	Workers    int
}

// Summary describes the outcome of one batch
type Summary struct {
	RunID      string
	Fetched    int
	Skipped    int
	Classified int
	Failed     int
	ByLabel    map[core.Label]int
	// Records are the persisted records in source order
	Records []*core.ClassifiedRecord
}

// BatchRunner classifies one batch of unread mail
type BatchRunner struct {
	source   core.MessageSource
	store    core.RecordStore
	profiles core.ProfileStore
	service  *triage.Service
	base     core.ClassificationConfig
	cfg      Config
	printer  *Printer
	metrics  *telemetry.Metrics
	logger   *zap.Logger
}

// NewBatchRunner creates a runner. profiles, printer and metrics may be nil.
func NewBatchRunner(
	source core.MessageSource,
	store core.RecordStore,
	profiles core.ProfileStore,
	service *triage.Service,
	base core.ClassificationConfig,
	cfg Config,
	printer *Printer,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *BatchRunner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchRunner{
		source:   source,
		store:    store,
		profiles: profiles,
		service:  service,
		base:     base,
		cfg:      cfg,
		printer:  printer,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run processes one batch. Only failures to fetch messages or load the
// processed-id set abort the batch; per-message failures are counted.
func (r *BatchRunner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		ByLabel: make(map[core.Label]int),
	}
	logger := r.logger.With(zap.String("run_id", summary.RunID), zap.String("user_id", r.cfg.UserID))

	engine := rules.NewEngine(r.classificationConfig(ctx, logger), logger)

	msgs, err := r.source.FetchUnread(ctx, r.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread messages: %w", err)
	}
	summary.Fetched = len(msgs)
	if len(msgs) == 0 {
		logger.Info("No messages to process")
		r.printer.PrintSummary(summary)
		return summary, nil
	}

	processed, err := r.store.ProcessedIDs(ctx, r.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed ids: %w", err)
	}

	pending := make([]*core.Message, 0, len(msgs))
	for _, msg := range msgs {
		if _, done := processed[msg.ID]; done {
			logger.Debug("Skipping already processed message",
				zap.String("id", msg.ID),
				zap.String("subject", msg.Subject))
			summary.Skipped++
			r.metrics.IncBatchMessage(StatusSkipped)
			continue
		}
		// a source may return the same id twice within a batch
		processed[msg.ID] = struct{}{}
		pending = append(pending, msg)
	}

	records := make([]*core.ClassifiedRecord, len(pending))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for i, msg := range pending {
		i, msg := i, msg
		g.Go(func() error {
			record, err := r.process(ctx, engine, msg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Failed to process message", zap.String("id", msg.ID), zap.Error(err))
				summary.Failed++
				r.metrics.IncBatchMessage(StatusFailed)
				return nil
			}
			records[i] = record
			summary.Classified++
			summary.ByLabel[record.Label]++
			r.metrics.IncBatchMessage(StatusClassified)
			r.printer.PrintRecord(record)
			return nil
		})
	}
	_ = g.Wait()

	for _, record := range records {
		if record != nil {
			summary.Records = append(summary.Records, record)
		}
	}

	logger.Info("Batch finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("skipped", summary.Skipped),
		zap.Int("classified", summary.Classified),
		zap.Int("failed", summary.Failed))
	r.printer.PrintSummary(summary)

	return summary, ctx.Err()
}

// process classifies and persists one message, converting a panic into an
// error so the rest of the batch continues.
func (r *BatchRunner) process(ctx context.Context, engine *rules.Engine, msg *core.Message) (record *core.ClassifiedRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while classifying: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record = r.service.Classify(ctx, engine, msg)
	if err := r.store.SaveRecord(ctx, r.cfg.UserID, record); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	return record, nil
}

// classificationConfig merges the user's stored profile into the base
// config. Profile errors are logged and the base config is used.
func (r *BatchRunner) classificationConfig(ctx context.Context, logger *zap.Logger) core.ClassificationConfig {
	if r.profiles == nil {
		return r.base
	}

	companies, err := r.profiles.Companies(ctx, r.cfg.UserID)
	if err != nil {
		logger.Warn("Failed to load profile companies", zap.Error(err))
		companies = nil
	}
	keywords, err := r.profiles.Keywords(ctx, r.cfg.UserID)
	if err != nil {
		logger.Warn("Failed to load profile keywords", zap.Error(err))
		keywords = nil
	}

	return MergeProfile(r.base, companies, keywords)
}
