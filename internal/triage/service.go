// Package triage combines the rule engine and the LLM classifier into the
// per-message classification used by the runner and the CLI.
package triage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/classifier"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/rules"
	"github.com/mikey/placement-triage/internal/telemetry"
)

// Default bounds of the ambiguous score band, inclusive
const (
	DefaultAmbiguousLow  = 0.45
	DefaultAmbiguousHigh = 0.85
)

// VerdictClassifier is the LLM side of the pipeline
type VerdictClassifier interface {
	Classify(ctx context.Context, messageID, subject, snippet string, opts classifier.Options) (*core.LLMVerdict, error)
}

// Config controls when the LLM is consulted
type Config struct {
	AmbiguousLow  float64
	AmbiguousHigh float64
	// Force bypasses the verdict cache for every consulted message
	Force bool
}

// DefaultConfig returns the default ambiguous band
func DefaultConfig() Config {
	return Config{
		AmbiguousLow:  DefaultAmbiguousLow,
		AmbiguousHigh: DefaultAmbiguousHigh,
	}
}

// Service classifies single messages
type Service struct {
	classifier VerdictClassifier
	cfg        Config
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a triage service. cls may be nil, in which case only
// the rule engine is used.
func NewService(cls VerdictClassifier, cfg Config, metrics *telemetry.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		classifier: cls,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// InAmbiguousBand reports whether a score warrants a second opinion
func (s *Service) InAmbiguousBand(score float64) bool {
	return score >= s.cfg.AmbiguousLow && score <= s.cfg.AmbiguousHigh
}

// Classify explains msg with engine, consults the LLM for ambiguous
// placement mail and reconciles the two verdicts.
func (s *Service) Classify(ctx context.Context, engine *rules.Engine, msg *core.Message) *core.ClassifiedRecord {
	result := engine.Explain(msg)
	record := core.NewClassifiedRecord(msg, result, s.now())

	if s.classifier != nil && result.IsPlacementSender && s.InAmbiguousBand(result.Score) {
		verdict, err := s.classifier.Classify(ctx, msg.ID, msg.Subject, msg.Snippet, classifier.Options{Force: s.cfg.Force})
		if err != nil {
			s.logger.Warn("LLM classification unavailable, keeping rule label",
				zap.String("id", msg.ID),
				zap.String("label", string(record.Label)),
				zap.Error(err))
			verdict = nil
		}

		decision := Reconcile(record, verdict)
		s.metrics.IncReconciliation(string(decision))
		s.logger.Debug("Reconciled with LLM verdict",
			zap.String("id", msg.ID),
			zap.String("decision", string(decision)),
			zap.String("label", string(record.Label)))
	}

	s.metrics.IncClassified(string(record.Label))
	return record
}
