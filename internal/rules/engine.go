package rules

import (
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/whitelist"
)

// Engine evaluates messages against one ClassificationConfig snapshot.
// It is built once per batch and is safe for concurrent use.
type Engine struct {
	gate       *whitelist.Checker
	scorer     *Scorer
	thresholds core.Thresholds
	logger     *zap.Logger
}

// NewEngine applies defaults to cfg and compiles the matchers
func NewEngine(cfg core.ClassificationConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = WithDefaults(cfg)
	gate := whitelist.NewChecker(cfg.PlacementSenders, cfg.PlacementHints, logger)

	return &Engine{
		gate:       gate,
		scorer:     NewScorer(&cfg, gate),
		thresholds: cfg.Thresholds,
		logger:     logger,
	}
}

// Thresholds returns the bands the engine maps scores with
func (e *Engine) Thresholds() core.Thresholds {
	return e.thresholds
}

// Explain gates the sender and, for placement mail, scores and labels it
func (e *Engine) Explain(msg *core.Message) *core.ScoreResult {
	senderEmail := ExtractSenderAddress(msg.From)

	if !e.gate.IsPlacementSender(senderEmail, msg.From) {
		return &core.ScoreResult{
			Score:             0,
			Label:             core.LabelOthers,
			Reasons:           []string{ReasonNotPlacement},
			SenderEmail:       senderEmail,
			IsPlacementSender: false,
		}
	}

	score, reasons := e.scorer.Score(msg)
	label := LabelFor(score, e.thresholds)

	e.logger.Debug("Scored placement message",
		zap.String("id", msg.ID),
		zap.Float64("score", score),
		zap.String("label", string(label)))

	return &core.ScoreResult{
		Score:             score,
		Label:             label,
		Reasons:           reasons,
		SenderEmail:       senderEmail,
		IsPlacementSender: true,
	}
}
