// Package classifier asks a language model for a structured verdict on a
// placement message, with one repair attempt and a cached fallback.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/telemetry"
	"github.com/mikey/placement-triage/internal/utils"
)

// ErrProviderUnavailable is returned when the first model call fails at the
// transport level. Nothing is cached in that case.
var ErrProviderUnavailable = errors.New("llm provider unavailable")

// Defaults for Config fields left at zero
const (
	DefaultMaxTokens       = 500
	DefaultRepairMaxTokens = 200
	DefaultSubjectLimit    = 800
	DefaultSnippetLimit    = 1500
)

// Config holds the classifier limits
type Config struct {
	MaxTokens       int
	RepairMaxTokens int
	SubjectLimit    int
	SnippetLimit    int
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.RepairMaxTokens <= 0 {
		c.RepairMaxTokens = DefaultRepairMaxTokens
	}
	if c.SubjectLimit <= 0 {
		c.SubjectLimit = DefaultSubjectLimit
	}
	if c.SnippetLimit <= 0 {
		c.SnippetLimit = DefaultSnippetLimit
	}
	return c
}

// Options tune a single Classify call
type Options struct {
	// Force skips the cache lookup and always queries the model
	Force bool
	// MaxTokens overrides the configured token budget when positive
	MaxTokens int
}

type state int

const (
	stateFirstAttempt state = iota
	stateRepairAttempt
	stateFallback
)

type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeParseError
	outcomeTransportError
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeOK:
		return "ok"
	case outcomeParseError:
		return "parse_error"
	default:
		return "transport_error"
	}
}

// outcome is the tagged result of one call-and-parse step
type outcome struct {
	kind    outcomeKind
	raw     string
	verdict *core.LLMVerdict
	err     error
}

// Classifier produces validated verdicts, memoized per message id
type Classifier struct {
	llm     core.LLMClient
	cache   core.VerdictCache
	debug   core.DebugStore
	text    *utils.TextProcessor
	metrics *telemetry.Metrics
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a classifier. cache, debug and metrics may be nil.
func New(
	llm core.LLMClient,
	cache core.VerdictCache,
	debug core.DebugStore,
	text *utils.TextProcessor,
	metrics *telemetry.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	return &Classifier{
		llm:     llm,
		cache:   cache,
		debug:   debug,
		text:    text,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// Classify returns the verdict for a message. A cached verdict is returned
// without calling the model unless opts.Force is set. An error is returned
// only when the provider could not be reached on the first attempt or the
// context was cancelled.
func (c *Classifier) Classify(ctx context.Context, messageID, subject, snippet string, opts Options) (*core.LLMVerdict, error) {
	if !opts.Force {
		if verdict, ok := c.lookup(ctx, messageID); ok {
			return verdict, nil
		}
	}

	subject = c.text.ProcessText(subject, c.cfg.SubjectLimit)
	snippet = c.text.ProcessText(snippet, c.cfg.SnippetLimit)

	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	var last outcome
	st := stateFirstAttempt
	for {
		switch st {
		case stateFirstAttempt:
			last = c.attempt(ctx, messageID, core.AttemptFirst, BuildPrompt(subject, snippet), maxTokens)
			switch last.kind {
			case outcomeOK:
				return c.accept(ctx, messageID, last.verdict), nil
			case outcomeTransportError:
				return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, last.err)
			}
			st = stateRepairAttempt

		case stateRepairAttempt:
			repairTokens := min(c.cfg.RepairMaxTokens, maxTokens)
			last = c.attempt(ctx, messageID, core.AttemptRepair, BuildRepairPrompt(subject, snippet, last.raw), repairTokens)
			if last.kind == outcomeOK {
				return c.accept(ctx, messageID, last.verdict), nil
			}
			if last.kind == outcomeTransportError && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			st = stateFallback

		case stateFallback:
			c.logger.Warn("LLM reply unusable after repair, using fallback verdict",
				zap.String("id", messageID),
				zap.String("last_outcome", last.kind.String()))
			c.metrics.IncFallback()
			return c.accept(ctx, messageID, core.FallbackVerdict()), nil
		}
	}
}

// lookup reads the cache. Errors other than a miss are logged and treated
// as a miss.
func (c *Classifier) lookup(ctx context.Context, messageID string) (*core.LLMVerdict, bool) {
	if c.cache == nil {
		return nil, false
	}

	verdict, err := c.cache.Get(ctx, messageID)
	switch {
	case err == nil && verdict != nil:
		c.metrics.IncCacheLookup("hit")
		c.logger.Debug("Verdict cache hit", zap.String("id", messageID))
		return verdict, true
	case err == nil, errors.Is(err, core.ErrCacheMiss):
		c.metrics.IncCacheLookup("miss")
	default:
		c.metrics.IncCacheLookup("error")
		c.logger.Warn("Failed to read verdict cache", zap.String("id", messageID), zap.Error(err))
	}
	return nil, false
}

// attempt performs one model call, parses the reply and records it
func (c *Classifier) attempt(ctx context.Context, messageID string, attempt core.DebugAttempt, prompt string, maxTokens int) outcome {
	start := time.Now()
	raw, err := c.llm.Complete(ctx, prompt, maxTokens)

	entry := &core.DebugEntry{
		MessageID: messageID,
		Attempt:   attempt,
		Raw:       raw,
		CreatedAt: c.now().UTC(),
	}

	var out outcome
	if err != nil {
		entry.Error = err.Error()
		out = outcome{kind: outcomeTransportError, err: err}
		c.logger.Warn("LLM call failed",
			zap.String("id", messageID),
			zap.String("attempt", string(attempt)),
			zap.Error(err))
	} else if verdict, perr := ParseVerdict(raw); perr != nil {
		entry.Error = perr.Error()
		out = outcome{kind: outcomeParseError, raw: raw, err: perr}
		c.logger.Debug("LLM reply rejected",
			zap.String("id", messageID),
			zap.String("attempt", string(attempt)),
			zap.Error(perr))
	} else {
		entry.Verdict = verdict
		out = outcome{kind: outcomeOK, raw: raw, verdict: verdict}
	}

	c.metrics.ObserveLLMCall(string(attempt), out.kind.String(), time.Since(start))
	c.saveDebug(ctx, entry)
	return out
}

// accept caches the verdict and returns it. Cache failures are not fatal.
func (c *Classifier) accept(ctx context.Context, messageID string, verdict *core.LLMVerdict) *core.LLMVerdict {
	if c.cache != nil {
		if err := c.cache.Set(ctx, messageID, verdict); err != nil {
			c.logger.Warn("Failed to cache verdict", zap.String("id", messageID), zap.Error(err))
		}
	}
	return verdict
}

func (c *Classifier) saveDebug(ctx context.Context, entry *core.DebugEntry) {
	if c.debug == nil {
		return
	}
	if err := c.debug.SaveRaw(ctx, entry); err != nil {
		c.logger.Warn("Failed to save raw LLM reply",
			zap.String("id", entry.MessageID),
			zap.String("attempt", string(entry.Attempt)),
			zap.Error(err))
	}
}
