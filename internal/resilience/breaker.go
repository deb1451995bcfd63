// Package resilience guards outbound calls with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/telemetry"
)

// BreakerSettings configures a circuit breaker
type BreakerSettings struct {
	Name string
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval after which closed-state counts are cleared
	Interval time.Duration
	// Timeout the breaker stays open before probing again
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker
	ConsecutiveFailures uint32
}

// DefaultBreakerSettings returns the settings used when none are configured
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:                name,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewCircuitBreaker builds a gobreaker instance that reports its state to
// the logger and metrics.
func NewCircuitBreaker(s BreakerSettings, metrics *telemetry.Metrics, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerSettings(s.Name).ConsecutiveFailures
	}

	metrics.SetBreakerState(s.Name, float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(name, float64(to))
		},
		// cancellation says nothing about the health of the remote side
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// BreakerClient decorates an LLMClient with a circuit breaker. While the
// breaker is open calls fail fast with gobreaker.ErrOpenState.
type BreakerClient struct {
	next core.LLMClient
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps next
func NewBreakerClient(next core.LLMClient, s BreakerSettings, metrics *telemetry.Metrics, logger *zap.Logger) *BreakerClient {
	return &BreakerClient{
		next: next,
		cb:   NewCircuitBreaker(s, metrics, logger),
	}
}

// Complete forwards the call through the breaker
func (c *BreakerClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Complete(ctx, prompt, maxTokens)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State returns the current breaker state
func (c *BreakerClient) State() gobreaker.State {
	return c.cb.State()
}
