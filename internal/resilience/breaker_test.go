package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/telemetry"
)

type flakyLLM struct {
	err   error
	calls int
}

func (f *flakyLLM) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "{}", nil
}

func testSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "llm",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}
}

func TestBreakerClient_PassesThrough(t *testing.T) {
	next := &flakyLLM{}
	c := NewBreakerClient(next, testSettings(), nil, zap.NewNop())

	out, err := c.Complete(context.Background(), "p", 10)
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreakerClient_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyLLM{err: errors.New("503")}
	metrics := telemetry.NewMetrics()
	c := NewBreakerClient(next, testSettings(), metrics, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := c.Complete(context.Background(), "p", 10)
		assert.EqualError(t, err, "503")
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.Complete(context.Background(), "p", 10)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls)
}

func TestBreakerClient_CancellationDoesNotTrip(t *testing.T) {
	next := &flakyLLM{err: context.Canceled}
	c := NewBreakerClient(next, testSettings(), nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := c.Complete(context.Background(), "p", 10)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}
