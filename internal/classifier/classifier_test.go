package classifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/cache"
	"github.com/mikey/placement-triage/internal/core"
)

const validReply = `{"category":"interview","urgency":"super_urgent","action_required":"confirm_attendance","deadline":"2025-10-10","eligibility":"btech_final_year","companies":["Acme Corp"],"reason":"Interview tomorrow"}`

type reply struct {
	text string
	err  error
}

// stubLLM replays scripted replies and records every call
type stubLLM struct {
	mu        sync.Mutex
	replies   []reply
	prompts   []string
	maxTokens []int
}

func (s *stubLLM) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	s.maxTokens = append(s.maxTokens, maxTokens)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newTestClassifier(llm core.LLMClient, c *cache.MemoryCache) *Classifier {
	return New(llm, c, c, nil, nil, Config{}, zap.NewNop())
}

func TestClassify_ValidReplyIsCached(t *testing.T) {
	llm := &stubLLM{replies: []reply{{text: "Sure! " + validReply + " hope that helps"}}}
	mem := cache.NewMemoryCache(nil)
	c := newTestClassifier(llm, mem)

	v, err := c.Classify(context.Background(), "m1", "Interview tomorrow", "Acme Corp", Options{})
	require.NoError(t, err)
	assert.Equal(t, core.LabelSuperUrgent, v.Urgency)
	assert.Equal(t, []string{"Acme Corp"}, v.Companies)
	require.NotNil(t, v.Deadline)
	assert.Equal(t, "2025-10-10", *v.Deadline)
	assert.Equal(t, 1, llm.calls())
	assert.Equal(t, []int{DefaultMaxTokens}, llm.maxTokens)

	// second call is served from the cache
	again, err := c.Classify(context.Background(), "m1", "Interview tomorrow", "Acme Corp", Options{})
	require.NoError(t, err)
	assert.Equal(t, v, again)
	assert.Equal(t, 1, llm.calls())

	entries := mem.DebugEntries("m1")
	require.Len(t, entries, 1)
	assert.Equal(t, core.AttemptFirst, entries[0].Attempt)
	assert.NotNil(t, entries[0].Verdict)
}

func TestClassify_ForceRequeries(t *testing.T) {
	llm := &stubLLM{replies: []reply{{text: validReply}, {text: validReply}}}
	c := newTestClassifier(llm, cache.NewMemoryCache(nil))

	_, err := c.Classify(context.Background(), "m1", "s", "b", Options{})
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "m1", "s", "b", Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 2, llm.calls())
}

func TestClassify_RepairSucceeds(t *testing.T) {
	llm := &stubLLM{replies: []reply{{text: "I think this is an interview."}, {text: validReply}}}
	mem := cache.NewMemoryCache(nil)
	c := newTestClassifier(llm, mem)

	v, err := c.Classify(context.Background(), "m2", "Interview", "body", Options{MaxTokens: 150})
	require.NoError(t, err)
	assert.Equal(t, "interview", v.Category)
	assert.Equal(t, 2, llm.calls())

	// repair budget is the smaller of the repair cap and the caller budget
	assert.Equal(t, []int{150, 150}, llm.maxTokens)
	assert.Contains(t, llm.prompts[1], "Previous model output:\nI think this is an interview.")

	entries := mem.DebugEntries("m2")
	require.Len(t, entries, 2)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, core.AttemptRepair, entries[1].Attempt)
}

func TestClassify_SchemaViolationFallsBackAndCaches(t *testing.T) {
	bad := strings.Replace(validReply, `"urgency":"super_urgent"`, `"urgency":"critical"`, 1)
	llm := &stubLLM{replies: []reply{{text: bad}, {text: "still not json"}}}
	mem := cache.NewMemoryCache(nil)
	c := newTestClassifier(llm, mem)

	v, err := c.Classify(context.Background(), "m3", "s", "b", Options{})
	require.NoError(t, err)
	assert.Equal(t, core.FallbackVerdict(), v)
	assert.Equal(t, []int{DefaultMaxTokens, DefaultRepairMaxTokens}, llm.maxTokens)

	// the fallback is memoized like a real verdict
	again, err := c.Classify(context.Background(), "m3", "s", "b", Options{})
	require.NoError(t, err)
	assert.Equal(t, core.FallbackReason, again.Reason)
	assert.Equal(t, 2, llm.calls())
}

func TestClassify_RepairTransportErrorFallsBack(t *testing.T) {
	llm := &stubLLM{replies: []reply{{text: "nope"}, {err: errors.New("503")}}}
	mem := cache.NewMemoryCache(nil)
	c := newTestClassifier(llm, mem)

	v, err := c.Classify(context.Background(), "m4", "s", "b", Options{})
	require.NoError(t, err)
	assert.Equal(t, core.FallbackReason, v.Reason)

	entries := mem.DebugEntries("m4")
	require.Len(t, entries, 2)
	assert.Equal(t, "503", entries[1].Error)
}

func TestClassify_FirstTransportErrorIsNotCached(t *testing.T) {
	llm := &stubLLM{replies: []reply{{err: errors.New("connection refused")}, {text: validReply}}}
	mem := cache.NewMemoryCache(nil)
	c := newTestClassifier(llm, mem)

	v, err := c.Classify(context.Background(), "m5", "s", "b", Options{})
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, mem.Len())
	assert.Equal(t, 1, llm.calls())

	// a later call retries the provider
	v, err = c.Classify(context.Background(), "m5", "s", "b", Options{})
	require.NoError(t, err)
	assert.Equal(t, "interview", v.Category)
}

func TestClassify_CancelledDuringRepairIsNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	llm := &stubLLM{replies: []reply{{text: "nope"}, {err: context.Canceled}}}
	mem := cache.NewMemoryCache(nil)
	c := newTestClassifier(llm, mem)
	cancel()

	_, err := c.Classify(ctx, "m6", "s", "b", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mem.Len())
}

func TestClassify_TruncatesPromptInputs(t *testing.T) {
	llm := &stubLLM{replies: []reply{{text: validReply}}}
	c := newTestClassifier(llm, cache.NewMemoryCache(nil))

	subject := strings.Repeat("s", 900)
	snippet := strings.Repeat("b", 2000)
	_, err := c.Classify(context.Background(), "m7", subject, snippet, Options{})
	require.NoError(t, err)

	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "Subject: "+strings.Repeat("s", DefaultSubjectLimit)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("s", DefaultSubjectLimit+1))
	assert.Contains(t, prompt, "Body: "+strings.Repeat("b", DefaultSnippetLimit)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("b", DefaultSnippetLimit+1))
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, id string) (*core.LLMVerdict, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Set(ctx context.Context, id string, v *core.LLMVerdict) error {
	return errors.New("disk on fire")
}

func (failingStore) SaveRaw(ctx context.Context, e *core.DebugEntry) error {
	return errors.New("disk on fire")
}

func TestClassify_StoreFailuresAreIgnored(t *testing.T) {
	llm := &stubLLM{replies: []reply{{text: validReply}}}
	store := failingStore{}
	c := New(llm, store, store, nil, nil, Config{}, zap.NewNop())

	v, err := c.Classify(context.Background(), "m8", "s", "b", Options{})
	require.NoError(t, err)
	assert.Equal(t, "interview", v.Category)
}
