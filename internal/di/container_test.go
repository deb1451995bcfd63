package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/cache"
	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/runner"
	"github.com/mikey/placement-triage/internal/triage"
)

func TestBuildContainer_RunsBatchFromFiles(t *testing.T) {
	dir := t.TempDir()
	messages := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(messages, []byte(`[
		{"id": "a", "subject": "Interview scheduled tomorrow", "from": "Helpdesk CDC <helpdesk.cdc@vit.ac.in>", "snippet": "Report by 9am"}
	]`), 0o644))

	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
llm:
  enabled: false
source:
  type: file
  file: `+messages+`
store:
  type: file
  dir: `+filepath.Join(dir, "store")+`
cache:
  type: memory
classification:
  file: `+filepath.Join(dir, "missing.json")+`
logging:
  level: error
`), 0o644))

	container, err := BuildContainer(context.Background(), configFile)
	require.NoError(t, err)

	err = container.Invoke(func(r *runner.BatchRunner, store core.RecordStore) {
		summary, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Classified)
		assert.Equal(t, 1, summary.ByLabel[core.LabelSuperUrgent])

		ids, err := store.ProcessedIDs(context.Background(), "default")
		require.NoError(t, err)
		assert.Contains(t, ids, "a")
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_DefaultsToMemoryCache(t *testing.T) {
	flags := &CLIFlags{NoLLM: true, ClassificationFile: filepath.Join(t.TempDir(), "none.json")}

	container, err := BuildCLIContainer(context.Background(), flags)
	require.NoError(t, err)

	err = container.Invoke(func(c core.VerdictCache, svc *triage.Service, cfg *config.Config) {
		assert.IsType(t, &cache.MemoryCache{}, c)
		assert.NotNil(t, svc)
		assert.False(t, cfg.GetLLM().Enabled)
	})
	require.NoError(t, err)
}

func TestCreateConfigFromFlags(t *testing.T) {
	cfg, err := createConfigFromFlags(&CLIFlags{
		Provider:     "openai",
		Model:        "gpt-4o",
		OpenAIAPIKey: "sk-test",
		Force:        true,
		UserID:       "u7",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, "gpt-4o", cfg.GetOpenAI().ModelName)
	assert.Equal(t, "sk-test", cfg.GetOpenAI().APIKey)
	assert.True(t, cfg.GetTriage().Force)
	assert.Equal(t, "u7", cfg.GetRunner().UserID)
	assert.Equal(t, "memory", cfg.GetCache().Type)
}
