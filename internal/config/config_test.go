package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/rules"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	llm := cfg.GetLLM()
	assert.Equal(t, "gemini", llm.Provider)
	assert.True(t, llm.Enabled)
	assert.Equal(t, 500, llm.MaxTokens)
	assert.Equal(t, 200, llm.RepairMaxTokens)
	assert.Equal(t, "gemini-2.5-flash", cfg.GetGemini().ModelName)

	assert.Equal(t, "file", cfg.GetCache().Type)
	assert.Equal(t, "./llm_cache", cfg.GetCache().Dir)
	assert.Equal(t, 50, cfg.GetSource().MaxResults)
	assert.Equal(t, "is:unread -in:trash", cfg.GetSource().Query)

	triage := cfg.GetTriage()
	assert.Equal(t, 0.45, triage.AmbiguousLow)
	assert.Equal(t, 0.85, triage.AmbiguousHigh)
	assert.Equal(t, 1, cfg.GetRunner().Workers)

	breaker, err := cfg.GetBreaker()
	require.NoError(t, err)
	assert.EqualValues(t, 5, breaker.ConsecutiveFailures)
}

func TestGetBreaker_InvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("llm.breaker.timeout", "soon")

	_, err := cfg.GetBreaker()
	assert.Error(t, err)
}

func TestNewWithFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "llm:\n  provider: openai\nrunner:\n  workers: 4\n")

	cfg, err := NewWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, 4, cfg.GetRunner().Workers)
	assert.Equal(t, 500, cfg.GetLLM().MaxTokens)
}

func TestNewWithFile_Missing(t *testing.T) {
	_, err := NewWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesProviderKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("PLACEMENT_TRIAGE_LLM_PROVIDER", "bedrock")

	cfg, err := NewWithFile(writeFile(t, "config.yaml", "logging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GetGemini().APIKey)
	assert.Equal(t, "bedrock", cfg.GetLLM().Provider)
}

func TestLoadClassification_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadClassification(filepath.Join(t.TempDir(), "config.json"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, rules.DefaultConfig(), cfg)
}

func TestLoadClassification(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"placement_senders": ["tpo@college.edu"],
		"applied_companies": ["Nvidia", "DevRev"],
		"thresholds": {"super": 0.9, "urgent": 0.7, "mid": 0.5, "low": 0.2},
		"keywords": {"urgent": ["last date"]},
		"profile": {"email": "student@college.edu", "identifiers": ["22BSA10205"]}
	}`)

	cfg, err := LoadClassification(path, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"tpo@college.edu"}, cfg.PlacementSenders)
	assert.Equal(t, []string{"Nvidia", "DevRev"}, cfg.AppliedCompanies)
	assert.Equal(t, 0.9, cfg.Thresholds.Super)
	assert.Equal(t, 0.2, cfg.Thresholds.Low)
	assert.Equal(t, []string{"last date"}, cfg.Keywords.Urgent)
	assert.Equal(t, rules.DefaultSuperKeywords, cfg.Keywords.Super)
	assert.Equal(t, []string{"22BSA10205"}, cfg.Identifiers)
	assert.Equal(t, "student", cfg.RecipientToken)
}

func TestLoadClassification_PartialThresholdsUseDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{"thresholds": {"super": 0.95}}`)

	cfg, err := LoadClassification(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.Thresholds.Super)
	assert.Equal(t, rules.DefaultThresholds().Urgent, cfg.Thresholds.Urgent)
}

func TestLoadClassification_Invalid(t *testing.T) {
	cases := map[string]string{
		"not increasing": `{"thresholds": {"super": 0.5, "urgent": 0.65, "mid": 0.4, "low": 0.15}}`,
		"above one":      `{"thresholds": {"super": 1.5, "urgent": 0.65, "mid": 0.4, "low": 0.15}}`,
		"negative":       `{"thresholds": {"super": 0.85, "urgent": 0.65, "mid": 0.4, "low": -0.1}}`,
		"malformed":      `{"thresholds": `,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadClassification(writeFile(t, "config.json", content), nil)
			assert.Error(t, err)
		})
	}
}
