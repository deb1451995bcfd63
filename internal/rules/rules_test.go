package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
)

const cdcSender = "Helpdesk CDC <helpdesk.cdc@vit.ac.in>"

func newTestEngine(t *testing.T, mutate func(cfg *core.ClassificationConfig)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg, zap.NewNop())
}

func TestExtractSenderAddress(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"angle brackets", "Helpdesk CDC <Helpdesk.CDC@VIT.ac.in>", "helpdesk.cdc@vit.ac.in"},
		{"bare address", "  someone@example.com ", "someone@example.com"},
		{"comma separated", "Recruiter, hr@acme.io", "hr@acme.io"},
		{"no address", "Placement Office", "placement office"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSenderAddress(tt.header))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "interview scheduled", Normalize("  Interview SCHEDULED \n"))
	assert.Equal(t, "", Normalize(""))
}

func TestContainsDateNear(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"interview tomorrow at 10", true},
		{"report TONIGHT", true},
		{"drive on 12/10", true},
		{"drive on 12-10-2025", true},
		{"test on oct 10", true},
		{"Test on October 10th", true},
		{"deadline: Sept. 3", true},
		{"a decision 10 years in the making", false},
		{"no date here", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsDateNear(tt.text))
		})
	}
}

func TestLabelFor_DefaultBands(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  core.Label
	}{
		{1.0, core.LabelSuperUrgent},
		{0.85, core.LabelSuperUrgent},
		{0.84, core.LabelUrgent},
		{0.65, core.LabelUrgent},
		{0.64, core.LabelMid},
		{0.40, core.LabelMid},
		{0.39, core.LabelLow},
		{0.15, core.LabelLow},
		{0.14, core.LabelTrash},
		{0.0, core.LabelTrash},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelFor(tt.score, th), "score %v", tt.score)
	}
}

func TestLabelFor_Monotonic(t *testing.T) {
	th := DefaultThresholds()
	prev := LabelFor(0, th).Severity()
	for i := 1; i <= 100; i++ {
		sev := LabelFor(float64(i)/100, th).Severity()
		assert.GreaterOrEqual(t, sev, prev, "severity dropped at %d", i)
		prev = sev
	}
}

func TestExplain_InterviewTomorrowIsSuperUrgent(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Explain(&core.Message{
		ID:      "m1",
		Subject: "Interview scheduled tomorrow",
		From:    cdcSender,
		Snippet: "Report by 9am, confirm attendance.",
	})

	assert.True(t, res.IsPlacementSender)
	assert.Equal(t, "helpdesk.cdc@vit.ac.in", res.SenderEmail)
	assert.InDelta(t, 0.90, res.Score, 1e-9)
	assert.Equal(t, core.LabelSuperUrgent, res.Label)
	assert.Equal(t, []string{ReasonPlacementSender, ReasonSuperKeyword, ReasonDateMention}, res.Reasons)
}

func TestExplain_CongratulationsIsTrash(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Explain(&core.Message{
		ID:      "m2",
		Subject: "Congratulations, you have been placed!",
		From:    cdcSender,
	})

	assert.True(t, res.IsPlacementSender)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, core.LabelTrash, res.Label)
	assert.Equal(t, []string{ReasonPlacementSender, ReasonTrashKeyword}, res.Reasons)
}

func TestExplain_NonPlacementShortCircuits(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Explain(&core.Message{
		ID:      "m3",
		Subject: "Interview scheduled tomorrow with Nvidia",
		From:    "Newsletter <news@shop.example>",
	})

	assert.False(t, res.IsPlacementSender)
	assert.Equal(t, core.LabelOthers, res.Label)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, []string{ReasonNotPlacement}, res.Reasons)
	assert.Equal(t, "news@shop.example", res.SenderEmail)
}

func TestExplain_HintMatchedSenderGetsNoSenderBonus(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Explain(&core.Message{
		ID:      "m4",
		Subject: "Internship opportunity",
		From:    "Placement Office <someone@gmail.com>",
	})

	require.True(t, res.IsPlacementSender)
	assert.InDelta(t, WeightMidKeyword, res.Score, 1e-9)
	assert.Equal(t, core.LabelLow, res.Label)
	assert.Equal(t, []string{ReasonMidKeyword}, res.Reasons)
}

func TestExplain_KeywordTiersAreExclusive(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Explain(&core.Message{
		ID:      "m5",
		Subject: "Interview shortlist, registration deadline and internship",
		From:    cdcSender,
	})

	assert.Contains(t, res.Reasons, ReasonSuperKeyword)
	assert.NotContains(t, res.Reasons, ReasonUrgentKeyword)
	assert.NotContains(t, res.Reasons, ReasonMidKeyword)
	assert.InDelta(t, WeightPlacementSender+WeightSuperKeyword, res.Score, 1e-9)
}

func TestExplain_AppliedCompanyDoesNotStack(t *testing.T) {
	e := newTestEngine(t, func(cfg *core.ClassificationConfig) {
		cfg.AppliedCompanies = []string{"Devrev", "Nvidia", "UI Path"}
	})

	res := e.Explain(&core.Message{
		ID:      "m6",
		Subject: "Update from UI Path and Nvidia",
		From:    cdcSender,
	})

	assert.Equal(t, []string{ReasonPlacementSender, ReasonAppliedCompany + "Nvidia"}, res.Reasons)
	assert.InDelta(t, WeightPlacementSender+WeightAppliedCompany, res.Score, 1e-9)
	assert.Equal(t, core.LabelUrgent, res.Label)
}

func TestExplain_ScoreIsClamped(t *testing.T) {
	e := newTestEngine(t, func(cfg *core.ClassificationConfig) {
		cfg.AppliedCompanies = []string{"Nvidia"}
		cfg.Identifiers = []string{"22BSA10205"}
		cfg.RecipientToken = "kislaytiwari2022"
	})

	res := e.Explain(&core.Message{
		ID:      "m7",
		Subject: "Nvidia interview tomorrow",
		Snippet: "Candidate 22bsa10205 must report by 9am",
		From:    cdcSender,
		To:      "KislayTiwari2022@vitbhopal.ac.in",
	})

	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, core.LabelSuperUrgent, res.Label)
	assert.Equal(t, []string{
		ReasonPlacementSender,
		ReasonDirectAddress,
		ReasonSuperKeyword,
		ReasonDateMention,
		ReasonAppliedCompany + "Nvidia",
		ReasonIdentifier,
	}, res.Reasons)
}

func TestExplain_TrashDominates(t *testing.T) {
	e := newTestEngine(t, nil)

	// sender + mid + date - trash stays below the low band
	res := e.Explain(&core.Message{
		ID:      "m8",
		Subject: "Congrats to everyone from the placement drive on 12/10",
		From:    cdcSender,
	})

	assert.Less(t, res.Score, DefaultThresholds().Low)
	assert.Equal(t, core.LabelTrash, res.Label)
}

func TestExplain_Idempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	msg := &core.Message{
		ID:      "m9",
		Subject: "Registration deadline for drive details",
		From:    cdcSender,
	}

	assert.Equal(t, e.Explain(msg), e.Explain(msg))
}

func TestWithDefaults_BlankTierFallsBack(t *testing.T) {
	cfg := WithDefaults(core.ClassificationConfig{
		Keywords: core.KeywordTiers{Super: []string{"", "  "}},
	})

	assert.Equal(t, DefaultSuperKeywords, cfg.Keywords.Super)
	assert.Equal(t, DefaultPlacementSenders, cfg.PlacementSenders)
	assert.Equal(t, DefaultThresholds(), cfg.Thresholds)
}

func TestKeywordSet_IgnoresBlankEntries(t *testing.T) {
	set := NewKeywordSet([]string{"", "Hackathon", "   "})

	assert.Equal(t, 1, set.Len())
	assert.False(t, set.Contains("nothing to see"))

	kw, ok := set.FirstMatch("join the hackathon")
	assert.True(t, ok)
	assert.Equal(t, "Hackathon", kw)
}

func TestKeywordSet_Empty(t *testing.T) {
	set := NewKeywordSet(nil)

	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Contains("anything"))
}
