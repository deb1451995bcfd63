package triage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/classifier"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/rules"
)

const cdcSender = "Helpdesk CDC <helpdesk.cdc@vit.ac.in>"

type stubClassifier struct {
	verdict *core.LLMVerdict
	err     error
	calls   int
	opts    []classifier.Options
}

func (s *stubClassifier) Classify(ctx context.Context, id, subject, snippet string, opts classifier.Options) (*core.LLMVerdict, error) {
	s.calls++
	s.opts = append(s.opts, opts)
	return s.verdict, s.err
}

func verdict(urgency core.Label, reason string) *core.LLMVerdict {
	return &core.LLMVerdict{
		Category:       "other",
		Urgency:        urgency,
		ActionRequired: "none",
		Eligibility:    "all",
		Companies:      []string{},
		Reason:         reason,
	}
}

func TestReconcile_NoDowngrade(t *testing.T) {
	record := &core.ClassifiedRecord{Label: core.LabelMid, Reasons: []string{"mid keyword found"}}

	decision := Reconcile(record, verdict(core.LabelLow, "just an announcement"))

	assert.Equal(t, DecisionSupplement, decision)
	assert.Equal(t, core.LabelMid, record.Label)
	assert.Equal(t, []string{"mid keyword found", "llm_supplement: just an announcement"}, record.Reasons)
	assert.Equal(t, "llm_supplement: just an announcement", record.LLMAnnotation)
	require.NotNil(t, record.LLM)
}

func TestReconcile_Escalates(t *testing.T) {
	record := &core.ClassifiedRecord{Label: core.LabelMid}

	decision := Reconcile(record, verdict(core.LabelSuperUrgent, "interview tomorrow"))

	assert.Equal(t, DecisionOverride, decision)
	assert.Equal(t, core.LabelSuperUrgent, record.Label)
	assert.Equal(t, []string{"llm_override: interview tomorrow"}, record.Reasons)
}

func TestReconcile_EqualSeveritySupplements(t *testing.T) {
	record := &core.ClassifiedRecord{Label: core.LabelUrgent}

	assert.Equal(t, DecisionSupplement, Reconcile(record, verdict(core.LabelUrgent, "same")))
	assert.Equal(t, core.LabelUrgent, record.Label)
}

func TestReconcile_NeverLowersSeverity(t *testing.T) {
	labels := []core.Label{core.LabelTrash, core.LabelLow, core.LabelMid, core.LabelUrgent, core.LabelSuperUrgent}
	for _, rule := range labels {
		for _, llm := range labels {
			record := &core.ClassifiedRecord{Label: rule}
			Reconcile(record, verdict(llm, "r"))

			assert.GreaterOrEqual(t, record.Label.Severity(), rule.Severity(), "rule=%s llm=%s", rule, llm)
			if llm.Severity() > rule.Severity() {
				assert.Equal(t, llm, record.Label)
			}
		}
	}
}

func TestReconcile_NilVerdictSkips(t *testing.T) {
	record := &core.ClassifiedRecord{Label: core.LabelMid, Reasons: []string{"a"}}

	assert.Equal(t, DecisionSkipped, Reconcile(record, nil))
	assert.Equal(t, []string{"a"}, record.Reasons)
	assert.Empty(t, record.LLMAnnotation)
	assert.Nil(t, record.LLM)
}

func TestService_ConsultsLLMInAmbiguousBand(t *testing.T) {
	engine := rules.NewEngine(rules.DefaultConfig(), zap.NewNop())
	cls := &stubClassifier{verdict: verdict(core.LabelSuperUrgent, "interview call")}
	svc := NewService(cls, DefaultConfig(), nil, zap.NewNop())

	// sender 0.30 + urgent 0.25 = 0.55, mid band
	record := svc.Classify(context.Background(), engine, &core.Message{
		ID:      "m1",
		Subject: "Registration closes soon",
		From:    cdcSender,
	})

	assert.Equal(t, 1, cls.calls)
	assert.Equal(t, core.LabelSuperUrgent, record.Label)
	assert.Equal(t, "llm_override: interview call", record.LLMAnnotation)
	assert.Contains(t, record.Reasons, "llm_override: interview call")
	assert.InDelta(t, 0.55, record.Score, 1e-9)
	assert.False(t, record.ReceivedAt.IsZero())
}

func TestService_SkipsLLMOutsideBand(t *testing.T) {
	engine := rules.NewEngine(core.ClassificationConfig{AppliedCompanies: []string{"Nvidia"}}, zap.NewNop())
	cls := &stubClassifier{verdict: verdict(core.LabelSuperUrgent, "x")}
	svc := NewService(cls, DefaultConfig(), nil, zap.NewNop())

	tests := []struct {
		name string
		msg  *core.Message
		want core.Label
	}{
		{
			name: "low score",
			msg:  &core.Message{ID: "a", Subject: "Internship opportunity", From: "Placement Office <po@gmail.com>"},
			want: core.LabelLow,
		},
		{
			name: "above band",
			msg:  &core.Message{ID: "b", Subject: "Interview tomorrow", From: cdcSender, Snippet: "Nvidia"},
			want: core.LabelSuperUrgent,
		},
		{
			name: "not placement",
			msg:  &core.Message{ID: "c", Subject: "Registration closes soon", From: "shop@example.com"},
			want: core.LabelOthers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := svc.Classify(context.Background(), engine, tt.msg)
			assert.Equal(t, tt.want, record.Label)
			assert.Empty(t, record.LLMAnnotation)
		})
	}
	assert.Equal(t, 0, cls.calls)
}

func TestService_ClassifierErrorKeepsRuleLabel(t *testing.T) {
	engine := rules.NewEngine(rules.DefaultConfig(), zap.NewNop())
	cls := &stubClassifier{err: classifier.ErrProviderUnavailable}
	svc := NewService(cls, DefaultConfig(), nil, zap.NewNop())

	record := svc.Classify(context.Background(), engine, &core.Message{
		ID:      "m2",
		Subject: "Registration closes soon",
		From:    cdcSender,
	})

	assert.Equal(t, 1, cls.calls)
	assert.Equal(t, core.LabelMid, record.Label)
	assert.Equal(t, []string{rules.ReasonPlacementSender, rules.ReasonUrgentKeyword}, record.Reasons)
	assert.Nil(t, record.LLM)
}

func TestService_NilClassifierUsesRulesOnly(t *testing.T) {
	engine := rules.NewEngine(rules.DefaultConfig(), zap.NewNop())
	svc := NewService(nil, DefaultConfig(), nil, nil)

	record := svc.Classify(context.Background(), engine, &core.Message{
		ID:      "m3",
		Subject: "Registration closes soon",
		From:    cdcSender,
	})

	assert.Equal(t, core.LabelMid, record.Label)
}

func TestService_ForcePropagates(t *testing.T) {
	engine := rules.NewEngine(rules.DefaultConfig(), zap.NewNop())
	cls := &stubClassifier{verdict: verdict(core.LabelLow, "x")}
	cfg := DefaultConfig()
	cfg.Force = true
	svc := NewService(cls, cfg, nil, zap.NewNop())

	svc.Classify(context.Background(), engine, &core.Message{ID: "m4", Subject: "Registration", From: cdcSender})

	require.Len(t, cls.opts, 1)
	assert.True(t, cls.opts[0].Force)
}
