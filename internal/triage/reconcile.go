package triage

import (
	"github.com/mikey/placement-triage/internal/core"
)

// Reason prefixes appended when an LLM verdict is reconciled
const (
	OverridePrefix   = "llm_override: "
	SupplementPrefix = "llm_supplement: "
)

// Decision is the outcome of reconciling a rule label with an LLM verdict
type Decision string

const (
	DecisionOverride   Decision = "override"
	DecisionSupplement Decision = "supplement"
	DecisionSkipped    Decision = "skipped"
)

// Reconcile applies the escalation-only policy to record. The label only
// changes when the verdict is strictly more severe; otherwise the verdict is
// kept as a supplementary reason. A nil verdict leaves the record untouched.
func Reconcile(record *core.ClassifiedRecord, verdict *core.LLMVerdict) Decision {
	if verdict == nil {
		return DecisionSkipped
	}

	record.LLM = verdict
	if verdict.Urgency.IsUrgency() && verdict.Urgency.Severity() > record.Label.Severity() {
		record.Label = verdict.Urgency
		record.LLMAnnotation = OverridePrefix + verdict.Reason
		record.Reasons = append(record.Reasons, record.LLMAnnotation)
		return DecisionOverride
	}

	record.LLMAnnotation = SupplementPrefix + verdict.Reason
	record.Reasons = append(record.Reasons, record.LLMAnnotation)
	return DecisionSupplement
}
