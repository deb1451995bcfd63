package rules

import "github.com/mikey/placement-triage/internal/core"

// LabelFor maps a score onto the urgency bands defined by t
func LabelFor(score float64, t core.Thresholds) core.Label {
	switch {
	case score >= t.Super:
		return core.LabelSuperUrgent
	case score >= t.Urgent:
		return core.LabelUrgent
	case score >= t.Mid:
		return core.LabelMid
	case score >= t.Low:
		return core.LabelLow
	default:
		return core.LabelTrash
	}
}
