package core

import (
	"time"
)

// Label is the urgency label attached to a classified message
type Label string

const (
	LabelSuperUrgent Label = "super_urgent"
	LabelUrgent      Label = "urgent"
	LabelMid         Label = "mid"
	LabelLow         Label = "low"
	LabelTrash       Label = "trash"
	// LabelOthers marks mail from senders outside the placement allowlist
	LabelOthers Label = "others"
)

// Severity returns the position of the label in the urgency order
// (trash=0 ... super_urgent=4). LabelOthers and unknown labels return -1.
func (l Label) Severity() int {
	switch l {
	case LabelTrash:
		return 0
	case LabelLow:
		return 1
	case LabelMid:
		return 2
	case LabelUrgent:
		return 3
	case LabelSuperUrgent:
		return 4
	default:
		return -1
	}
}

// IsUrgency reports whether the label is one of the five ordinal urgency values
func (l Label) IsUrgency() bool {
	return l.Severity() >= 0
}

// Message is an unread mail record handed over by the mail source
type Message struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Snippet  string `json:"snippet"`
	To       string `json:"to,omitempty"`
}

// Thresholds are the lower bounds of the four positive urgency bands
type Thresholds struct {
	Super  float64 `json:"super" mapstructure:"super" validate:"gtfield=Urgent,lte=1"`
	Urgent float64 `json:"urgent" mapstructure:"urgent" validate:"gtfield=Mid,lte=1"`
	Mid    float64 `json:"mid" mapstructure:"mid" validate:"gtfield=Low,lte=1"`
	Low    float64 `json:"low" mapstructure:"low" validate:"gte=0,lte=1"`
}

// KeywordTiers holds the case-insensitive substrings for each keyword tier
type KeywordTiers struct {
	Super  []string `json:"super" mapstructure:"super"`
	Urgent []string `json:"urgent" mapstructure:"urgent"`
	Mid    []string `json:"mid" mapstructure:"mid"`
	Trash  []string `json:"trash" mapstructure:"trash"`
}

// ClassificationConfig is the per-user configuration snapshot used for a batch
type ClassificationConfig struct {
	PlacementSenders []string     `json:"placement_senders"`
	PlacementHints   []string     `json:"placement_hints"`
	Keywords         KeywordTiers `json:"keywords"`
	AppliedCompanies []string     `json:"applied_companies"`
	Identifiers      []string     `json:"identifiers"`
	// RecipientToken is matched against the To list for the direct addressing bonus
	RecipientToken string       `json:"recipient_token"`
	Thresholds     Thresholds   `json:"thresholds"`
}

// ScoreResult is the outcome of the rule-based pass
type ScoreResult struct {
	Score             float64  `json:"score"`
	Label             Label    `json:"label"`
	Reasons           []string `json:"reasons"`
	SenderEmail       string   `json:"sender_email"`
	IsPlacementSender bool     `json:"is_placement_sender"`
}

// LLMVerdict is the validated structured answer of the language model
type LLMVerdict struct {
	Category       string   `json:"category"`
	Urgency        Label    `json:"urgency"`
	ActionRequired string   `json:"action_required"`
	Deadline       *string  `json:"deadline"`
	Eligibility    string   `json:"eligibility"`
	Companies      []string `json:"companies"`
	Reason         string   `json:"reason"`
}

// FallbackReason is the reason carried by the synthesized verdict
const FallbackReason = "llm-failed-to-parse"

// FallbackVerdict returns the verdict used when the model never produced valid output
func FallbackVerdict() *LLMVerdict {
	return &LLMVerdict{
		Category:       "other",
		Urgency:        LabelLow,
		ActionRequired: "none",
		Deadline:       nil,
		Eligibility:    "all",
		Companies:      []string{},
		Reason:         FallbackReason,
	}
}

// ClassifiedRecord is the persisted outcome for one message
type ClassifiedRecord struct {
	ID                string      `json:"id"`
	ThreadID          string      `json:"threadId"`
	Subject           string      `json:"subject"`
	From              string      `json:"from"`
	Snippet           string      `json:"snippet"`
	To                string      `json:"to,omitempty"`
	SenderEmail       string      `json:"sender_email"`
	IsPlacementSender bool        `json:"is_placement_sender"`
	Label             Label       `json:"label"`
	Score             float64     `json:"score"`
	Reasons           []string    `json:"reasons"`
	LLMAnnotation     string      `json:"llm_annotation,omitempty"`
	LLM               *LLMVerdict `json:"llm,omitempty"`
	ReceivedAt        time.Time   `json:"received_at"`
}

// NewClassifiedRecord combines a message and its score result
func NewClassifiedRecord(msg *Message, result *ScoreResult, receivedAt time.Time) *ClassifiedRecord {
	reasons := make([]string, len(result.Reasons))
	copy(reasons, result.Reasons)

	return &ClassifiedRecord{
		ID:                msg.ID,
		ThreadID:          msg.ThreadID,
		Subject:           msg.Subject,
		From:              msg.From,
		Snippet:           msg.Snippet,
		To:                msg.To,
		SenderEmail:       result.SenderEmail,
		IsPlacementSender: result.IsPlacementSender,
		Label:             result.Label,
		Score:             result.Score,
		Reasons:           reasons,
		ReceivedAt:        receivedAt.UTC(),
	}
}

// DebugAttempt identifies which model call produced a raw reply
type DebugAttempt string

const (
	AttemptFirst  DebugAttempt = "first"
	AttemptRepair DebugAttempt = "repair"
)

// DebugEntry is an audit record of one raw model reply
type DebugEntry struct {
	MessageID string       `json:"message_id"`
	Attempt   DebugAttempt `json:"attempt"`
	Raw       string       `json:"raw"`
	Error     string       `json:"error,omitempty"`
	Verdict   *LLMVerdict  `json:"verdict,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// ProfileKeyword is a user-managed keyword stored alongside the profile
type ProfileKeyword struct {
	Keyword string  `json:"keyword" db:"keyword"`
	Weight  float64 `json:"weight" db:"weight"`
	Type    string  `json:"type" db:"type"`
}
