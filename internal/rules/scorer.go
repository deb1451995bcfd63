package rules

import (
	"math"
	"strings"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/whitelist"
)

// Signal weights
const (
	WeightPlacementSender = 0.30
	WeightDirectAddress   = 0.05
	WeightSuperKeyword    = 0.45
	WeightUrgentKeyword   = 0.25
	WeightMidKeyword      = 0.15
	WeightDateMention     = 0.15
	WeightAppliedCompany  = 0.35
	PenaltyTrashKeyword   = 0.60
	WeightIdentifier      = 0.20
)

// Audit reasons, one per contributing signal
const (
	ReasonPlacementSender = "sender is placement cell"
	ReasonDirectAddress   = "addressed to you directly"
	ReasonSuperKeyword    = "super keyword found"
	ReasonUrgentKeyword   = "urgent keyword found"
	ReasonMidKeyword      = "mid keyword found"
	ReasonDateMention     = "date/time mentioned"
	ReasonAppliedCompany  = "applied-company match: "
	ReasonTrashKeyword    = "congratulatory/trash keyword"
	ReasonIdentifier      = "personal identifier matched"
	ReasonNotPlacement    = "sender not in placement-senders allowlist"
)

// scorePrecision keeps band comparisons stable against float drift
const scorePrecision = 1e6

// Scorer accumulates the urgency score of placement mail
type Scorer struct {
	gate           *whitelist.Checker
	recipientToken string
	super          *KeywordSet
	urgent         *KeywordSet
	mid            *KeywordSet
	trash          *KeywordSet
	companies      *KeywordSet
	identifiers    *KeywordSet
}

// NewScorer compiles the keyword automata for cfg. cfg is expected to have
// its defaults applied already.
func NewScorer(cfg *core.ClassificationConfig, gate *whitelist.Checker) *Scorer {
	return &Scorer{
		gate:           gate,
		recipientToken: Normalize(cfg.RecipientToken),
		super:          NewKeywordSet(cfg.Keywords.Super),
		urgent:         NewKeywordSet(cfg.Keywords.Urgent),
		mid:            NewKeywordSet(cfg.Keywords.Mid),
		trash:          NewKeywordSet(cfg.Keywords.Trash),
		companies:      NewKeywordSet(cfg.AppliedCompanies),
		identifiers:    NewKeywordSet(cfg.Identifiers),
	}
}

// Score returns the clamped score and the reasons for every signal that
// contributed to it, in signal order.
func (s *Scorer) Score(msg *core.Message) (float64, []string) {
	text := Normalize(msg.Subject + " " + msg.Snippet)
	senderEmail := ExtractSenderAddress(msg.From)

	var score float64
	reasons := make([]string, 0, 6)
	add := func(weight float64, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	if s.gate.IsAllowlisted(senderEmail) {
		add(WeightPlacementSender, ReasonPlacementSender)
	}

	if s.recipientToken != "" && strings.Contains(Normalize(msg.To), s.recipientToken) {
		add(WeightDirectAddress, ReasonDirectAddress)
	}

	// tiers are exclusive, strongest first
	switch {
	case s.super.Contains(text):
		add(WeightSuperKeyword, ReasonSuperKeyword)
	case s.urgent.Contains(text):
		add(WeightUrgentKeyword, ReasonUrgentKeyword)
	case s.mid.Contains(text):
		add(WeightMidKeyword, ReasonMidKeyword)
	}

	if ContainsDateNear(text) {
		add(WeightDateMention, ReasonDateMention)
	}

	if company, ok := s.companies.FirstMatch(text); ok {
		add(WeightAppliedCompany, ReasonAppliedCompany+company)
	}

	if s.trash.Contains(text) {
		add(-PenaltyTrashKeyword, ReasonTrashKeyword)
	}

	if s.identifiers.Contains(text) {
		add(WeightIdentifier, ReasonIdentifier)
	}

	return clamp(score), reasons
}

func clamp(score float64) float64 {
	score = math.Round(score*scorePrecision) / scorePrecision
	return math.Max(0, math.Min(1, score))
}
