package rules

import (
	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/whitelist"
)

// Built-in keyword tiers used when the configuration leaves a tier empty
var (
	DefaultSuperKeywords  = []string{"interview", "interview scheduled", "shortlist", "report by", "join", "call letter"}
	DefaultUrgentKeywords = []string{"deadline", "apply by", "registration", "submission", "application deadline"}
	DefaultMidKeywords    = []string{"placement drive", "opportunity", "internship", "job posting", "drive details"}
	DefaultTrashKeywords  = []string{"congratulations", "well done", "congrats", "has been placed"}
)

// DefaultPlacementSenders is the allowlist used when none is configured
var DefaultPlacementSenders = []string{
	"helpdesk.cdc@vit.ac.in",
	"vitlions2026@vitbhopal.ac.in",
}

// DefaultThresholds returns the lower bounds of the positive urgency bands
func DefaultThresholds() core.Thresholds {
	return core.Thresholds{
		Super:  0.85,
		Urgent: 0.65,
		Mid:    0.40,
		Low:    0.15,
	}
}

// DefaultConfig returns the classification config used when no file is present
func DefaultConfig() core.ClassificationConfig {
	return WithDefaults(core.ClassificationConfig{})
}

// WithDefaults fills every empty list and unset threshold block with its
// built-in value. The input is not modified.
func WithDefaults(cfg core.ClassificationConfig) core.ClassificationConfig {
	out := cfg
	out.PlacementSenders = orDefault(cfg.PlacementSenders, DefaultPlacementSenders)
	out.PlacementHints = orDefault(cfg.PlacementHints, whitelist.DefaultHints)
	out.Keywords = core.KeywordTiers{
		Super:  orDefault(cfg.Keywords.Super, DefaultSuperKeywords),
		Urgent: orDefault(cfg.Keywords.Urgent, DefaultUrgentKeywords),
		Mid:    orDefault(cfg.Keywords.Mid, DefaultMidKeywords),
		Trash:  orDefault(cfg.Keywords.Trash, DefaultTrashKeywords),
	}
	out.AppliedCompanies = append([]string(nil), cfg.AppliedCompanies...)
	out.Identifiers = append([]string(nil), cfg.Identifiers...)
	if cfg.Thresholds == (core.Thresholds{}) {
		out.Thresholds = DefaultThresholds()
	}
	return out
}

func orDefault(values, defaults []string) []string {
	for _, v := range values {
		if Normalize(v) != "" {
			return append([]string(nil), values...)
		}
	}
	return append([]string(nil), defaults...)
}

// KeywordSet matches a list of case-insensitive substrings in one pass
// over the text using an Aho-Corasick automaton.
type KeywordSet struct {
	original []string
	matcher  *ahocorasick.Matcher
}

// NewKeywordSet builds the automaton. Blank entries are dropped since an
// empty substring would match every text.
func NewKeywordSet(keywords []string) *KeywordSet {
	set := &KeywordSet{original: make([]string, 0, len(keywords))}
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		n := Normalize(kw)
		if n == "" {
			continue
		}
		set.original = append(set.original, kw)
		normalized = append(normalized, n)
	}

	if len(normalized) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return set
}

// Len returns the number of usable keywords
func (k *KeywordSet) Len() int {
	return len(k.original)
}

// Contains reports whether any keyword occurs in the normalized text
func (k *KeywordSet) Contains(text string) bool {
	_, ok := k.FirstMatch(text)
	return ok
}

// FirstMatch returns the earliest keyword in list order that occurs in the
// normalized text, in its configured spelling.
func (k *KeywordSet) FirstMatch(text string) (string, bool) {
	if k.matcher == nil || text == "" {
		return "", false
	}

	hits := k.matcher.MatchThreadSafe([]byte(text))
	if len(hits) == 0 {
		return "", false
	}

	first := hits[0]
	for _, idx := range hits[1:] {
		if idx < first {
			first = idx
		}
	}
	return k.original[first], true
}
