package runner

import (
	"strings"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/rules"
)

// Profile keyword types that map onto a keyword tier
const (
	KeywordTypeSuper  = "super"
	KeywordTypeUrgent = "urgent"
	KeywordTypeMid    = "mid"
	KeywordTypeTrash  = "trash"
)

// MergeProfile extends base with the user's stored companies and typed
// keywords. Tiers keep their defaults and gain the stored keywords; keywords
// of any other type are ignored. Duplicates are dropped case-insensitively.
func MergeProfile(base core.ClassificationConfig, companies []string, keywords []core.ProfileKeyword) core.ClassificationConfig {
	cfg := rules.WithDefaults(base)
	cfg.AppliedCompanies = appendUnique(cfg.AppliedCompanies, companies...)

	for _, kw := range keywords {
		switch strings.ToLower(strings.TrimSpace(kw.Type)) {
		case KeywordTypeSuper:
			cfg.Keywords.Super = appendUnique(cfg.Keywords.Super, kw.Keyword)
		case KeywordTypeUrgent:
			cfg.Keywords.Urgent = appendUnique(cfg.Keywords.Urgent, kw.Keyword)
		case KeywordTypeMid:
			cfg.Keywords.Mid = appendUnique(cfg.Keywords.Mid, kw.Keyword)
		case KeywordTypeTrash:
			cfg.Keywords.Trash = appendUnique(cfg.Keywords.Trash, kw.Keyword)
		}
	}

	return cfg
}

func appendUnique(list []string, values ...string) []string {
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		seen[rules.Normalize(v)] = struct{}{}
	}
	for _, v := range values {
		key := rules.Normalize(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		list = append(list, strings.TrimSpace(v))
	}
	return list
}
