package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultHints are display-name fragments that mark a placement office sender
var DefaultHints = []string{"placement", "placement office", "helpdesk", "cdc", "placementoffice"}

// Checker decides whether a sender belongs to the placement office
type Checker struct {
	senders map[string]struct{}
	hints   []string
	logger  *zap.Logger
}

// NewChecker creates a new placement sender checker
func NewChecker(senders []string, hints []string, logger *zap.Logger) *Checker {
	// Normalize addresses and hints (lowercase)
	normalizedSenders := make(map[string]struct{}, len(senders))
	for _, sender := range senders {
		sender = strings.ToLower(strings.TrimSpace(sender))
		if sender == "" {
			continue
		}
		normalizedSenders[sender] = struct{}{}
	}

	normalizedHints := make([]string, 0, len(hints))
	for _, hint := range hints {
		hint = strings.ToLower(strings.TrimSpace(hint))
		if hint == "" {
			continue
		}
		normalizedHints = append(normalizedHints, hint)
	}

	if logger != nil {
		logger.Debug("Initialized placement sender checker",
			zap.Int("senders", len(normalizedSenders)),
			zap.Strings("hints", normalizedHints))
	}

	return &Checker{
		senders: normalizedSenders,
		hints:   normalizedHints,
		logger:  logger,
	}
}

// IsAllowlisted reports whether the normalized address is exactly on the allowlist
func (c *Checker) IsAllowlisted(senderEmail string) bool {
	if senderEmail == "" {
		return false
	}
	_, ok := c.senders[senderEmail]
	return ok
}

// IsPlacementSender checks the allowlist first and then the raw header
// against the placement hints.
func (c *Checker) IsPlacementSender(senderEmail, header string) bool {
	if c.IsAllowlisted(senderEmail) {
		return true
	}

	lowered := strings.ToLower(header)
	for _, hint := range c.hints {
		if strings.Contains(lowered, hint) {
			if c.logger != nil {
				c.logger.Debug("Sender matched placement hint",
					zap.String("hint", hint),
					zap.String("email", senderEmail))
			}
			return true
		}
	}

	return false
}
