// Package rules implements the deterministic placement mail scorer.
package rules

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	angleAddress  = regexp.MustCompile(`<([^>]+)>`)
	addressSplits = regexp.MustCompile(`[,\s]+`)

	// relative days, numeric D/M or D-M with an optional year, month name + day
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:today|tomorrow|tonight)\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`),
		regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?\b`),
	}
)

// Normalize trims and lowercases text. A Caser is not safe for concurrent
// use so one is built per call.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return cases.Lower(language.Und).String(text)
}

// ExtractSenderAddress pulls the mail address out of a From header such as
// "Helpdesk CDC <helpdesk.cdc@vit.ac.in>". The result is always normalized.
func ExtractSenderAddress(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}

	if m := angleAddress.FindStringSubmatch(header); m != nil {
		return Normalize(m[1])
	}

	for _, token := range addressSplits.Split(header, -1) {
		if strings.Contains(token, "@") {
			return Normalize(token)
		}
	}

	return Normalize(header)
}

// ContainsDateNear reports whether the text mentions a near date or time
func ContainsDateNear(text string) bool {
	for _, p := range datePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
