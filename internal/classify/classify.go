// Package classify decides whether an email must be treated as confidential
// by scanning its subject and body for configured marker keywords.
package classify

import "strings"

// Result reports the outcome of scanning one message.
type Result struct {
	Confidential bool
	Markers      []string
}

// Checker scans message text against a fixed keyword set. A disabled Checker
// reports every message as not confidential.
type Checker struct {
	keywords []string
	enabled  bool
}

// NewChecker builds a Checker from the configured keyword list. Keywords are
// trimmed and lowercased; empty entries and duplicates are dropped.
func NewChecker(keywords []string, enabled bool) *Checker {
	seen := make(map[string]struct{}, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		normalized = append(normalized, kw)
	}
	return &Checker{keywords: normalized, enabled: enabled}
}

// Enabled reports whether confidentiality checking is active.
func (c *Checker) Enabled() bool {
	return c.enabled
}

// Scan performs a case-insensitive substring search of every keyword against
// the subject and body and returns the matched markers in keyword-list order.
// Matching is plain substring, not word-boundary aware, so overlapping
// configured keywords may all match. Scan must run on the raw text, before
// redaction, or markers hidden inside redacted values would be missed.
func (c *Checker) Scan(subject, body string) Result {
	if !c.enabled || len(c.keywords) == 0 {
		return Result{}
	}

	text := strings.ToLower(subject + " " + body)
	var markers []string
	for _, kw := range c.keywords {
		if strings.Contains(text, kw) {
			markers = append(markers, kw)
		}
	}

	return Result{Confidential: len(markers) > 0, Markers: markers}
}
