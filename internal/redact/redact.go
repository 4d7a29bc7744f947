// Package redact removes sensitive values from email text before the text is
// summarized, dispatched, or stored. Each detected value is replaced with a
// fixed category placeholder such as [EMAIL_REDACTED].
package redact

import "regexp"

// rule pairs a compiled pattern with the placeholder that replaces its matches.
type rule struct {
	category    string
	pattern     *regexp.Regexp
	placeholder string
}

// rules are applied in order. Labelled secrets (token, password) run before the
// generic api-key rule so they keep their specific placeholder; card numbers run
// before phone numbers so long digit runs are not claimed by the phone pattern.
var rules = []rule{
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	{"token", regexp.MustCompile(`(?i)(bearer|token|jwt)[\s:=]+[A-Za-z0-9_.-]+`), "[TOKEN_REDACTED]"},
	{"password", regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+\S+`), "[PASSWORD_REDACTED]"},
	{"card", regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[CARD_REDACTED]"},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN_REDACTED]"},
	{"phone", regexp.MustCompile(`\+?\d[\d\-\s]{6,}\d`), "[PHONE_REDACTED]"},
	{"ip", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[IP_REDACTED]"},
	{"api_key", regexp.MustCompile(`\b[A-Za-z0-9_-]{32,}\b`), "[API_KEY_REDACTED]"},
}

// Categories returns the rule categories in application order, for callers
// that render per-category counts deterministically.
func Categories() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.category
	}
	return out
}

// Result holds the outcome of one redaction pass.
type Result struct {
	Text   string
	Counts map[string]int
}

// Total returns the number of replacements across all categories.
func (r Result) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Redact replaces every sensitive value in text with its category placeholder
// and counts the replacements per category. Placeholders never re-match, so
// running Redact on already-redacted text is a no-op.
func Redact(text string) Result {
	counts := make(map[string]int)
	for _, r := range rules {
		text = r.pattern.ReplaceAllStringFunc(text, func(string) string {
			counts[r.category]++
			return r.placeholder
		})
	}
	return Result{Text: text, Counts: counts}
}
