package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"secure-mail-digest-go/internal/redact"
	"secure-mail-digest-go/internal/summarize"
)

// previewLimit caps the local preview included in a confidential notice.
const previewLimit = 200

// matchesDomain reports whether the sender address passes the configured
// domain filter. The filter is a case-insensitive address suffix, so
// "@example.com" admits exactly that domain; an empty filter admits everyone.
func matchesDomain(sender, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(sender)), strings.ToLower(filter))
}

// confidentialNotice builds the local replacement for a summary when a message
// must not reach the external summarizer. Subject, body preview, and counts
// all come from already-redacted text.
func confidentialNotice(subject, body string, markers []string, redactionCount int) string {
	return fmt.Sprintf(`CONFIDENTIAL EMAIL DETECTED

Subject: %s

Confidential markers detected: %s
Items redacted: %d

Preview (local only):
%s

Full content NOT sent to any external API`,
		subject, strings.Join(markers, ", "), redactionCount, previewText(body))
}

// previewText returns the first two sentences of the body, capped at
// previewLimit runes, with an ellipsis when the body holds more.
func previewText(body string) string {
	body = strings.TrimSpace(body)

	sentences := summarize.SplitSentences(body)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	preview := strings.Join(sentences, " ")
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit])
	}
	if len([]rune(body)) > previewLimit {
		preview += "..."
	}
	return preview
}

// composeDigest renders the notification text sent to the operator.
func composeDigest(sender, subject, summary string, confidential bool, counts map[string]int) string {
	footer := "Thank you"
	if confidential {
		footer = "Protected: No data sent to external APIs"
	}

	return fmt.Sprintf(`From: %s
Subject: %s

Summary:
%s

%s
Redactions: %s`,
		sender, subject, cleanMarkdown(summary), footer, redactionTally(counts))
}

// redactionTally renders per-category redaction counts in rule order, or
// "None" when nothing was redacted.
func redactionTally(counts map[string]int) string {
	var parts []string
	for _, category := range redact.Categories() {
		if n := counts[category]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", category, n))
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, ", ")
}

func mergeCounts(a, b map[string]int) map[string]int {
	merged := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		merged[k] += v
	}
	for k, v := range b {
		merged[k] += v
	}
	return merged
}

// Emphasis markers are stripped for the messaging channel, which renders
// plain text. The underscore rules anchor on word boundaries so the
// underscores inside redaction placeholders survive.
var (
	boldRe             = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe           = regexp.MustCompile(`\*([^*]+)\*`)
	underscoreBoldRe   = regexp.MustCompile(`\b__([^_]+)__\b`)
	underscoreItalicRe = regexp.MustCompile(`\b_([^_]+)_\b`)
)

func cleanMarkdown(text string) string {
	if text == "" {
		return text
	}
	cleaned := boldRe.ReplaceAllString(text, "$1")
	cleaned = italicRe.ReplaceAllString(cleaned, "$1")
	cleaned = underscoreBoldRe.ReplaceAllString(cleaned, "$1")
	cleaned = underscoreItalicRe.ReplaceAllString(cleaned, "$1")
	return cleaned
}
