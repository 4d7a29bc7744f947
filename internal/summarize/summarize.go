// Package summarize produces the short digest text for an email. The Gemini
// implementation calls the external API; Fallback builds a local summary when
// the API is unavailable or the message must not leave the process.
package summarize

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Sentinel errors for the two failure classes callers care about. Both degrade
// to the local fallback; rate limiting additionally feeds backoff decisions.
var (
	ErrRateLimited = errors.New("summarization rate limited")
	ErrService     = errors.New("summarization service failed")
)

// Summarizer turns message text into a few plain sentences.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	Close() error
}

// fallbackExcerptLimit caps the excerpt the local fallback works from.
const fallbackExcerptLimit = 800

// Fallback produces a deterministic local summary without any external call:
// the first four sentences of a whitespace-flattened excerpt, one bullet each.
func Fallback(text string) string {
	if text == "" {
		return ""
	}

	excerpt := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	if runes := []rune(excerpt); len(runes) > fallbackExcerptLimit {
		excerpt = string(runes[:fallbackExcerptLimit]) + "..."
	}

	var bullets []string
	sentences := SplitSentences(excerpt)
	if len(sentences) > 4 {
		sentences = sentences[:4]
	}
	for _, s := range sentences {
		if strings.TrimSpace(s) == "" {
			continue
		}
		bullets = append(bullets, "- "+s)
	}
	return strings.Join(bullets, "\n")
}

// SplitSentences splits text after terminal punctuation followed by spacing.
// The punctuation stays with its sentence; the spacing is consumed. Text
// without terminal punctuation comes back as a single sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, b.String())
			b.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}

	if tail := strings.TrimSpace(b.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
