package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesDomain(t *testing.T) {
	assert.True(t, matchesDomain("alice@corp.com", "@corp.com"))
	assert.True(t, matchesDomain("Alice@CORP.COM", "@corp.com"))
	assert.True(t, matchesDomain("alice@corp.com", ""))
	assert.False(t, matchesDomain("alice@other.com", "@corp.com"))
	// Suffix matching, not substring: the domain must end the address.
	assert.False(t, matchesDomain("alice@corp.com.evil.net", "@corp.com"))
}

func TestPreviewTextFirstTwoSentences(t *testing.T) {
	body := "First sentence here. Second one follows. Third is dropped."

	preview := previewText(body)

	assert.Contains(t, preview, "First sentence here.")
	assert.Contains(t, preview, "Second one follows.")
	assert.NotContains(t, preview, "Third")
}

func TestPreviewTextCapsAt200(t *testing.T) {
	body := strings.Repeat("a", 300) + ". And more."

	preview := previewText(body)

	assert.LessOrEqual(t, len([]rune(preview)), 200+len("..."))
	assert.True(t, strings.HasSuffix(preview, "..."))
}

func TestPreviewTextShortBodyNoEllipsis(t *testing.T) {
	assert.Equal(t, "Short note.", previewText("Short note."))
}

func TestConfidentialNotice(t *testing.T) {
	notice := confidentialNotice("Internal Matter", "This is [PASSWORD_REDACTED] info.", []string{"confidential", "password"}, 1)

	assert.Contains(t, notice, "CONFIDENTIAL EMAIL DETECTED")
	assert.Contains(t, notice, "Subject: Internal Matter")
	assert.Contains(t, notice, "Confidential markers detected: confidential, password")
	assert.Contains(t, notice, "Items redacted: 1")
	assert.Contains(t, notice, "Preview (local only):")
	assert.Contains(t, notice, "Full content NOT sent to any external API")
}

func TestComposeDigestNormal(t *testing.T) {
	text := composeDigest("alice@corp.com", "Weekly report", "All on track.", false, map[string]int{"email": 2})

	assert.Contains(t, text, "From: alice@corp.com")
	assert.Contains(t, text, "Subject: Weekly report")
	assert.Contains(t, text, "Summary:\nAll on track.")
	assert.Contains(t, text, "Thank you")
	assert.Contains(t, text, "Redactions: email: 2")
	assert.NotContains(t, text, "Protected")
}

func TestComposeDigestConfidentialFooter(t *testing.T) {
	text := composeDigest("alice@corp.com", "Subject", "notice", true, nil)

	assert.Contains(t, text, "Protected: No data sent to external APIs")
	assert.Contains(t, text, "Redactions: None")
	assert.NotContains(t, text, "Thank you")
}

func TestRedactionTallyRuleOrder(t *testing.T) {
	tally := redactionTally(map[string]int{"phone": 1, "email": 2, "ip": 0})

	// Categories render in rule order with zero counts dropped.
	assert.Equal(t, "email: 2, phone: 1", tally)
}

func TestCleanMarkdown(t *testing.T) {
	assert.Equal(t, "bold and italic", cleanMarkdown("**bold** and *italic*"))
	assert.Equal(t, "under and score", cleanMarkdown("__under__ and _score_"))
	assert.Equal(t, "", cleanMarkdown(""))
}

func TestCleanMarkdownKeepsPlaceholders(t *testing.T) {
	text := "Mail [EMAIL_REDACTED] with key [API_KEY_REDACTED] attached"

	assert.Equal(t, text, cleanMarkdown(text))
}

func TestMergeCounts(t *testing.T) {
	merged := mergeCounts(map[string]int{"email": 1, "phone": 2}, map[string]int{"email": 3})

	assert.Equal(t, 4, merged["email"])
	assert.Equal(t, 2, merged["phone"])
}
