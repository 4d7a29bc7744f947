package summarize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First point. Second point! Third question? Trailing words")

	assert.Equal(t, []string{"First point.", "Second point!", "Third question?", "Trailing words"}, sentences)
}

func TestSplitSentencesSingle(t *testing.T) {
	assert.Equal(t, []string{"no terminal punctuation"}, SplitSentences("no terminal punctuation"))
	assert.Empty(t, SplitSentences(""))
}

func TestSplitSentencesKeepsPunctuationMidWord(t *testing.T) {
	// A period not followed by whitespace does not end a sentence.
	sentences := SplitSentences("Version 1.2 shipped. See notes.")

	assert.Equal(t, []string{"Version 1.2 shipped.", "See notes."}, sentences)
}

func TestFallbackBullets(t *testing.T) {
	text := "One fact here. Another fact there. A third item. A fourth item. A fifth that is dropped."

	summary := Fallback(text)

	lines := strings.Split(summary, "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "- One fact here.", lines[0])
	assert.Equal(t, "- A fourth item.", lines[3])
	assert.NotContains(t, summary, "fifth")
}

func TestFallbackFlattensNewlines(t *testing.T) {
	summary := Fallback("Line one\ncontinues here. Line two.")

	assert.Equal(t, "- Line one continues here.\n- Line two.", summary)
}

func TestFallbackCapsLongInput(t *testing.T) {
	long := strings.Repeat("x", 2000)

	summary := Fallback(long)

	assert.Equal(t, "- "+strings.Repeat("x", 800)+"...", summary)
	assert.NotEmpty(t, summary)
}

func TestFallbackEmpty(t *testing.T) {
	assert.Equal(t, "", Fallback(""))
}

func TestWrapGeminiErrorRateLimit(t *testing.T) {
	err := wrapGeminiError(&googleapi.Error{Code: 429})
	assert.True(t, errors.Is(err, ErrRateLimited))

	err = wrapGeminiError(errors.New("Quota exceeded for requests"))
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestWrapGeminiErrorService(t *testing.T) {
	err := wrapGeminiError(errors.New("internal server error"))
	assert.True(t, errors.Is(err, ErrService))
	assert.False(t, errors.Is(err, ErrRateLimited))
}
