package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"secure-mail-digest-go/internal/config"
)

// Gemini summarizes via the Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini summarizer with permissive safety settings.
// Email bodies routinely trip content filters, and everything sent here has
// already been redacted and cleared by the confidentiality check.
func NewGemini(ctx context.Context, cfg config.SummarizerConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	model.SetTemperature(0.3)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	return &Gemini{client: client, model: model}, nil
}

// Summarize asks Gemini for a 2-3 sentence plain-language summary.
func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(`Summarize this email in 2-3 SHORT sentences. Be direct and simple.

Email:
%s

Give a brief summary in plain language. No bullet points, no labels, no formatting. Just 2-3 simple sentences explaining what the email is about.`, text)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", wrapGeminiError(err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", ErrService)
	}
	if reason := resp.Candidates[0].FinishReason; reason != genai.FinishReasonStop {
		return "", fmt.Errorf("%w: generation stopped with reason %s", ErrService, reason)
	}

	summary := responseText(resp)
	if summary == "" {
		return "", fmt.Errorf("%w: response contains no text", ErrService)
	}
	return summary, nil
}

func wrapGeminiError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 429 {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrService, err)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
