package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// GeminiCompleter implements Completer on top of the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a Gemini client for the given API key.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("NewGeminiCompleter: %w: empty API key", ErrUnavailable)
	}
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCompleter: create genai client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model}, nil
}

// CompleteText sends the system and user prompts as one user turn and
// returns the model's text.
func (g *GeminiCompleter) CompleteText(ctx context.Context, system, user string, temperature float32) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if system != "" {
		parts = append(parts, &genai.Part{Text: system})
	}
	parts = append(parts, &genai.Part{Text: user})

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	temp := temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("CompleteText: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("CompleteText: %w: empty response from model", ErrUnavailable)
	}
	return text, nil
}
