package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/cascade"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
)

// GeminiClient implements cascade.Provider on the Gemini API. It is
// registered under the "gemini" prefix, so a cascade entry like
// "gemini/gemini-2.0-flash" routes here with model "gemini-2.0-flash".
type GeminiClient struct {
	client *genai.Client
}

var _ cascade.Provider = (*GeminiClient)(nil)

// NewGeminiClient builds the underlying SDK client once; Complete
// reuses it across attempts.
func NewGeminiClient(cfg config.GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Complete generates a single response for the prompt.
func (c *GeminiClient) Complete(ctx context.Context, req cascade.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", &cascade.ProviderError{
			Provider:  "gemini",
			Retryable: retryableGeminiError(err),
			Err:       fmt.Errorf("generate content: %w", err),
		}
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", nil
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// retryableGeminiError spots rate limiting and transient server trouble
// in the SDK's error strings.
func retryableGeminiError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"429", "quota", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "500", "503"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
