package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/cascade"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
)

// OpenRouterClient implements cascade.Provider against OpenAI-compatible
// chat completion APIs. Model identifiers pass through unchanged, so
// OpenRouter routes like "mistralai/mistral-small-3.2-24b-instruct:free"
// work as-is.
type OpenRouterClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ cascade.Provider = (*OpenRouterClient)(nil)

// NewOpenRouterClient builds a client from configuration. The HTTP
// client carries no timeout of its own; per-attempt deadlines come from
// the caller's context.
func NewOpenRouterClient(cfg config.OpenRouterConfig) *OpenRouterClient {
	return &OpenRouterClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete posts the prompt as a single user message and returns the
// first choice's content.
func (c *OpenRouterClient) Complete(ctx context.Context, req cascade.Request) (string, error) {
	if c == nil || c.apiKey == "" || c.endpoint == "" {
		return "", &cascade.ProviderError{
			Provider:  "openrouter",
			Retryable: false,
			Err:       fmt.Errorf("openrouter client misconfigured"),
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal openrouter payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &cascade.ProviderError{
			Provider:   "openrouter",
			StatusCode: resp.StatusCode,
			Retryable:  retryableStatus(resp.StatusCode),
			Err:        fmt.Errorf("openrouter %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode openrouter response: %w", err)
	}
	if parsed.Error != nil {
		return "", &cascade.ProviderError{
			Provider:  "openrouter",
			Retryable: true,
			Err:       fmt.Errorf("openrouter: %s", parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// retryableStatus classifies HTTP status codes: rate limits and server
// errors are worth retrying, other client errors are not.
func retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		return true
	}
	return code >= 500
}
