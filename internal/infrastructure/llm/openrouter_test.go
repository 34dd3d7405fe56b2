package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/cascade"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
)

func newTestClient(serverURL string) *OpenRouterClient {
	return NewOpenRouterClient(config.OpenRouterConfig{
		Endpoint: serverURL,
		APIKey:   "test-key",
	})
}

func TestOpenRouterComplete(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a concise summary"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Complete(context.Background(), cascade.Request{
		Model:       "mistralai/mistral-small-3.2-24b-instruct:free",
		Prompt:      "Summarize this.",
		MaxTokens:   800,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if text != "a concise summary" {
		t.Fatalf("unexpected text: %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.Model != "mistralai/mistral-small-3.2-24b-instruct:free" {
		t.Fatalf("unexpected model: %q", gotBody.Model)
	}
	if gotBody.MaxTokens != 800 {
		t.Fatalf("unexpected max_tokens: %d", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", gotBody.Messages)
	}
}

func TestOpenRouterStatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.Complete(context.Background(), cascade.Request{Model: "m", Prompt: "p"})
			if err == nil {
				t.Fatal("expected error")
			}

			var provErr *cascade.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %T: %v", err, err)
			}
			if provErr.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", provErr.StatusCode, tc.status)
			}
			if provErr.Retryable != tc.retryable {
				t.Fatalf("retryable = %v, want %v", provErr.Retryable, tc.retryable)
			}
		})
	}
}

func TestOpenRouterNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Complete(context.Background(), cascade.Request{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestOpenRouterMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewOpenRouterClient(config.OpenRouterConfig{})
	_, err := client.Complete(context.Background(), cascade.Request{Model: "m", Prompt: "p"})

	var provErr *cascade.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Retryable {
		t.Fatal("misconfiguration must not be retryable")
	}
}
