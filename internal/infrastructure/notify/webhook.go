package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
)

// WebhookNotifier posts progress updates as JSON to a configured URL.
// The hosting bot renders them into the room however it sees fit.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier registers the webhook endpoint.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type progressEvent struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

// Progress posts one status message for the room.
func (n *WebhookNotifier) Progress(ctx context.Context, room, message string) error {
	if n.url == "" || n.client == nil {
		return fmt.Errorf("webhook notifier misconfigured")
	}

	body, err := json.Marshal(progressEvent{Room: room, Message: message})
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}

	return nil
}
