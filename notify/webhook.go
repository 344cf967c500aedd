package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

type webhookPayload struct {
	Subject    string         `json:"subject"`
	Text       string         `json:"text"`
	Source     string         `json:"source,omitempty"`
	TotalDiffs int            `json:"totalDiffs"`
	Report     *models.Report `json:"report"`
}

// WebhookNotifier POSTs the report as JSON.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NewWebhookNotifier builds a webhook notifier with its own client.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Subject:    msg.Subject,
		Text:       msg.Body,
		Source:     msg.Source,
		TotalDiffs: msg.Report.TotalDiffs(),
		Report:     msg.Report,
	})
	if err != nil {
		return &DeliveryError{Channel: "webhook", Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Channel: "webhook", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return &DeliveryError{Channel: "webhook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{Channel: "webhook", Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
	}
	return nil
}
