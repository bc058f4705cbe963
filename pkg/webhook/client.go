// Package webhook provides a simple client for posting chat notifications to incoming webhooks.
//
// The payload shape is accepted by Slack, Mattermost and Rocket.Chat incoming hooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client posts messages to webhook URLs.
type Client struct {
	client *http.Client // HTTP client used to make requests
}

// NewClient creates a new Client whose requests give up after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
	}
}

// postMessageRequest represents the webhook payload.
type postMessageRequest struct {
	Title string `json:"title,omitempty"` // message title
	Text  string `json:"text"`            // message text
}

// Post sends a message to the webhook URL.
//
// It returns an error if the request fails or the endpoint responds with a non-2xx status.
func (c *Client) Post(ctx context.Context, url, title, text string) error {
	body, err := json.Marshal(postMessageRequest{Title: title, Text: text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}

	return nil
}
