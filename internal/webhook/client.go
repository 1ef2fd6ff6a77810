// Package webhook provides the outbound n8n automation client. Every call
// is a single best-effort POST — no retry, no queueing.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const sourceHeader = "sullae-firebase"

// Client posts built events to the configured n8n base URL.
// Implements event.WebhookSink. Nil-safe: a nil client is disabled.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a webhook client. Returns nil if baseURL is empty
// (webhook dispatch disabled; push dispatch is unaffected).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool { return c != nil }

// Post serializes the payload and POSTs it to {baseURL}/{path}. Any
// non-2xx status or transport error is returned as a plain error; the
// caller treats it as a logged, non-fatal delivery failure.
func (c *Client) Post(ctx context.Context, path string, payload any) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Source", sourceHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: unexpected status %s", path, resp.Status)
	}
	return nil
}
