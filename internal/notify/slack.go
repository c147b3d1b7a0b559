package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/visitor-kiosk/internal/application"
)

const defaultAPIBaseURL = "https://slack.com/api"

// IsBotToken reports whether the value looks like a workspace bot token.
func IsBotToken(token string) bool {
	return strings.HasPrefix(token, "xoxb-")
}

// IsWebhookURL reports whether the value looks like an incoming-webhook URL.
func IsWebhookURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "https://hooks.slack.com/")
}

// DirectMessageChannel delivers alerts as a direct message via
// chat.postMessage, addressed to the recipient's workspace id.
type DirectMessageChannel struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewDirectMessageChannel builds a DM channel for the given bot token.
func NewDirectMessageChannel(token string) *DirectMessageChannel {
	return &DirectMessageChannel{
		baseURL:    defaultAPIBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint overrides the API endpoint, used by tests.
func (c *DirectMessageChannel) WithEndpoint(baseURL string, httpClient *http.Client) *DirectMessageChannel {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

func (c *DirectMessageChannel) Name() string { return "direct-message" }

func (c *DirectMessageChannel) Send(ctx context.Context, recipient application.RecipientEntry, text string) error {
	if recipient.ID == "" {
		return fmt.Errorf("recipient has no workspace id")
	}

	payload, err := json.Marshal(map[string]string{
		"channel": recipient.ID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat.postMessage returned status %d", resp.StatusCode)
	}

	var decoded struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode chat.postMessage response: %w", err)
	}
	if !decoded.OK {
		return fmt.Errorf("chat.postMessage rejected: %s", decoded.Error)
	}
	return nil
}

// WebhookChannel delivers alerts by posting to an incoming webhook. The
// webhook decides where the message lands, so the recipient is only named in
// the text.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

// NewWebhookChannel builds a webhook channel for the given URL.
func NewWebhookChannel(rawURL string) *WebhookChannel {
	return &WebhookChannel{
		url:        rawURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the HTTP client, used by tests.
func (c *WebhookChannel) WithHTTPClient(httpClient *http.Client) *WebhookChannel {
	c.httpClient = httpClient
	return c
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, recipient application.RecipientEntry, text string) error {
	if recipient.DisplayName != "" {
		text = fmt.Sprintf("<!here> Alert for *%s*:\n%s", recipient.DisplayName, text)
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
