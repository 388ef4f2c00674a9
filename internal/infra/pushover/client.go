package pushover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smart-switch/internal/domain"
	"smart-switch/internal/infra"
)

const defaultURL = "https://api.pushover.net/1/messages.json"

type Client struct {
	token      string
	userKey    string
	url        string
	title      string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultURL)
}

func NewClientWithURL(token, userKey, apiURL string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		url:        apiURL,
		title:      "Smart Switch",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// Message renders a state change as a short human readable line.
func Message(change domain.StateChange) string {
	state := "off"
	if change.Switch.Status {
		state = "on"
	}
	return fmt.Sprintf("Switch %d turned %s (%s)", change.Switch.ID, state, change.Source)
}

func (c *Client) Notify(ctx context.Context, change domain.StateChange) error {
	return c.Send(ctx, Message(change))
}

// Send posts message. Missing credentials make it a no-op.
func (c *Client) Send(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", c.title)
	body := data.Encode()

	return infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(body))
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("pushover error (retryable): %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return infra.Permanent(fmt.Errorf("pushover error: %s", resp.Status))
		}
		return nil
	})
}
