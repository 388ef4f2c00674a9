// Package homeassistant mirrors switch state into Home Assistant entities.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smart-switch/internal/domain"
	"smart-switch/internal/infra"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// State is the body of a state write.
type State struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func EntityID(id uint8) string {
	return fmt.Sprintf("switch.rf_%d", id)
}

func (c *Client) Notify(ctx context.Context, change domain.StateChange) error {
	sw := change.Switch
	st := State{
		State: "off",
		Attributes: map[string]any{
			"friendly_name": fmt.Sprintf("RF switch %d", sw.ID),
			"source":        string(change.Source),
		},
	}
	if sw.Status {
		st.State = "on"
	}
	if sw.HasTimer() {
		st.Attributes["timer_id"] = sw.TimerID
		st.Attributes["on_time"] = fmt.Sprintf("%02d:%02d", sw.OnHour, sw.OnMinute)
		st.Attributes["off_time"] = fmt.Sprintf("%02d:%02d", sw.OffHour, sw.OffMinute)
	}

	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/api/states/"+EntityID(sw.ID), body); err != nil {
		return fmt.Errorf("mirroring switch %d: %w", sw.ID, err)
	}
	return nil
}

// Ping checks that the API is reachable and the token accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/", nil); err != nil {
		return fmt.Errorf("pinging home assistant: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		}
		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("home assistant API error %d (retryable): %s", resp.StatusCode, string(respBody))
		}
		if resp.StatusCode >= 400 {
			return infra.Permanent(fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody)))
		}
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return respBody, nil
}
