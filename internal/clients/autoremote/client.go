package autoremote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// messageTTL is how long the phone keeps an undelivered message, in
// seconds.
const messageTTL = 21600

// Client delivers messages to a family member's phone through its
// AutoRemote endpoint.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// NewClient creates a phone messaging client for one device key.
func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL: baseURL,
		key:     key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the client has an endpoint and a device key.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.key != ""
}

// Send delivers an opaque payload to the phone.
func (c *Client) Send(ctx context.Context, payload string) error {
	query := url.Values{
		"key":     {c.key},
		"message": {payload},
		"ttl":     {fmt.Sprint(messageTTL)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/sendmessage?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
