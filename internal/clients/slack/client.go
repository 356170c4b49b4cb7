package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bkummer/homepi/internal/domain"
)

const (
	BaseURL = "https://slack.com/api"
)

// Client updates the user's Slack profile status.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Slack API client.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the client has a token.
func (c *Client) IsConfigured() bool {
	return c.token != ""
}

// profile is the users.profile.set payload.
type profile struct {
	StatusText       string `json:"status_text"`
	StatusEmoji      string `json:"status_emoji"`
	StatusExpiration int64  `json:"status_expiration"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// SetStatus sets the profile status text, emoji and expiration.
func (c *Client) SetStatus(ctx context.Context, st domain.Status) error {
	p := profile{
		StatusText:  st.Text,
		StatusEmoji: st.Emoji,
	}
	if !st.ExpiresAt.IsZero() {
		p.StatusExpiration = st.ExpiresAt.Unix()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	form := url.Values{"profile": {string(data)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/users.profile.set", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("API error: %s", apiResp.Error)
	}

	return nil
}
