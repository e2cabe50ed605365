package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/parchmail/parchmail/internal/domain"
)

const tokenHeader = "X-Postmark-Server-Token"

// Client sends transactional email through a Postmark-compatible HTTP API.
// Every call carries the client's timeout so a stuck gateway fails fast
// instead of wedging a worker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sender     domain.EmailAddress
	token      string
}

// sendEmailRequest is the gateway wire format (PascalCase per Postmark).
type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// NewClient validates the base URL and returns a gateway client.
func NewClient(baseURL string, sender domain.EmailAddress, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway base URL %q", baseURL)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("gateway timeout must be positive, got %v", timeout)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    u.String(),
		sender:     sender,
		token:      token,
	}, nil
}

// Send posts one email to the gateway. A non-2xx response is an error;
// the body is read for the error message but otherwise discarded.
func (c *Client) Send(ctx context.Context, to domain.EmailAddress, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       to.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
