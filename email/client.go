/*
Package email delivers reminder messages over a Postmark-style email API.

PURPOSE:
  Implements the notify.Sender capability for the email channel. The client
  posts a JSON body (From/To/Subject/HtmlBody) with a server-token header;
  any non-2xx response is a send failure.

SEE ALSO:
  - notify/sender.go: The Sender capability
  - sms/client.go: The SMS counterpart
*/
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultBaseURL = "https://api.postmarkapp.com"

// Client sends email through an HTTP email API.
type Client struct {
	serverToken string
	fromEmail   string
	subject     string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

// WithSubject sets the subject line used for outgoing messages.
func WithSubject(s string) Option {
	return func(cl *Client) {
		cl.subject = s
	}
}

// NewClient creates an email client sending from the given address.
func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		subject:     "Payment Reminder - EcoRewards",
		baseURL:     defaultBaseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type outgoingEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
}

// Send posts one message (HTML body) to the target address.
func (c *Client) Send(ctx context.Context, target, message string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := outgoingEmail{
		From:     c.fromEmail,
		To:       target,
		Subject:  c.subject,
		HtmlBody: message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			ErrorCode int    `json:"ErrorCode"`
			Message   string `json:"Message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("email api error %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("email api error: status %d", resp.StatusCode)
	}
	return nil
}
