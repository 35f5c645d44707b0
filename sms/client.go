/*
Package sms delivers reminder messages over the Twilio message API.

PURPOSE:
  Implements the notify.Sender capability for the SMS channel. The client
  posts form-encoded requests to the Twilio Messages endpoint and treats
  any non-2xx response as a send failure.

The transport contract is intentionally thin: delivery receipts, retries,
and carrier behavior are out of scope for the engine.

SEE ALSO:
  - notify/sender.go: The Sender capability
  - email/client.go: The email counterpart
*/
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://api.twilio.com"

// Client sends SMS messages through the Twilio REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
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

// NewClient creates an SMS client. from is the sending phone number.
func NewClient(accountSID, authToken, from string, opts ...Option) *Client {
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if credentials are set.
func (c *Client) Configured() bool {
	return c.accountSID != "" && c.authToken != ""
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts one message to the target phone number.
func (c *Client) Send(ctx context.Context, target, message string) error {
	if !c.Configured() {
		return fmt.Errorf("sms client not configured: missing account credentials")
	}

	form := url.Values{}
	form.Set("To", target)
	form.Set("From", c.from)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("sms api error %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("sms api error: status %d", resp.StatusCode)
	}
	return nil
}
