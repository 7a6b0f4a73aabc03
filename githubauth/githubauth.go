// Package githubauth is a pass-through client for GitHub's OAuth device
// flow: one call issues a device/user code pair, another polls the
// token endpoint once per request. The poll translation (pending vs
// issued) is left to the HTTP layer.
package githubauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DeviceCodeURL is GitHub's device authorization endpoint.
	DeviceCodeURL = "https://github.com/login/device/code"

	// TokenURL is GitHub's token endpoint.
	TokenURL = "https://github.com/login/oauth/access_token"

	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// ErrorCodePending is GitHub's "user has not authorized yet" code.
	ErrorCodePending = "authorization_pending"
)

// Client calls GitHub's device-flow endpoints.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	scope        string

	// Endpoint overrides, used by tests.
	deviceCodeURL string
	tokenURL      string
}

// Option configures the client.
type Option func(*Client)

// WithScope sets the OAuth scope requested with the device code.
func WithScope(scope string) Option {
	return func(c *Client) {
		c.scope = scope
	}
}

// WithEndpoints overrides the GitHub endpoints. Used by tests.
func WithEndpoints(deviceCodeURL, tokenURL string) Option {
	return func(c *Client) {
		c.deviceCodeURL = deviceCodeURL
		c.tokenURL = tokenURL
	}
}

// New creates a device-flow client.
func New(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		clientID:      clientID,
		clientSecret:  clientSecret,
		deviceCodeURL: DeviceCodeURL,
		tokenURL:      TokenURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeviceCode is GitHub's device authorization response, passed through
// to the terminal client unchanged.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// TokenResult is one poll of the token endpoint. Exactly one of
// AccessToken, Pending, or ErrorCode is meaningful.
type TokenResult struct {
	AccessToken string
	Pending     bool
	ErrorCode   string
}

// RequestDeviceCode starts the device flow.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	form := url.Values{"client_id": {c.clientID}}
	if c.scope != "" {
		form.Set("scope", c.scope)
	}

	var code DeviceCode
	if err := c.postForm(ctx, c.deviceCodeURL, form, &code); err != nil {
		return nil, fmt.Errorf("device code: %w", err)
	}
	if code.DeviceCode == "" {
		return nil, fmt.Errorf("device code: empty response from GitHub")
	}
	return &code, nil
}

// PollToken checks once whether the user has authorized the device.
func (c *Client) PollToken(ctx context.Context, deviceCode string) (*TokenResult, error) {
	form := url.Values{
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
		"grant_type":  {deviceGrantType},
	}
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := c.postForm(ctx, c.tokenURL, form, &payload); err != nil {
		return nil, fmt.Errorf("token poll: %w", err)
	}

	switch {
	case payload.AccessToken != "":
		return &TokenResult{AccessToken: payload.AccessToken}, nil
	case payload.Error == ErrorCodePending:
		return &TokenResult{Pending: true}, nil
	default:
		return &TokenResult{ErrorCode: payload.Error}, nil
	}
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("github status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
