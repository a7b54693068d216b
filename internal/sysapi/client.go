package sysapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for GET requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	// maxBodySize bounds the response bodies read from the master
	maxBodySize = 64 << 10
)

// API paths.
const (
	PathInfo     = "/api/v1"
	PathSystem   = "/api/v1/system"
	PathWiFi     = "/api/v1/system/wifi"
	PathReboot   = "/api/v1/system/reboot"
	PathIdentify = "/api/v1/system/identify"
)

// Client is an HTTP client for the system API of one master
type Client struct {
	// BaseURL is the scheme and host of the master (e.g. "https://192.168.4.1")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for GET requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after every failed attempt
	UseExponentialBackoff bool

	// UserAgent is sent with every request when set
	UserAgent string

	host string
}

// NewClient creates a client for the master at host. secure selects https.
// The master serves a self-signed certificate, so certificate verification is
// disabled for https; use SetTLSConfig to pin a certificate instead.
func NewClient(host string, secure bool) *Client {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	c := NewClientWithURL(fmt.Sprintf("%s://%s", scheme, host))
	if secure {
		c.SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // device certificate is self-signed
	}
	return c
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	return &Client{
		BaseURL:               baseURL,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		host:                  host,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// SetTLSConfig sets the TLS configuration used for https requests
func (c *Client) SetTLSConfig(cfg *tls.Config) {
	c.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: cfg,
	}
}

// GetInfo reads the device information
func (c *Client) GetInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.getWithRetry(ctx, PathInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetNetwork reads the network settings and link state
func (c *Client) GetNetwork(ctx context.Context) (*NetworkConfig, error) {
	var cfg NetworkConfig
	if err := c.getWithRetry(ctx, PathWiFi, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetNetwork updates hostname, SSID and/or password. The new settings take
// effect after a reboot; the returned configuration is what the master stored.
func (c *Client) SetNetwork(ctx context.Context, update *NetworkUpdate) (*NetworkConfig, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(update)
	if err != nil {
		return nil, NewParseError("failed to encode network update", err)
	}

	var cfg NetworkConfig
	if err := c.do(ctx, http.MethodPut, PathSystem, body, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Reboot asks the master to restart. The master answers before it resets.
func (c *Client) Reboot(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, PathReboot, nil, nil)
}

// Identify makes the master blink its identification LED
func (c *Client) Identify(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, PathIdentify, nil, nil)
}

// getWithRetry performs a GET with exponential backoff on retryable errors
func (c *Client) getWithRetry(ctx context.Context, path string, out any) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", c.host, ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		logging.Debug("Retrying system API request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return lastErr
}

// do performs a single request. out may be nil when no body is expected.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("failed to create %s request", method), c.host, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("%s %s failed", method, path), c.host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return NewNetworkError("failed to read response body", c.host, err)
	}

	logging.Debug("System API response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("length", len(data)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewHTTPError(resp.StatusCode, fmt.Sprintf("%s %s returned status %d", method, path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if len(data) == 0 {
		return NewParseError(fmt.Sprintf("%s %s returned an empty body", method, path), nil)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}
