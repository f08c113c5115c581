package relay

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout bounds a single HTTP request. The relay sets no deadline of
// its own, so a slow model holds the request open until this fires.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.SetTimeout(d)
		return nil
	}
}

// WithHTTPClient replaces the underlying *http.Client (tests use httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client must not be nil")
		}
		timeout := c.http.GetClient().Timeout
		c.http.SetTransport(hc.Transport)
		if hc.Timeout > 0 {
			timeout = hc.Timeout
		}
		c.http.SetTimeout(timeout)
		return nil
	}
}

// WithLogger sets the logger used for retries and debug dumps.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithDebugLogging logs every request and response at debug level.
// Bodies include prompts and answers; keep it off outside development.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = enabled
		return nil
	}
}

// WithListRetries sets how many times a failed conversation list fetch is
// retried after a network failure. Zero disables retries.
func WithListRetries(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("list retries must be >= 0")
		}
		c.listRetries = n
		return nil
	}
}

// WithRetryInterval sets the first backoff interval for list retries.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("retry interval must be > 0")
		}
		c.retryInterval = d
		return nil
	}
}
