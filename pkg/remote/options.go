package remote

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single request, including the payload download.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies the client to the server.
	DefaultUserAgent = "galaxy-sync"

	// DefaultMaxDownloadSize caps a dataset payload held in memory.
	DefaultMaxDownloadSize int64 = 1 << 30
)

// Option configures a Client.
type Option interface {
	applyClient(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) applyClient(c *Client) { f(c) }

// WithHTTPClient replaces the underlying HTTP client. Its own Timeout applies
// unless WithTimeout follows.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	})
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Client) {
		if d > 0 {
			clone := *c.httpClient
			clone.Timeout = d
			c.httpClient = &clone
		}
	})
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *Client) {
		c.userAgent = ua
	})
}

// WithMaxDownloadSize caps the bytes read from a dataset display endpoint.
func WithMaxDownloadSize(n int64) Option {
	return optionFunc(func(c *Client) {
		if n > 0 {
			c.maxDownload = n
		}
	})
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Client) {
		if l != nil {
			c.logger = l
		}
	})
}
