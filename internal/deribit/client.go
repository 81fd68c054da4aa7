package deribit

import (
	"log/slog"
	"net/http"
	"time"
)

// Default endpoints and request limits.
const (
	DefaultHistoryURL = "https://history.deribit.com/api/v2/public"
	DefaultMainURL    = "https://www.deribit.com/api/v2/public"

	// MaxPageCount is the largest page the history API will return.
	MaxPageCount = 1000
)

// Client provides access to the Deribit public REST APIs.
type Client struct {
	historyURL string
	mainURL    string
	httpClient *http.Client
	logger     *slog.Logger

	maxAttempts  int
	retryBackoff time.Duration
	backoffCap   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Deribit API client with bounded retry defaults:
// 3 attempts, exponential backoff base 1s capped at 10s, 30s request timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		historyURL: DefaultHistoryURL,
		mainURL:    DefaultMainURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxAttempts:  3,
		retryBackoff: time.Second,
		backoffCap:   10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHistoryURL overrides the history API base URL.
func WithHistoryURL(u string) ClientOption {
	return func(c *Client) {
		c.historyURL = u
	}
}

// WithMainURL overrides the main API base URL.
func WithMainURL(u string) ClientOption {
	return func(c *Client) {
		c.mainURL = u
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration: total attempts and base backoff.
func WithRetries(attempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
