package deribit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// APIError represents a failed Deribit API call: a transport-level failure
// (StatusCode 0), a non-2xx status, or an error envelope in a 200 response.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("deribit api: %s", e.Message)
	}
	return fmt.Sprintf("deribit api error %d: %s", e.StatusCode, e.Message)
}

// RateLimitError is the distinct taxonomy node for HTTP 429 responses.
// It is currently retried like any other transport failure, but callers
// can match it with errors.As to apply a different policy.
type RateLimitError struct {
	APIError
}

// errorEnvelope is the JSON-RPC style error object Deribit embeds in an
// otherwise-200 response. Such errors are fatal for the call, never retried.
type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *errorEnvelope  `json:"error"`
}

// doRequest performs one HTTP GET against the given base URL.
func (c *Client) doRequest(ctx context.Context, base, path string, query url.Values) ([]byte, error) {
	fullURL := base + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: "read response: " + err.Error()}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff. All transport and
// non-2xx failures are retried up to the attempt budget; the error envelope
// is checked by the caller after a successful transport round trip.
func (c *Client) doWithRetry(ctx context.Context, base, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
			if backoff > c.backoffCap {
				backoff = c.backoffCap
			}
		}

		body, err := c.doRequest(ctx, base, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET with retries, unwraps the response envelope, and
// decodes the result payload into result.
func (c *Client) get(ctx context.Context, base, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, base, path, query)
	if err != nil {
		return err
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if env.Error != nil {
		return &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("error envelope %d: %s", env.Error.Code, env.Error.Message),
			Body:       body,
		}
	}

	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}

	return nil
}
