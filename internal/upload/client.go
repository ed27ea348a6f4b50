package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned by FetchBlob when the remote has no value for a key.
var ErrNotFound = errors.New("remote key not found")

// Client talks to the KV endpoint of a remote babytrack server.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the remote server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: time.Second,
	}
}

func (c *Client) kvURL(key string) string {
	return c.serverURL + "/api/v1/kv/" + url.PathEscape(key)
}

// PushBlob PUTs value under key on the remote server.
// Retries up to 3 times with exponential backoff on failure.
func (c *Client) PushBlob(ctx context.Context, key string, value []byte) error {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.kvURL(key), bytes.NewReader(value))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
			// Retrying will not help.
			return fmt.Errorf("push %s rejected (status %d): %s", key, resp.StatusCode, body)
		}
		lastErr = fmt.Errorf("push %s failed (status %d): %s", key, resp.StatusCode, body)
	}

	return fmt.Errorf("after 3 attempts: %w", lastErr)
}

// FetchBlob GETs the value stored under key on the remote server.
func (c *Client) FetchBlob(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.kvURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("fetch %s failed (status %d): %s", key, resp.StatusCode, body)
}
