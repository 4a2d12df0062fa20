package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultTimeout = 60 * time.Second

// Client fetches frames from the server-under-test.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration, headers map[string]string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		headers: headers,
		http:    NewHTTPClient(timeout),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET for path and returns once the whole body was received.
// Any status outside 2xx is an error.
func (c *Client) Get(ctx context.Context, path string, gzip bool) error {
	req, err := BuildRequest(ctx, c.baseURL, path, gzip, c.headers)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err = io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
