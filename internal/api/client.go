package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Header pair sent with every JSON request so the backend returns tokens in
// the response body instead of HttpOnly cookies the client cannot read.
const (
	headerContentType = "Content-Type"
	headerHTTPOnly    = "X-Http-Only"
)

// HeaderRefreshToken carries the refresh token on refresh and logout calls.
const HeaderRefreshToken = "X-Refresh-Token"

// Client performs HTTP requests against the vidshare backend. Requests pass
// through a local throttle and a logging transport; no explicit timeout is
// configured, matching the platform-default transport behavior of the mobile
// client.
type Client struct {
	baseURL  string
	http     *http.Client
	throttle *Throttle
}

// New constructs a Client rooted at the provided base URL.
func New(baseURL string, throttle *Throttle) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: NewLoggingTransport(http.DefaultTransport),
		},
		throttle: throttle,
	}
}

// BaseURL returns the configured API origin without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewJSONRequest builds a request against the API base with the fixed JSON
// header pair attached. The body may be nil.
func (c *Client) NewJSONRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}

	req.Header.Set(headerContentType, "application/json")
	req.Header.Set(headerHTTPOnly, "false")
	return req, nil
}

// Do executes the request after waiting for throttle capacity.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.throttle.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.http.Do(req)
}
