package http

import (
	"net/http"
	"time"
)

// Client is the outbound HTTP client shared by model and embedding providers.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Do sends the request, setting the User-Agent header when the caller left it empty.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// Standard exposes an *http.Client for SDKs that require one. Requests sent
// through it carry the same User-Agent.
func (c *Client) Standard() *http.Client {
	return &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: &userAgentTransport{client: c},
	}
}

type userAgentTransport struct {
	client *Client
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.client.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.client.userAgent)
	}
	transport := t.client.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return transport.RoundTrip(req)
}
