package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// UserAgent identifies reconx probe traffic.
const UserAgent = "reconx/0.1"

// maxBodyRead caps how much of a response body is read for length and
// title extraction. Bodies are never persisted.
const maxBodyRead = 1 << 20

// Client is the interface for the HTTP probe transport. All directory
// probing flows go through this interface.
type Client interface {
	// Do sends an HTTP request and returns the response.
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ClientOptions holds configuration for creating a new DefaultClient.
type ClientOptions struct {
	// Timeout is the default timeout for all requests.
	Timeout time.Duration

	// ProxyURL is the proxy URL (HTTP or SOCKS5).
	ProxyURL string

	// AuthHeader, when non-empty, is sent as the Authorization header
	// on every request.
	AuthHeader string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// DefaultClient is the default implementation of the Client interface,
// backed by net/http. Redirects are never followed; the Location header
// is surfaced on the response instead.
type DefaultClient struct {
	httpClient *http.Client
	opts       ClientOptions
}

var _ Client = (*DefaultClient)(nil)

// NewClient creates a new DefaultClient with the given options.
func NewClient(opts ClientOptions) (*DefaultClient, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
		// Enable HTTP/2 by default via ForceAttemptHTTP2
		ForceAttemptHTTP2: true,
	}

	// Configure proxy if provided.
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &DefaultClient{httpClient: client, opts: opts}, nil
}

// Do sends an HTTP request and returns the response. The body is read
// (bounded) so callers get a usable length and title, then discarded.
func (c *DefaultClient) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("User-Agent", UserAgent)
	if c.opts.AuthHeader != "" {
		httpReq.Header.Set("Authorization", c.opts.AuthHeader)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	// Per-request timeout overrides need a shallow client copy.
	httpClient := c.httpClient
	if req.Timeout > 0 {
		cc := *c.httpClient
		cc.Timeout = req.Timeout
		httpClient = &cc
	}

	start := time.Now()
	httpResp, err := httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyRead))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentLength: httpResp.ContentLength,
		Duration:      duration,
		URL:           httpResp.Request.URL.String(),
	}, nil
}
