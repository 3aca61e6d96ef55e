// Package upstream contains shared utilities for external data provider
// clients: a tuned HTTP transport with DNS caching, error typing for upstream
// responses, and a retrying GET helper.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	"github.com/sethvargo/go-retry"
)

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: 32,
		MaxConnsPerHost:     64,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// APIError represents an error response from an upstream data provider.
type APIError struct {
	Source     string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including source, status, and body.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Source, e.StatusCode, e.Body)
}

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
func ParseAPIError(source string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
}

const maxResponseBytes = 1 << 20

// GetJSON fetches a URL and returns the response body. Network errors and
// 5xx responses are retried twice with exponential backoff; 4xx responses
// fail immediately.
func GetJSON(ctx context.Context, client *http.Client, source, url string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%s: create request: %w", source, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%s: do request: %w", source, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := ParseAPIError(source, resp)
			if resp.StatusCode >= 500 {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%s: read response: %w", source, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
