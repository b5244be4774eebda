// Package connectivity holds the outbound delivery plumbing shared by the
// notification channels: a Handler posts a payload somewhere, and
// middlewares add timeouts, retries, circuit breaking and logging around it.
//
//	h := connectivity.Chain(
//		connectivity.WithCircuitBreaker(cb, "discord"),
//		connectivity.WithRetry(3, time.Second, logger),
//		connectivity.Timeout(10*time.Second),
//	)(connectivity.HTTPPost(client, webhookURL, "application/json"))
package connectivity

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/clearwatch/safenet"
)

// Handler delivers a payload and returns the remote response body.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// maxResponseBody caps how much of a remote response is read (1 MiB).
const maxResponseBody int64 = 1 << 20

// RequestOption decorates an outbound request, typically with headers
// derived from the payload such as a signature.
type RequestOption func(req *http.Request, payload []byte)

// HTTPPost returns a Handler that POSTs the payload to endpoint. Non-2xx
// answers become *ErrStatus; a 429 carries the server's Retry-After hint.
func HTTPPost(client *http.Client, endpoint, contentType string, opts ...RequestOption) Handler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("connectivity/http: create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		for _, o := range opts {
			o(req, payload)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("connectivity/http: do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := safenet.LimitedReadAll(resp.Body, maxResponseBody)
		if err != nil {
			return nil, fmt.Errorf("connectivity/http: read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &ErrStatus{
				Code:       resp.StatusCode,
				Body:       string(body),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return body, nil
	}
}

// parseRetryAfter reads a Retry-After header expressed in seconds.
// Fractional values are accepted since Discord sends them.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
