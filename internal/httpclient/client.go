// Package httpclient is the shared HTTP client used by every
// inter-service caller in SearchGram (bot → ingestor, bot → search
// engine, ingestor → bot, ingestor → search engine). It bundles a
// pooled transport, per-request JWT minting, and a 5xx retry policy
// into one reusable type (§4.3).
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/auth"
	"github.com/ZhiShengYuan/SearchGram/internal/infra/throttle"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

const (
	// DefaultTimeout covers ordinary calls.
	DefaultTimeout = 30 * time.Second
	// LongTimeout covers long-running operations such as dedup.
	LongTimeout = 600 * time.Second

	maxIdleConns        = 100
	maxIdleConnsPerHost = 20
	idleConnTimeout     = 30 * time.Second
	maxAttempts         = 3
)

// Client wraps http.Client with JWT injection and bounded 5xx retry.
// One Client is built per outbound relationship (e.g. bot -> search
// engine) and reused for the process lifetime; its transport pools
// connections across calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	signer     *auth.Signer
	audience   string
	retrier    *throttle.Throttler
}

// New builds a Client that talks to baseURL, signing every outbound
// request as aud's audience using signer.
func New(baseURL string, signer *auth.Signer, audience string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	retrier := throttle.New(1000, throttle.WithMaxRetries(maxAttempts-1))
	retrier.Start(context.Background())

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		baseURL:  baseURL,
		signer:   signer,
		audience: audience,
		retrier:  retrier,
	}
}

// retryableStatus is the server error returned by a 5xx response; the
// throttler's retry loop matches on this to keep retrying without
// treating it as a hard stop.
type retryableStatus struct {
	code int
}

func (e *retryableStatus) Error() string {
	return fmt.Sprintf("httpclient: server error, status %d", e.code)
}

// permanentError wraps any non-5xx failure; it implements
// throttle.StopRetryer so the throttler gives up immediately instead
// of burning through retry attempts on a request that will never
// succeed.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) StopRetry() bool { return true }

// doResult carries the outcome of one attempt back out of the
// throttler's fn closure, since Do only returns an error.
type doResult struct {
	statusCode int
	body       []byte
}

// DoJSON issues method against path (relative to baseURL) with body
// marshaled as JSON (nil for no body), retrying on 5xx per policy, and
// unmarshals the response into out (nil to discard the body). timeout
// overrides the client's default for this call (use LongTimeout for
// dedup).
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any, timeout time.Duration) (int, error) {
	var reqBody []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("httpclient: encode request: %w", err)
		}
		reqBody = encoded
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var result doResult
	err := c.retrier.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, callErr := c.attempt(callCtx, method, path, reqBody)
		if callErr != nil {
			return &permanentError{err: callErr}
		}
		result = *res

		if result.statusCode >= 500 {
			return &retryableStatus{code: result.statusCode}
		}
		return nil
	})
	if err != nil {
		return result.statusCode, err
	}

	if out != nil && len(result.body) > 0 {
		if err := json.Unmarshal(result.body, out); err != nil {
			return result.statusCode, fmt.Errorf("httpclient: decode response: %w", err)
		}
	}

	return result.statusCode, nil
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte) (*doResult, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.signer != nil {
		token, mintErr := c.signer.Mint(c.audience)
		if mintErr != nil {
			return nil, fmt.Errorf("httpclient: mint token: %w", mintErr)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read response body: %w", err)
	}

	if res.StatusCode >= 400 && res.StatusCode < 500 {
		logging.Warnf("httpclient: %s %s -> %d: %s", method, path, res.StatusCode, string(respBody))
	}

	return &doResult{statusCode: res.StatusCode, body: respBody}, nil
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.retrier.Stop()
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
