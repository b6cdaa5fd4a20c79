package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/macroscope-data/macroscope/internal/model"
)

const maxBodyBytes = 8 << 20

// sleepFunc is the sleep used between retries (injectable for tests)
var sleepFunc = time.Sleep

// Client is the shared HTTP request layer. All source clients go through it
// so timeout, retry and rate-limit behavior stays uniform.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	backoff    time.Duration
	limiter    *Limiter
}

// NewClient creates a client from the HTTP and rate-limit configuration
func NewClient(httpCfg model.HTTPConfig, rlCfg model.RateLimitConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  httpCfg.UserAgent,
		maxRetries: httpCfg.MaxRetries,
		backoff:    httpCfg.Backoff,
		limiter:    NewLimiter(rlCfg.RequestsPerSecond, rlCfg.Burst),
	}
}

// GetJSON performs a GET with retry-on-transient-failure and returns the
// response body. maxRetries counts retries after the first attempt, so the
// default of 2 allows at most 3 attempts total.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			sleepFunc(c.backoff << uint(attempt-1))
		}

		body, err := c.get(ctx, rawURL, params, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "rate limit", Err: err}
	}

	reqURL := rawURL
	if len(params) > 0 {
		reqURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "create request", Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Parent cancellation is permanent; everything else at the
		// transport level (timeout, refused, reset) is transient.
		if ctx.Err() != nil {
			return nil, &Error{Class: ClassPermanent, Op: "request", Err: ctx.Err()}
		}
		return nil, &Error{Class: ClassTransient, Op: "request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := ClassPermanent
		if transientStatus(resp.StatusCode) {
			class = ClassTransient
		}
		return nil, &Error{Class: class, StatusCode: resp.StatusCode, Op: "request"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Class: ClassTransient, Op: "read body", Err: err}
	}

	return body, nil
}
