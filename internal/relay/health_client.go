package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// HealthClient polls a relay's /healthz endpoint.
type HealthClient struct {
	url            string
	http           *fasthttp.Client
	defaultTimeout time.Duration
	retryMax       int
}

type HealthOption func(*HealthClient)

func WithHealthTimeout(d time.Duration) HealthOption {
	return func(c *HealthClient) { c.defaultTimeout = d }
}

func WithHealthRetry(max int) HealthOption {
	return func(c *HealthClient) { c.retryMax = max }
}

func NewHealthClient(url string, opts ...HealthOption) *HealthClient {
	c := &HealthClient{
		url:            url,
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches and decodes the health document. Transport errors and
// 5xx responses are retried with backoff.
func (c *HealthClient) Check(ctx context.Context) (*Health, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.url)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepWithContext(ctx, backoffDuration(attempt-1)); err != nil {
				return nil, lastErr
			}
		}
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("health request failed: %w", err)
			continue
		}
		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("health status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if status >= 500 {
				continue
			}
			return nil, lastErr
		}
		var h Health
		if err := json.Unmarshal(resp.Body(), &h); err != nil {
			return nil, fmt.Errorf("decode health: %w", err)
		}
		return &h, nil
	}
	if lastErr == nil {
		lastErr = errors.New("health check failed")
	}
	return nil, lastErr
}

func (c *HealthClient) deadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
