package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPValidator asks an external session service who owns a token:
// GET <base>/session with "Authorization: <token>" answers {"username": "..."}.
type HTTPValidator struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*HTTPValidator)

func WithTimeout(d time.Duration) Option {
	return func(v *HTTPValidator) { v.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(v *HTTPValidator) { v.retryMax = max }
}

func WithMaxConnsPerHost(n int) Option {
	return func(v *HTTPValidator) { v.http.MaxConnsPerHost = n }
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(v *HTTPValidator) { v.http.Dial = dial }
}

func NewHTTPValidator(baseURL string, opts ...Option) *HTTPValidator {
	v := &HTTPValidator{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type sessionResponse struct {
	Username string `json:"username"`
}

func (v *HTTPValidator) ResolveUser(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	var out sessionResponse
	if err := v.doJSON(ctx, fasthttp.MethodGet, "/session", token, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Username) == "" {
		return "", ErrUnauthorized
	}
	return strings.TrimSpace(out.Username), nil
}

func (v *HTTPValidator) doJSON(ctx context.Context, method, path, token string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(v.baseURL + path)
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	attempts := v.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := v.http.DoDeadline(req, resp, v.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("auth request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		switch {
		case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden || status == fasthttp.StatusNotFound:
			return ErrUnauthorized
		case status < 200 || status >= 300:
			lastErr = fmt.Errorf("auth api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode auth response: %w", err)
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (v *HTTPValidator) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(v.defaultTimeout)
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
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
