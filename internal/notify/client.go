package notify

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

// HeaderProvider returns extra headers for each webhook request.
type HeaderProvider func() map[string]string

// BearerToken sends token as an Authorization header when it is set.
func BearerToken(token string) HeaderProvider {
	token = strings.TrimSpace(token)
	return func() map[string]string {
		if token == "" {
			return nil
		}
		return map[string]string{"Authorization": "Bearer " + token}
	}
}

// StatusError is a non-2xx webhook answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook answered %d: %s", e.Status, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	switch e.Status {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	}
	return false
}

const (
	maxErrorBody   = 512
	baseBackoff    = 100 * time.Millisecond
	maxBackoffStep = 5
)

// Client posts events to a webhook.
type Client struct {
	url      string
	http     *fasthttp.Client
	headers  HeaderProvider
	timeout  time.Duration
	attempts int
}

type Option func(*Client)

// WithTimeout caps each attempt. A sooner context deadline still wins.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the total number of attempts per event.
func WithRetry(attempts int) Option {
	return func(c *Client) { c.attempts = attempts }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url: strings.TrimSpace(url),
		http: &fasthttp.Client{
			Name:            "cheese-review",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 16,
		},
		timeout:  10 * time.Second,
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.attempts = max(c.attempts, 1)
	return c
}

// Post sends ev as JSON. Transport failures and temporary statuses are
// retried with exponential backoff; anything else fails at once.
func (c *Client) Post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var last error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(last, ctx.Err())
			case <-time.After(backoffDuration(attempt)):
			}
		}
		last = c.attempt(ctx, body)
		if last == nil {
			return nil
		}
		var se *StatusError
		if errors.As(last, &se) && !se.Temporary() {
			return last
		}
	}
	return last
}

// backoffDuration is the wait before retry number attempt (1-based):
// 100ms doubling up to 3.2s.
func backoffDuration(attempt int) time.Duration {
	return baseBackoff << min(max(attempt-1, 0), maxBackoffStep)
}

func (c *Client) attempt(ctx context.Context, body []byte) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if k != "" && v != "" {
				req.Header.Set(k, v)
			}
		}
	}
	req.SetBodyRaw(body)

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		b := resp.Body()
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return &StatusError{Status: code, Body: string(b)}
	}
	return nil
}
