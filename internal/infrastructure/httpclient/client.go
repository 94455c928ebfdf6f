// Package httpclient wraps fasthttp with per-call deadlines, bounded retries
// and 429 handling, mapping every failure onto the entity error taxonomy.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"nadfolio/internal/domain/entity"
	"nadfolio/internal/pkg/clock"
	"nadfolio/internal/pkg/metrics"
	"nadfolio/internal/pkg/retry"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTimeout       = 5 * time.Second
	defaultRetryAfter    = time.Second
	defaultMaxRetryAfter = 10 * time.Second
)

// Config tunes the client. Zero values fall back to sane defaults.
type Config struct {
	Timeout time.Duration
	Retry   retry.Policy
	// RateLimit is the steady request rate per second; 0 disables client-side limiting.
	RateLimit     float64
	Burst         int
	MaxRetryAfter time.Duration
	UserAgent     string
}

// Request is a single outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout overrides Config.Timeout for this call.
	Timeout time.Duration
}

// Response is a completed upstream answer.
type Response struct {
	StatusCode int
	Body       []byte
	RetryAfter string
}

// Client is safe for concurrent use.
type Client struct {
	http    *fasthttp.Client
	cfg     Config
	limiter *rate.Limiter
	clock   clock.Clock
	logger  *zap.Logger
}

// New creates a Client.
func New(cfg Config, clk clock.Clock, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = defaultMaxRetryAfter
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "nadfolio/1.0"
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http: &fasthttp.Client{
			Name:                cfg.UserAgent,
			MaxIdleConnDuration: 30 * time.Second,
		},
		cfg:     cfg,
		limiter: limiter,
		clock:   clk,
		logger:  logger.Named("HTTPClient"),
	}
}

// Do executes req. Permanent 4xx answers return immediately, 5xx and
// transport failures are retried within the retry budget, and a 429 is
// retried exactly once after the advertised Retry-After.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var (
		resp    *Response
		attempt int
	)
	err := c.cfg.Retry.DoNotify(ctx, c.clock, retryable,
		func(err error, delay time.Duration) {
			c.logger.Debug("Retrying upstream request",
				zap.String("url", req.URL),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
		func(ctx context.Context) error {
			attempt++
			r, err := c.attempt(ctx, req)
			resp = r
			return err
		})

	if entity.StatusCode(err) == fasthttp.StatusTooManyRequests {
		return c.retryAfterRateLimit(ctx, req, resp)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// retryable rejects permanent 4xx answers and 429, which has its own
// Retry-After handling.
func retryable(err error) bool {
	var statusErr *entity.HTTPStatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Permanent() && statusErr.Code != fasthttp.StatusTooManyRequests
	}
	return true
}

func (c *Client) retryAfterRateLimit(ctx context.Context, req Request, limited *Response) (*Response, error) {
	wait := defaultRetryAfter
	if limited != nil {
		if secs, err := strconv.Atoi(limited.RetryAfter); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	wait = min(wait, c.cfg.MaxRetryAfter)

	c.logger.Warn("Upstream rate limited, backing off",
		zap.String("url", req.URL),
		zap.Duration("retryAfter", wait))
	if err := c.clock.Sleep(ctx, wait); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entity.ErrRateLimited, req.URL, err)
	}

	resp, err := c.attempt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entity.ErrRateLimited, req.URL, err)
	}
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, r Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.contextError(r.URL, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, c.contextError(r.URL, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.SetRequestURI(r.URL)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if len(r.Body) > 0 {
		req.Header.SetContentType("application/json")
		req.SetBody(r.Body)
	}
	host := string(req.URI().Host())

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.UpstreamRequests.WithLabelValues(host, "timeout").Inc()
			return nil, fmt.Errorf("%w: %s after %s", entity.ErrTimeout, r.URL, timeout)
		}
		metrics.UpstreamRequests.WithLabelValues(host, "network").Inc()
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrNetwork, r.URL, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Body:       append([]byte(nil), resp.Body()...),
		RetryAfter: string(resp.Header.Peek("Retry-After")),
	}
	metrics.UpstreamRequests.WithLabelValues(host, strconv.Itoa(out.StatusCode)).Inc()

	if out.StatusCode < 200 || out.StatusCode >= 300 {
		body := out.Body
		if len(body) > 256 {
			body = body[:256]
		}
		return out, &entity.HTTPStatusError{Code: out.StatusCode, URL: r.URL, Body: string(body)}
	}
	return out, nil
}

func (c *Client) contextError(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", entity.ErrTimeout, url, err)
	}
	return err
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, timeout time.Duration, out any) error {
	resp, err := c.Do(ctx, Request{Method: fasthttp.MethodGet, URL: url, Headers: headers, Timeout: timeout})
	if err != nil {
		return err
	}
	return decode(url, resp.Body, out)
}

// PostJSON marshals body, POSTs it and decodes the JSON answer into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body any, timeout time.Duration, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body for %s: %w", url, err)
	}
	resp, err := c.Do(ctx, Request{Method: fasthttp.MethodPost, URL: url, Headers: headers, Body: payload, Timeout: timeout})
	if err != nil {
		return err
	}
	return decode(url, resp.Body, out)
}

func decode(url string, body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrDataShape, url, err)
	}
	return nil
}
