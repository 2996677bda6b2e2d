package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// IdempotencyHeader marks a non-GET request as safe to replay. Mercado Pago
// deduplicates preference creation on the same header.
const IdempotencyHeader = "X-Idempotency-Key"

// HTTPClient performs outbound calls with a per-attempt timeout, bounded
// retries and a circuit breaker shared by every call to the same target.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
}

// Options configures NewHTTPClient.
type Options struct {
	Target              string
	Timeout             time.Duration
	MaxAttempts         int
	BaseBackoff         time.Duration
	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration
}

// NewHTTPClient builds a traced client guarded by its own breaker.
func NewHTTPClient(opts Options) HTTPClient {
	return HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		},
		Breaker:     NewBreaker(opts.CircuitMinRequests, opts.CircuitFailureRatio, opts.CircuitOpenFor).WithTarget(opts.Target),
		BaseBackoff: opts.BaseBackoff,
		MaxAttempts: opts.MaxAttempts,
		Jitter:      0.2,
		Timeout:     opts.Timeout,
	}
}

// Do sends req. Responses below 500 are returned as is, including 4xx.
// Only GET, HEAD and requests carrying IdempotencyHeader are retried; an
// open breaker yields ErrOpenCircuit without touching the network.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	attempts := 1
	if cl.MaxAttempts > 1 && replayable(req) {
		attempts = cl.MaxAttempts
	}
	next, err := snapshot(req)
	if err != nil {
		return nil, err
	}

	target := breaker.Target()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, Backoff(cl.BaseBackoff, attempt-1, cl.Jitter)); err != nil {
				return nil, err
			}
		}
		if !breaker.Allow(ctx) {
			OutboundAttempts.WithLabelValues(target, "rejected").Inc()
			return nil, ErrOpenCircuit
		}
		resp, err := cl.attempt(ctx, next(ctx))
		if err == nil {
			breaker.Report(ctx, true)
			OutboundAttempts.WithLabelValues(target, "ok").Inc()
			return resp, nil
		}
		breaker.Report(ctx, false)
		OutboundAttempts.WithLabelValues(target, "error").Inc()
		lastErr = err
	}
	return nil, lastErr
}

// attempt runs one round trip and treats 5xx as failure. The attempt context
// stays alive until the caller closes the body.
func (cl HTTPClient) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	resp, err := cl.Client.Do(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("resilience: upstream status %s", resp.Status)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func replayable(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead:
		return true
	}
	return req.Header.Get(IdempotencyHeader) != ""
}

// snapshot buffers the request body once and returns a factory producing a
// fresh copy of req per attempt.
func snapshot(req *http.Request) (func(context.Context) *http.Request, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		src := req.Body
		if req.GetBody != nil {
			fresh, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			src = fresh
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return nil, fmt.Errorf("resilience: read request body: %w", err)
		}
		body = data
	}
	return func(ctx context.Context) *http.Request {
		clone := req.Clone(ctx)
		if body != nil {
			clone.Body = io.NopCloser(bytes.NewReader(body))
			clone.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}
		return clone
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
