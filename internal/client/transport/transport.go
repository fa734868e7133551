package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"etgcatalog/internal/metrics"
)

type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	HTTPClient *http.Client
	Retries    int
	BaseDelay  time.Duration // backoff base
	MaxDelay   time.Duration // backoff cap
	// minimum spacing between outbound requests, 0 disables pacing
	MinInterval time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

func (o Options) validate() error {
	if o.HTTPClient == nil {
		return fmt.Errorf("HTTPClient is nil")
	}
	if o.Retries < 0 {
		return fmt.Errorf("Retries must be >= 0")
	}
	if o.MinInterval < 0 {
		return fmt.Errorf("MinInterval must be >= 0")
	}
	return nil
}

// Build stacks the layers as retry -> pacing -> http, so every retry attempt is paced too.
func Build(opts Options) (Transport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 8 * time.Second
	}

	var t Transport = &HTTPTransport{Client: opts.HTTPClient, Metrics: opts.Metrics}

	if opts.MinInterval > 0 {
		t = NewPacingTransport(t, opts.MinInterval)
	}

	if opts.Retries > 0 {
		t = &RetryTransport{
			Base:       t,
			MaxRetries: opts.Retries,
			BaseDelay:  opts.BaseDelay,
			MaxDelay:   opts.MaxDelay,
			Log:        opts.Logger,
			Metrics:    opts.Metrics,
		}
	}

	return t, nil
}

// HTTP transport

type HTTPTransport struct {
	Client  *http.Client
	Metrics *metrics.Metrics
}

func (h *HTTPTransport) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := h.Client.Do(req)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	h.Metrics.ObserveUpstream(status, err, time.Since(start))

	return resp, err
}

// pacing transport

type PacingTransport struct {
	Base    Transport
	limiter *rate.Limiter
}

func NewPacingTransport(base Transport, interval time.Duration) *PacingTransport {
	return &PacingTransport{
		Base:    base,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (t *PacingTransport) Do(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.Base.Do(req)
}

// retry transport

// StatusError is returned once every attempt ended with a retryable status.
type StatusError struct {
	Status   int
	Attempts int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status=%d after %d attempts", e.Status, e.Attempts)
}

var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

type RetryTransport struct {
	Base       Transport
	MaxRetries int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	Log     *slog.Logger
	Metrics *metrics.Metrics
}

func (r *RetryTransport) Do(req *http.Request) (*http.Response, error) {
	if !isIdempotent(req.Method) {
		return r.Base.Do(req)
	}

	l := r.Log
	if l == nil {
		l = slog.Default()
	}

	var lastErr error

	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}

		resp, err := r.Base.Do(req.Clone(req.Context()))
		if err == nil && resp != nil {
			if !shouldRetryStatus(resp.StatusCode) {
				return resp, nil
			}

			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 32*1024))
			_ = resp.Body.Close()

			lastErr = &StatusError{Status: resp.StatusCode, Attempts: attempt + 1}

			l.Warn("retryable status",
				"attempt", attempt+1,
				"max_attempts", r.MaxRetries+1,
				"status", resp.StatusCode,
				"url", req.URL.String(),
			)

			if attempt == r.MaxRetries {
				break
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				if d := retryAfterDelay(resp); d > 0 {
					r.Metrics.IncRetry()
					if err := sleepCtx(req.Context(), d); err != nil {
						return nil, err
					}
					continue
				}
			}
		} else {
			if !shouldRetryError(err) {
				return nil, err
			}
			lastErr = err

			l.Warn("retryable error",
				"attempt", attempt+1,
				"max_attempts", r.MaxRetries+1,
				"err", err,
				"url", req.URL.String(),
			)

			if attempt == r.MaxRetries {
				break
			}
		}

		r.Metrics.IncRetry()
		if err := sleepCtx(req.Context(), backoff(r.BaseDelay, r.MaxDelay, attempt)); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == ""
}

func shouldRetryStatus(code int) bool {
	_, ok := retryableStatuses[code]
	return ok
}

func shouldRetryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 8 * time.Second
	}

	d := base << attempt
	if d > max || d <= 0 {
		d = max
	}

	j := 0.5 + rand.Float64()
	return time.Duration(float64(d) * j)
}

func retryAfterDelay(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	sec, err := strconv.Atoi(ra)
	if err != nil || sec <= 0 {
		return 0
	}
	if sec > 60 {
		sec = 60
	}
	return time.Duration(sec) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
