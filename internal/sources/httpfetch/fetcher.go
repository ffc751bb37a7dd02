// Package httpfetch is the HTTP client every source adapter fetches through.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/logger"
)

const (
	// DefaultUserAgent identifies the pipeline to the sites it reads.
	DefaultUserAgent = "intel-ingest/1.0 (+https://github.com/custodia-labs/intel-ingest)"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBody caps response bodies at 16 MiB.
	DefaultMaxBody = 16 << 20

	// DefaultBackoff is the delay before the first retry. It doubles per attempt.
	DefaultBackoff = 500 * time.Millisecond

	// DefaultRate is the sustained request rate per fetcher.
	DefaultRate = 2.0
)

// Config holds fetcher settings. Zero values take the defaults, except
// Retries, which defaults to zero retries.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	MaxBody   int64
	Rate      float64
}

// Fetcher performs rate limited GET requests with bounded retries.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	retries   int
	backoff   time.Duration
	maxBody   int64
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		userAgent: cfg.UserAgent,
		retries:   cfg.Retries,
		backoff:   cfg.Backoff,
		maxBody:   cfg.MaxBody,
	}
}

// Get fetches url and returns the body. Transport failures and responses
// with status >= 400 wrap domain.ErrNetwork. Context cancellation is
// returned as the context error.
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			delay := f.backoff << (attempt - 1)
			logger.Debug("httpfetch: retry %d/%d for %s in %s", attempt, f.retries, url, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retry, err := f.get(ctx, url, header)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

func (f *Fetcher) get(ctx context.Context, url string, header http.Header) ([]byte, bool, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("%w: build request for %s: %w", domain.ErrNetwork, url, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: GET %s: %w", domain.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, isRetryableStatus(resp.StatusCode),
			fmt.Errorf("%w: GET %s: %w", domain.ErrNetwork, url, &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read %s: %w", domain.ErrNetwork, url, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, false, fmt.Errorf("%w: GET %s: %w", domain.ErrNetwork, url, &BodyTooLargeError{Limit: f.maxBody})
	}
	return body, false, nil
}

// BodyTooLargeError reports a response body longer than the fetcher's cap.
type BodyTooLargeError struct {
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeds %d bytes", e.Limit)
}

// StatusError reports an HTTP error status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d %s", e.Code, http.StatusText(e.Code))
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// isRetryableStatus reports whether a status is a temporary failure.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusBadGateway,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout:
		return true
	}
	return false
}

// Getter is the fetch capability adapters depend on.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
}

var _ Getter = (*Fetcher)(nil)
