package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sydlexius/cytherea/internal/version"
)

const defaultMaxBody = 2 << 20

// UserAgent identifies this tool to upstream services.
func UserAgent() string {
	return fmt.Sprintf("Cytherea/%s (https://github.com/sydlexius/cytherea)", version.Version)
}

// Fetcher performs rate-limited, retried GET requests for one provider and
// maps HTTP status codes onto the typed provider errors.
type Fetcher struct {
	provider ProviderName
	client   *http.Client
	limiter  *RateLimiterMap
	logger   *slog.Logger
	maxBody  int64
	retries  uint64
	backoff  time.Duration
}

// NewFetcher creates a fetcher with a 15 second client timeout and two
// retries of transient failures.
func NewFetcher(name ProviderName, limiter *RateLimiterMap, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		provider: name,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  limiter,
		logger:   logger,
		maxBody:  defaultMaxBody,
		retries:  2,
		backoff:  500 * time.Millisecond,
	}
}

// WithRetries sets the number of retries and the initial backoff.
func (f *Fetcher) WithRetries(n uint64, backoff time.Duration) *Fetcher {
	f.retries = n
	f.backoff = backoff
	return f
}

// WithTimeout sets the HTTP client timeout.
func (f *Fetcher) WithTimeout(d time.Duration) *Fetcher {
	f.client = &http.Client{Timeout: d}
	return f
}

// Response is a raw HTTP response body with its status.
type Response struct {
	Status int
	Body   []byte
}

// Get fetches reqURL and returns the body of a 200 response. 404 maps to
// ErrNotFound, 401/403 to ErrAuthRequired, 429 and 5xx to
// ErrProviderUnavailable (retried).
func (f *Fetcher) Get(ctx context.Context, reqURL string, header http.Header) ([]byte, error) {
	var body []byte
	err := f.retry(ctx, func(ctx context.Context) error {
		resp, err := f.do(ctx, reqURL, header)
		if err != nil {
			return err
		}
		switch {
		case resp.Status == http.StatusOK:
			body = resp.Body
			return nil
		case resp.Status == http.StatusNotFound:
			return &ErrNotFound{Provider: f.provider, ID: reqURL}
		case resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden:
			return &ErrAuthRequired{Provider: f.provider}
		case resp.Status == http.StatusTooManyRequests || resp.Status >= 500:
			return &ErrProviderUnavailable{
				Provider:   f.provider,
				Cause:      fmt.Errorf("HTTP %d", resp.Status),
				RetryAfter: 2 * time.Second,
			}
		default:
			return &ErrProviderUnavailable{
				Provider: f.provider,
				Cause:    fmt.Errorf("unexpected HTTP %d", resp.Status),
			}
		}
	})
	return body, err
}

// GetRaw fetches reqURL and returns the response whatever its status, so
// scrapers can inspect error pages. Only transport failures are retried.
func (f *Fetcher) GetRaw(ctx context.Context, reqURL string, header http.Header) (*Response, error) {
	var out *Response
	err := f.retry(ctx, func(ctx context.Context) error {
		resp, err := f.do(ctx, reqURL, header)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

func (f *Fetcher) retry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(f.retries, retry.NewExponential(f.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		var unavailable *ErrProviderUnavailable
		if errors.As(err, &unavailable) && ctx.Err() == nil {
			f.logger.Debug("retrying", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
}

// do executes one GET with rate limiting and standard headers.
func (f *Fetcher) do(ctx context.Context, reqURL string, header http.Header) (*Response, error) {
	if err := f.limiter.Wait(ctx, f.provider); err != nil {
		return nil, fmt.Errorf("provider %s: rate limiter: %w", f.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent())
	for k, v := range header {
		req.Header[k] = v
	}

	f.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := f.client.Do(req) //nolint:gosec // URL constructed from configured base + escaped query
	if err != nil {
		return nil, &ErrProviderUnavailable{Provider: f.provider, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &ErrProviderUnavailable{Provider: f.provider, Cause: fmt.Errorf("reading body: %w", err)}
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
