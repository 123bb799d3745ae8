package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"time"

	"gocloud.dev/blob"
)

// Options configures the fetcher.
type Options struct {
	// BaseTimeout is the timeout for the first attempt. It doubles after
	// every transport-level failure.
	// Default: 180s
	BaseTimeout time.Duration

	// MaxAttempts is the total number of attempts per item.
	// Default: 5
	MaxAttempts int

	// JitterMin and JitterMax bound the random sleep before the first
	// attempt, desynchronizing a burst of concurrent starts against the
	// remote service.
	// Default: [50ms, 5s)
	JitterMin time.Duration
	JitterMax time.Duration

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 100
	MaxIdleConnsPerHost int

	// UserAgent to send with download requests. Empty means Go's default.
	UserAgent string

	// Log receives per-attempt warnings. Nil disables them.
	Log *log.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		BaseTimeout:         180 * time.Second,
		MaxAttempts:         5,
		JitterMin:           50 * time.Millisecond,
		JitterMax:           5 * time.Second,
		MaxIdleConnsPerHost: 100,
	}
}

// StatusError reports a non-2xx response. Attempts that end in a
// StatusError are retried without growing the timeout.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// ExhaustedError is the terminal per-item error: all attempts failed.
type ExhaustedError struct {
	Locator  string
	Key      string
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s: giving up after %d attempts: %v", e.Locator, e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Fetcher retrieves single remote resources into a destination bucket with
// bounded retries. All mutable per-item state (attempt count, current
// timeout) lives on the stack of Fetch; a Fetcher is safe for concurrent
// use by multiple workers.
type Fetcher struct {
	client *http.Client
	bucket *blob.Bucket
	opts   Options
}

// New creates a Fetcher writing into bucket.
func New(bucket *blob.Bucket, opts Options) *Fetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Fetcher{
		// Per-attempt timeouts are enforced with context deadlines, not a
		// client-wide Timeout, because the timeout grows between attempts.
		client: &http.Client{Transport: transport},
		bucket: bucket,
		opts:   opts,
	}
}

// Fetch retrieves locator and streams the body to key in the destination
// bucket. It sleeps a random jitter, then attempts up to MaxAttempts times:
// transport failures double the timeout for the next attempt, non-2xx
// responses are retried with the timeout unchanged. On success it returns
// key; on exhaustion it returns an *ExhaustedError.
func (f *Fetcher) Fetch(ctx context.Context, locator, key string) (string, error) {
	if err := f.jitter(ctx); err != nil {
		return "", err
	}

	timeout := f.opts.BaseTimeout
	var lastErr error

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		err := f.attempt(ctx, locator, key, timeout)
		if err == nil {
			return key, nil
		}

		// A cancelled run is not a failed attempt.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		if se, ok := asStatusError(err); ok {
			f.logf("status code %d on attempt %d/%d for %s", se.Code, attempt, f.opts.MaxAttempts, locator)
			continue
		}

		timeout *= 2
		f.logf("attempt %d/%d for %s failed: %v; raising timeout to %s", attempt, f.opts.MaxAttempts, locator, err, timeout)
	}

	return "", &ExhaustedError{
		Locator:  locator,
		Key:      key,
		Attempts: f.opts.MaxAttempts,
		LastErr:  lastErr,
	}
}

// attempt performs one streamed GET with the given timeout.
func (f *Fetcher) attempt(ctx context.Context, locator, key string, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	w, err := f.bucket.NewWriter(attemptCtx, key, &blob.WriterOptions{
		ContentType: resp.Header.Get("Content-Type"),
	})
	if err != nil {
		return fmt.Errorf("open destination %s: %w", key, err)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		w.Close()
		return fmt.Errorf("stream %s: %w", locator, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	// A declared length that doesn't match what we wrote means the body
	// was truncated in transit. A later attempt overwrites the object.
	if cl := resp.ContentLength; cl >= 0 && n != cl {
		return fmt.Errorf("short body for %s: wrote %d bytes, declared %d", locator, n, cl)
	}

	return nil
}

// jitter sleeps a random duration in [JitterMin, JitterMax).
func (f *Fetcher) jitter(ctx context.Context) error {
	span := f.opts.JitterMax - f.opts.JitterMin
	if span <= 0 {
		return nil
	}
	d := f.opts.JitterMin + rand.N(span)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.opts.Log != nil {
		f.opts.Log.Printf(format, args...)
	}
}

func asStatusError(err error) (*StatusError, bool) {
	se, ok := err.(*StatusError)
	return se, ok
}
