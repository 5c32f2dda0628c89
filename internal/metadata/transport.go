// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
)

// Provider names as used in configuration and metric labels.
const (
	ProviderAniList = "anilist"
	ProviderJikan   = "jikan"
)

const (
	userAgent     = "shiori/1.0 (+https://github.com/tomtom215/shiori)"
	maxRetryAfter = 30 * time.Second
)

// statusError is a non-2xx response other than 404.
type statusError struct {
	Code       int
	Status     string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// httpTransport is the request plumbing shared by both providers: a
// client-side rate limiter, bounded retries with backoff, and metrics.
type httpTransport struct {
	provider  string
	client    *http.Client
	limiter   *rate.Limiter
	attempts  uint
	baseDelay time.Duration
}

func newHTTPTransport(provider string, cfg *config.MetadataConfig) *httpTransport {
	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 90
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &httpTransport{
		provider:  provider,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst),
		attempts:  uint(attempts),
		baseDelay: 500 * time.Millisecond,
	}
}

// requestFunc builds a fresh request per attempt so bodies can be replayed.
type requestFunc func(ctx context.Context) (*http.Request, error)

// do executes the request with retries and decodes the JSON body into out.
// A 404 is returned as ErrNotFound without retrying.
func (t *httpTransport) do(ctx context.Context, operation string, newReq requestFunc, out any) error {
	start := time.Now()
	err := retry.Do(
		func() error { return t.attempt(ctx, newReq, out) },
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.baseDelay),
		retry.MaxDelay(maxRetryAfter),
		retry.DelayType(t.delayFor),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Ctx(ctx).Debug().
				Str("provider", t.provider).
				Str("operation", operation).
				Uint("attempt", n+1).
				Err(err).
				Msg("Metadata request failed, retrying")
		}),
	)
	metrics.RecordMetadataRequest(t.provider, operation, time.Since(start), err)
	return err
}

func (t *httpTransport) attempt(ctx context.Context, newReq requestFunc, out any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := newReq(ctx)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &statusError{
			Code:       resp.StatusCode,
			Status:     resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// delayFor honours Retry-After on 429/503 and backs off exponentially
// otherwise.
func (t *httpTransport) delayFor(n uint, err error, cfg *retry.Config) time.Duration {
	var se *statusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter
	}
	return retry.BackOffDelay(n, err, cfg)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
