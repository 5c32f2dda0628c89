// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
)

// BreakerFetcher wraps a Fetcher with a circuit breaker.
//
// Configuration:
//   - MaxRequests: 3 trial requests while half-open
//   - Interval: counts reset every minute while closed
//   - Timeout: 2 minutes open before the first trial
//   - ReadyToTrip: at least 10 requests and a failure ratio of 60% or more
//
// ErrNotFound and caller cancellation are not failures.
type BreakerFetcher struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerFetcher wraps next. name labels logs and metrics.
func NewBreakerFetcher(name string, next Fetcher) *BreakerFetcher {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerFetcher{next: next, cb: cb, name: name}
}

// State returns the breaker's current state name.
func (b *BreakerFetcher) State() string {
	return stateToString(b.cb.State())
}

func (b *BreakerFetcher) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// FetchMediaByIDs implements Fetcher.
func (b *BreakerFetcher) FetchMediaByIDs(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.FetchMediaByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	recs, ok := result.([]models.MediaRecord)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return recs, nil
}

// FetchMediaDetail implements Fetcher.
func (b *BreakerFetcher) FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.FetchMediaDetail(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	rec, ok := result.(*models.MediaRecord)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return rec, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
