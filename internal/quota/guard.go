// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package quota decides whether a list data write may be persisted.
//
// The guard compares an external storage usage estimate against the
// profile's soft quota. It never returns an error: when usage cannot be
// estimated the write is permitted (fail-open) unless the serialized-size
// fallback policy is configured.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
)

// ErrUnavailable is returned by estimators that cannot measure usage on
// this platform.
var ErrUnavailable = errors.New("storage estimation unavailable")

// Usage is one storage estimate.
type Usage struct {
	UsedBytes  int64
	QuotaBytes int64
}

// Estimator reports current storage usage.
type Estimator interface {
	Estimate(ctx context.Context) (Usage, error)
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(ctx context.Context) (Usage, error)

// Estimate implements Estimator.
func (f EstimatorFunc) Estimate(ctx context.Context) (Usage, error) {
	return f(ctx)
}

// Policy selects the behaviour when no estimate is available.
type Policy string

const (
	// PolicyOpen permits every write when usage is unknown.
	PolicyOpen Policy = "open"

	// PolicySerialized falls back to the JSON-encoded size of the candidate.
	PolicySerialized Policy = "serialized"
)

// ParsePolicy validates a policy name. Empty selects PolicyOpen.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyOpen:
		return PolicyOpen, nil
	case PolicySerialized:
		return PolicySerialized, nil
	}
	return "", fmt.Errorf("unknown quota fallback policy %q", s)
}

// Decision sources.
const (
	SourceEstimator   = "estimator"
	SourceSerialized  = "serialized"
	SourceUnavailable = "unavailable"
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	UsedBytes  int64
	QuotaBytes int64
	Source     string
}

// Guard checks candidate states against their storage quota.
type Guard struct {
	estimator Estimator
	policy    Policy
	timeout   time.Duration
}

// Option configures a Guard.
type Option func(*Guard)

// WithPolicy sets the fallback policy.
func WithPolicy(p Policy) Option {
	return func(g *Guard) { g.policy = p }
}

// WithTimeout bounds a single estimate call.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) { g.timeout = d }
}

// NewGuard creates a guard. A nil estimator means estimation is unavailable.
func NewGuard(estimator Estimator, opts ...Option) *Guard {
	g := &Guard{
		estimator: estimator,
		policy:    PolicyOpen,
		timeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check reports whether candidate may be written.
func (g *Guard) Check(ctx context.Context, candidate *models.ListData) (d Decision) {
	quotaBytes := models.DefaultStorageQuota
	if candidate != nil && candidate.StorageQuota > 0 {
		quotaBytes = candidate.StorageQuota
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Interface("panic", r).Msg("Quota estimator panicked, permitting write")
			d = Decision{Allowed: true, QuotaBytes: quotaBytes, Source: SourceUnavailable}
		}
		metrics.RecordQuotaCheck(d.Source, d.Allowed, d.UsedBytes)
	}()

	if usage, ok := g.estimate(ctx); ok {
		return Decision{
			Allowed:    usage.UsedBytes <= quotaBytes,
			UsedBytes:  usage.UsedBytes,
			QuotaBytes: quotaBytes,
			Source:     SourceEstimator,
		}
	}

	if g.policy == PolicySerialized && candidate != nil {
		data, err := json.Marshal(candidate)
		if err == nil {
			used := int64(len(data))
			return Decision{
				Allowed:    used <= quotaBytes,
				UsedBytes:  used,
				QuotaBytes: quotaBytes,
				Source:     SourceSerialized,
			}
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Could not size candidate state, permitting write")
	}

	return Decision{Allowed: true, QuotaBytes: quotaBytes, Source: SourceUnavailable}
}

func (g *Guard) estimate(ctx context.Context) (Usage, bool) {
	if g.estimator == nil {
		return Usage{}, false
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	usage, err := g.estimator.Estimate(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			logging.Ctx(ctx).Debug().Err(err).Msg("Storage estimate failed")
		}
		return Usage{}, false
	}
	return usage, true
}

// BreachNotification builds the storage notification describing a denied
// write.
func BreachNotification(d Decision, source string, at time.Time) models.Notification {
	return models.NewNotification(models.StoragePayload{
		UsedBytes:  d.UsedBytes,
		QuotaBytes: d.QuotaBytes,
		Source:     source,
	}, at)
}
