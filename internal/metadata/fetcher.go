// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package metadata fetches catalog records from AniList or Jikan.
//
// A provider client is always wrapped in a circuit breaker, and detail
// lookups go through a TTL cache with request coalescing:
//
//	provider client -> BreakerFetcher -> CachedFetcher
//
// Batch lookups (used by the update poller) are never served from cache.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/models"
)

// ErrNotFound is returned when the provider has no record for an id.
var ErrNotFound = errors.New("media not found")

// Fetcher is the catalog lookup used by the poller and tracked cache.
type Fetcher interface {
	// FetchMediaByIDs returns the records found for ids in one logical
	// request. Ids the provider does not know are simply absent.
	FetchMediaByIDs(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error)

	// FetchMediaDetail returns one full record or ErrNotFound.
	FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error)
}

// New builds the configured provider with breaker and detail cache.
func New(cfg *config.MetadataConfig) (*CachedFetcher, error) {
	var client Fetcher
	switch cfg.Provider {
	case ProviderAniList:
		client = NewAniListClient(cfg)
	case ProviderJikan:
		client = NewJikanClient(cfg)
	default:
		return nil, fmt.Errorf("unknown metadata provider %q", cfg.Provider)
	}

	breaker := NewBreakerFetcher(cfg.Provider+"-api", client)
	return NewCachedFetcher(breaker, cfg.CacheSize, cfg.CacheTTL), nil
}
