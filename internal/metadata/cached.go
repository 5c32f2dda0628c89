// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package metadata

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/shiori/internal/cache"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
)

const detailCacheLabel = "metadata_detail"

// CachedFetcher serves FetchMediaDetail from a TTL cache and collapses
// concurrent lookups of the same id into one upstream request.
// FetchMediaByIDs always goes upstream: the poller needs fresh counts.
type CachedFetcher struct {
	next  Fetcher
	cache *cache.LRU[models.MediaID, models.MediaRecord]
	group singleflight.Group
}

// NewCachedFetcher wraps next. A size of 0 uses the cache default.
func NewCachedFetcher(next Fetcher, size int, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:  next,
		cache: cache.NewLRU[models.MediaID, models.MediaRecord](size, ttl),
	}
}

// FetchMediaByIDs implements Fetcher. Fresh results also refresh cached
// details that are already present, keeping counts consistent.
func (c *CachedFetcher) FetchMediaByIDs(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error) {
	recs, err := c.next.FetchMediaByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if cached, ok := c.cache.Get(recs[i].ID); ok {
			fresh := recs[i]
			if fresh.Synopsis == "" {
				fresh.Synopsis = cached.Synopsis
			}
			c.cache.Add(fresh.ID, fresh)
		}
	}
	return recs, nil
}

// FetchMediaDetail implements Fetcher.
func (c *CachedFetcher) FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error) {
	if rec, ok := c.cache.Get(id); ok {
		metrics.CacheHits.WithLabelValues(detailCacheLabel).Inc()
		return &rec, nil
	}
	metrics.CacheMisses.WithLabelValues(detailCacheLabel).Inc()

	v, err, _ := c.group.Do(strconv.Itoa(int(id)), func() (any, error) {
		rec, err := c.next.FetchMediaDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		c.cache.Add(id, *rec)
		return *rec, nil
	})
	if err != nil {
		return nil, err
	}
	rec := v.(models.MediaRecord)
	return &rec, nil
}

// Invalidate drops a cached detail.
func (c *CachedFetcher) Invalidate(id models.MediaID) {
	c.cache.Remove(id)
}
