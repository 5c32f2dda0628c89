// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package tracked maintains the persisted snapshot of every media that
// appears in one of the four lists. The snapshots are the baseline the
// update poller diffs against.
//
// A media id is in the cache if and only if it is in at least one list:
// adding a list membership inserts a freshly fetched record, removing the
// last membership prunes it. Reconcile enforces this from any starting
// point, so it also repairs a cache left inconsistent by a crash.
package tracked

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// DetailFetcher fetches one media record.
type DetailFetcher interface {
	FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error)
}

// Cache is the tracked-media cache.
type Cache struct {
	kv      kv.Store
	fetcher DetailFetcher

	mu      sync.Mutex
	records map[models.MediaID]models.TrackedMediaRecord
	want    models.Set[models.MediaID]
}

// New creates an empty cache. Call Load to read persisted records.
func New(kvStore kv.Store, fetcher DetailFetcher) *Cache {
	return &Cache{
		kv:      kvStore,
		fetcher: fetcher,
		records: make(map[models.MediaID]models.TrackedMediaRecord),
		want:    models.NewSet[models.MediaID](),
	}
}

// Load replaces the in-memory records with the persisted ones.
func (c *Cache) Load(ctx context.Context) error {
	var recs []models.TrackedMediaRecord
	if _, err := kv.GetJSON(ctx, c.kv, kv.KeyTrackedMedia, &recs); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[models.MediaID]models.TrackedMediaRecord, len(recs))
	for _, r := range recs {
		r.Synopsis = ""
		c.records[r.ID] = r
	}
	return nil
}

// Get returns the cached record for id.
func (c *Cache) Get(id models.MediaID) (models.TrackedMediaRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[id]
	return r, ok
}

// Has reports whether id is cached.
func (c *Cache) Has(id models.MediaID) bool {
	_, ok := c.Get(id)
	return ok
}

// IDs returns the cached ids.
func (c *Cache) IDs() models.Set[models.MediaID] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := models.NewSet[models.MediaID]()
	for id := range c.records {
		out.Add(id)
	}
	return out
}

// All returns every record ordered by id.
func (c *Cache) All() []models.TrackedMediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked()
}

func (c *Cache) sortedLocked() []models.TrackedMediaRecord {
	out := make([]models.TrackedMediaRecord, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reconcile makes the cached id set equal to ids: orphans are pruned and
// missing ids are fetched and inserted. A failed fetch leaves that id
// missing until the next reconcile.
func (c *Cache) Reconcile(ctx context.Context, ids models.Set[models.MediaID]) error {
	c.mu.Lock()
	c.want = ids.Clone()
	changed := false
	for id := range c.records {
		if !ids.Has(id) {
			delete(c.records, id)
			changed = true
		}
	}
	var missing []models.MediaID
	for _, id := range ids.Sorted() {
		if _, ok := c.records[id]; !ok {
			missing = append(missing, id)
		}
	}
	c.mu.Unlock()

	// Fetch outside the lock so the poller is not blocked on the network.
	fetched := make([]models.TrackedMediaRecord, 0, len(missing))
	for _, id := range missing {
		if c.fetcher == nil {
			break
		}
		rec, err := c.fetcher.FetchMediaDetail(ctx, id)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int("media_id", int(id)).Msg("Could not fetch media for tracking")
			continue
		}
		if rec == nil {
			continue
		}
		fetched = append(fetched, models.NewTrackedMediaRecord(rec))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range fetched {
		if !c.want.Has(r.ID) {
			continue
		}
		if _, ok := c.records[r.ID]; ok {
			continue
		}
		c.records[r.ID] = r
		changed = true
	}
	if !changed {
		return nil
	}
	logging.Ctx(ctx).Debug().Int("tracked", len(c.records)).Int("fetched", len(fetched)).Msg("Tracked media reconciled")
	return c.persistLocked(ctx)
}

// Replace stores new snapshots for ids that are already cached and
// persists once. Records for ids no longer cached are ignored.
func (c *Cache) Replace(ctx context.Context, recs []models.TrackedMediaRecord) error {
	if len(recs) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := false
	for _, r := range recs {
		if _, ok := c.records[r.ID]; !ok {
			continue
		}
		r.Synopsis = ""
		c.records[r.ID] = r
		changed = true
	}
	if !changed {
		return nil
	}
	return c.persistLocked(ctx)
}

// Clear drops every record from memory and storage.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[models.MediaID]models.TrackedMediaRecord)
	c.want = models.NewSet[models.MediaID]()
	return c.persistLocked(ctx)
}

func (c *Cache) persistLocked(ctx context.Context) error {
	return kv.SetJSON(ctx, c.kv, kv.KeyTrackedMedia, c.sortedLocked())
}

// OnCommit keeps the cache aligned with list memberships.
func (c *Cache) OnCommit(ctx context.Context, ev store.Event) {
	var err error
	switch ev.Reason {
	case store.ReasonSignOut:
		c.mu.Lock()
		c.records = make(map[models.MediaID]models.TrackedMediaRecord)
		c.want = models.NewSet[models.MediaID]()
		c.mu.Unlock()
		return
	case store.ReasonLoad, store.ReasonImport:
		if err = c.Load(ctx); err != nil {
			break
		}
		err = c.Reconcile(ctx, ev.Next.TrackedIDs())
	default:
		next := ev.Next.TrackedIDs()
		if ev.Prev != nil && sameIDs(ev.Prev.TrackedIDs(), next) && sameIDs(c.IDs(), next) {
			return
		}
		err = c.Reconcile(ctx, next)
	}
	if err != nil {
		logging.CtxErr(ctx, err).Str("reason", string(ev.Reason)).Msg("Tracked media update failed")
	}
}

func sameIDs(a, b models.Set[models.MediaID]) bool {
	if a.Len() != b.Len() {
		return false
	}
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}
	return true
}
