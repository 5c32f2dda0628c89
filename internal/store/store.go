// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package store is the single point of mutation for a profile's ListData.
//
// Every change is a Mutation applied to a deep copy of the latest snapshot.
// Mutations run one at a time behind a writer lock, so no update is ever
// computed from a stale snapshot. The new snapshot is published in memory
// before the quota guard is consulted and before the write reaches the
// key-value store: readers see the change immediately, durability follows.
//
// When the guard refuses a write the in-memory change stays, persistence is
// skipped and a storage notification is appended. That notification is
// persisted by a second write which is itself quota-checked and dropped
// silently when it would also exceed the quota.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/quota"
)

var (
	// ErrNoProfile is returned by mutations before a local profile exists.
	ErrNoProfile = errors.New("no local profile")

	// ErrProfileExists is returned by CreateProfile when one is already loaded.
	ErrProfileExists = errors.New("local profile already exists")

	// ErrReminderNotFound is returned for an unknown reminder id.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrNotificationNotFound is returned for an unknown notification id.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUnknownSection is returned by ClearSection for an unknown name.
	ErrUnknownSection = errors.New("unknown section")

	// ErrQuotaExceeded is returned by side-document writes refused by the
	// quota guard. List data mutations report denial through Commit instead.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Mutation changes a private copy of the current ListData in place.
// Returning an error discards the copy; nothing is published or persisted.
type Mutation func(d *models.ListData) error

// Commit describes the outcome of one Update.
type Commit struct {
	// Data is the snapshot published by the update. It must not be modified.
	Data *models.ListData

	// Persisted is false when the quota guard refused the write or the
	// write itself failed.
	Persisted bool

	// Decision is the quota guard's verdict for the primary write.
	Decision quota.Decision
}

// Reason tells observers why the snapshot changed.
type Reason string

const (
	ReasonMutation Reason = "mutation"
	ReasonLoad     Reason = "load"
	ReasonImport   Reason = "import"
	ReasonReset    Reason = "reset"
	ReasonSignOut  Reason = "sign_out"
)

// Event is delivered to observers after a snapshot is published.
type Event struct {
	Reason Reason
	Prev   *models.ListData
	Next   *models.ListData

	// Seq numbers commits in publication order, starting at 1.
	Seq uint64
}

// Observer reacts to published snapshots. Observers run on the caller's
// goroutine after the writer lock is released, one commit at a time and in
// commit order. An observer must not call Update synchronously.
type Observer interface {
	OnCommit(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// OnCommit implements Observer.
func (f ObserverFunc) OnCommit(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Store owns the ListData aggregate of the local profile.
type Store struct {
	kv    kv.Store
	guard *quota.Guard
	now   func() time.Time

	writeMu  sync.Mutex
	snapshot atomic.Pointer[models.ListData]
	profile  atomic.Pointer[models.Profile]

	// durable is the last aggregate known to be on disk. Guarded by writeMu.
	durable *models.ListData
	// seq is the last sequence number handed out. Guarded by writeMu.
	seq uint64

	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	delivered   uint64

	obsMu     sync.RWMutex
	observers []Observer
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store backed by kvStore. A nil guard permits every write.
func New(kvStore kv.Store, guard *quota.Guard, opts ...Option) *Store {
	if guard == nil {
		guard = quota.NewGuard(nil)
	}
	s := &Store{
		kv:    kvStore,
		guard: guard,
		now:   time.Now,
	}
	s.deliverCond = sync.NewCond(&s.deliverMu)
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(models.NewListData())
	return s
}

// Subscribe registers an observer for every future snapshot change.
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// nextSeq reserves the delivery slot of a commit. Must hold writeMu.
func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// notify hands ev to every observer once all earlier commits have been
// delivered, so an observer never sees an older snapshot after a newer one.
func (s *Store) notify(ctx context.Context, seq uint64, ev Event) {
	ev.Seq = seq

	s.deliverMu.Lock()
	for s.delivered+1 != seq {
		s.deliverCond.Wait()
	}
	s.deliverMu.Unlock()

	defer func() {
		s.deliverMu.Lock()
		s.delivered = seq
		s.deliverCond.Broadcast()
		s.deliverMu.Unlock()
	}()

	s.obsMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()
	for _, o := range observers {
		o.OnCommit(ctx, ev)
	}
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Load reads the profile and its ListData from the key-value store.
// Without a stored profile the store stays empty and HasProfile is false.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()

	var profile models.Profile
	found, err := kv.GetJSON(ctx, s.kv, kv.KeyProfile, &profile)
	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("load profile: %w", err)
	}

	data := models.NewListData()
	if found {
		if _, err := kv.GetJSON(ctx, s.kv, kv.KeyListData, data); err != nil {
			s.writeMu.Unlock()
			return fmt.Errorf("load list data: %w", err)
		}
		data.Normalize()
		s.profile.Store(&profile)
	} else {
		s.profile.Store(nil)
	}

	prev := s.snapshot.Swap(data)
	s.durable = data
	seq := s.nextSeq()
	s.writeMu.Unlock()

	logging.Ctx(ctx).Info().
		Bool("profile", found).
		Int("tracked", data.TrackedIDs().Len()).
		Int("notifications", len(data.Notifications)).
		Msg("List data loaded")

	s.notify(ctx, seq, Event{Reason: ReasonLoad, Prev: prev, Next: data})
	return nil
}

// Profile returns the current local profile.
func (s *Store) Profile() (models.Profile, bool) {
	p := s.profile.Load()
	if p == nil {
		return models.Profile{}, false
	}
	return *p, true
}

// HasProfile reports whether a local profile is loaded.
func (s *Store) HasProfile() bool {
	return s.profile.Load() != nil
}

// CreateProfile creates the local profile with a full set of defaults.
func (s *Store) CreateProfile(ctx context.Context, name string) (models.Profile, error) {
	s.writeMu.Lock()
	if s.profile.Load() != nil {
		s.writeMu.Unlock()
		return models.Profile{}, ErrProfileExists
	}

	profile := models.Profile{ID: newID(), Name: name, CreatedAt: s.now().UTC()}
	data := models.NewListData()

	if err := kv.SetJSON(ctx, s.kv, kv.KeyProfile, profile); err != nil {
		s.writeMu.Unlock()
		return models.Profile{}, fmt.Errorf("persist profile: %w", err)
	}
	if err := kv.SetJSON(ctx, s.kv, kv.KeyListData, data); err != nil {
		s.writeMu.Unlock()
		return models.Profile{}, fmt.Errorf("persist list data: %w", err)
	}

	s.profile.Store(&profile)
	prev := s.snapshot.Swap(data)
	s.durable = data
	seq := s.nextSeq()
	s.writeMu.Unlock()

	logging.Ctx(ctx).Info().Str("profile", profile.Name).Msg("Local profile created")
	s.notify(ctx, seq, Event{Reason: ReasonReset, Prev: prev, Next: data})
	return profile, nil
}

// SignOut clears every persisted key and drops the profile.
func (s *Store) SignOut(ctx context.Context) error {
	s.writeMu.Lock()
	if err := s.kv.Clear(ctx); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("clear store: %w", err)
	}
	s.profile.Store(nil)
	data := models.NewListData()
	prev := s.snapshot.Swap(data)
	s.durable = nil
	seq := s.nextSeq()
	s.writeMu.Unlock()

	logging.Ctx(ctx).Info().Msg("Signed out, local data cleared")
	s.notify(ctx, seq, Event{Reason: ReasonSignOut, Prev: prev, Next: data})
	return nil
}

// Reset restores ListData to defaults while keeping the profile.
func (s *Store) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	if s.profile.Load() == nil {
		s.writeMu.Unlock()
		return ErrNoProfile
	}
	data := models.NewListData()
	if err := kv.SetJSON(ctx, s.kv, kv.KeyListData, data); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("persist list data: %w", err)
	}
	prev := s.snapshot.Swap(data)
	s.durable = data
	seq := s.nextSeq()
	s.writeMu.Unlock()

	logging.Ctx(ctx).Info().Msg("List data reset to defaults")
	s.notify(ctx, seq, Event{Reason: ReasonReset, Prev: prev, Next: data})
	return nil
}

// ListData returns the current snapshot. It is shared and must not be
// modified; use Update to change state.
func (s *Store) ListData() *models.ListData {
	return s.snapshot.Load()
}

// Update applies m and persists the result, subject to the quota guard.
//
// The returned error is non-nil when m fails (nothing changes) or when the
// permitted write fails (the in-memory change stays published).
func (s *Store) Update(ctx context.Context, m Mutation) (Commit, error) {
	s.writeMu.Lock()

	if s.profile.Load() == nil {
		s.writeMu.Unlock()
		return Commit{}, ErrNoProfile
	}

	prev := s.snapshot.Load()
	next := prev.Clone()
	if err := m(next); err != nil {
		s.writeMu.Unlock()
		return Commit{}, err
	}

	// Memory first.
	s.snapshot.Store(next)

	commit := Commit{Data: next}
	commit.Decision = s.guard.Check(ctx, next)

	var persistErr error
	if commit.Decision.Allowed {
		if persistErr = s.persist(ctx, next); persistErr == nil {
			commit.Persisted = true
			s.durable = next
			metrics.StoreCommits.WithLabelValues("persisted").Inc()
		} else {
			metrics.StoreCommits.WithLabelValues("persist_failed").Inc()
			logging.CtxErr(ctx, persistErr).Msg("List data write failed, change kept in memory only")
		}
	} else {
		metrics.StoreCommits.WithLabelValues("quota_denied").Inc()
		logging.Ctx(ctx).Warn().
			Int64("used_bytes", commit.Decision.UsedBytes).
			Int64("quota_bytes", commit.Decision.QuotaBytes).
			Msg("Storage quota exceeded, write skipped")
		commit.Data = s.recordBreach(ctx, next, commit.Decision)
	}

	seq := s.nextSeq()
	s.writeMu.Unlock()

	s.notify(ctx, seq, Event{Reason: ReasonMutation, Prev: prev, Next: commit.Data})
	return commit, persistErr
}

// recordBreach appends a storage notification unless an unseen one already
// exists. The notification is also written on top of the last durable
// aggregate, so it survives a restart while the refused change does not.
// That write skips the guard and its failure is dropped. Must hold writeMu.
func (s *Store) recordBreach(ctx context.Context, data *models.ListData, d quota.Decision) *models.ListData {
	for i := range data.Notifications {
		n := &data.Notifications[i]
		if n.Kind() == models.NotificationStorage && !n.Seen {
			return data
		}
	}

	note := quota.BreachNotification(d, kv.KeyListData, s.now())
	withNote := data.Clone()
	withNote.Notifications = append(withNote.Notifications, note)
	s.snapshot.Store(withNote)

	if s.durable == nil {
		return withNote
	}
	onDisk := s.durable.Clone()
	onDisk.Notifications = append(onDisk.Notifications, note)
	if err := s.persist(ctx, onDisk); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Storage notification write dropped")
		return withNote
	}
	s.durable = onDisk
	return withNote
}

func (s *Store) persist(ctx context.Context, data *models.ListData) error {
	start := time.Now()
	defer func() { metrics.StorePersistDuration.Observe(time.Since(start).Seconds()) }()
	return kv.SetJSON(ctx, s.kv, kv.KeyListData, data)
}
