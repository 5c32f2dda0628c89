// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package poller detects new episodes and chapters for media in the
// currently-watching and currently-reading lists.
//
// One run fetches every active id in a single batched request and compares
// the returned unit count with the tracked-media snapshot. Each increase
// produces exactly one update notification and refreshes that snapshot.
// Decreases and unchanged counts produce nothing and keep the old snapshot.
//
// Runs are serialized: a run requested while another is in flight returns
// ErrAlreadyChecking without doing anything. Scheduled runs and manual
// triggers share the same guard.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
	"github.com/tomtom215/shiori/internal/tracked"
)

// ErrAlreadyChecking is returned when a run is requested during another.
var ErrAlreadyChecking = errors.New("update check already in progress")

// BatchFetcher is the part of metadata.Fetcher the poller needs.
type BatchFetcher interface {
	FetchMediaByIDs(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error)
}

// Config controls scheduling.
type Config struct {
	// StartupDelay postpones the first scheduled run after Start.
	StartupDelay time.Duration

	// Interval between scheduled runs. The ticker does not wait for a
	// slow run; ticks that fire during one are dropped.
	Interval time.Duration

	// RunTimeout bounds one run, including the metadata fetch.
	RunTimeout time.Duration
}

// Result summarizes one run.
type Result struct {
	Checked  int                    `json:"checked"`
	Received int                    `json:"received"`
	Updates  []models.UpdatePayload `json:"updates"`
	Duration time.Duration          `json:"duration"`
}

// Poller runs update checks on a schedule and on demand.
type Poller struct {
	store   *store.Store
	tracked *tracked.Cache
	fetcher BatchFetcher
	cfg     Config

	checking atomic.Bool

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastRun  time.Time
	lastErr  error
}

// New creates a poller. Zero config durations fall back to 30m interval,
// 5s startup delay and 2m run timeout.
func New(s *store.Store, cache *tracked.Cache, fetcher BatchFetcher, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	return &Poller{store: s, tracked: cache, fetcher: fetcher, cfg: cfg}
}

// Checking reports whether a run is in flight.
func (p *Poller) Checking() bool {
	return p.checking.Load()
}

// LastRun returns when the last run finished and its error, if any.
func (p *Poller) LastRun() (time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRun, p.lastErr
}

// RunChecks performs one update check. It returns ErrAlreadyChecking if a
// run is already in flight. A fetch failure aborts the run and leaves the
// tracked-media snapshots untouched.
func (p *Poller) RunChecks(ctx context.Context) (Result, error) {
	if !p.checking.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyChecking
	}
	defer p.checking.Store(false)

	start := time.Now()
	res, err := p.runChecks(ctx)
	res.Duration = time.Since(start)

	p.mu.Lock()
	p.lastRun = time.Now()
	p.lastErr = err
	p.mu.Unlock()

	return res, err
}

func (p *Poller) runChecks(ctx context.Context) (Result, error) {
	logger := logging.Ctx(ctx).With().Str("component", "poller").Logger()

	if !p.store.HasProfile() {
		return Result{}, nil
	}

	ids := p.store.ListData().ActiveIDs().Sorted()
	if len(ids) == 0 {
		metrics.RecordPollerRun("empty", 0, 0)
		return Result{}, nil
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	res := Result{Checked: len(ids)}
	recs, err := p.fetcher.FetchMediaByIDs(runCtx, ids)
	if err != nil {
		metrics.RecordPollerRun("error", time.Since(start), 0)
		logger.Warn().Err(err).Int("ids", len(ids)).Msg("Update check failed, will retry next interval")
		return res, fmt.Errorf("fetch media: %w", err)
	}
	res.Received = len(recs)

	now := p.store.Now()
	var (
		notes     []models.Notification
		refreshed []models.TrackedMediaRecord
	)
	for i := range recs {
		rec := &recs[i]
		old, ok := p.tracked.Get(rec.ID)
		if !ok {
			continue
		}

		prev := old.UnitCount()
		cur := rec.UnitCount()
		switch {
		case cur > prev:
			payload := models.UpdatePayload{
				MediaID:   rec.ID,
				Title:     rec.Title,
				MediaType: rec.Type,
				Diff:      cur - prev,
				Previous:  prev,
				Current:   cur,
			}
			notes = append(notes, models.NewNotification(payload, now))
			refreshed = append(refreshed, models.NewTrackedMediaRecord(rec))
			res.Updates = append(res.Updates, payload)
		case cur < prev:
			logger.Debug().
				Int("media_id", int(rec.ID)).
				Int("cached", prev).
				Int("received", cur).
				Msg("Unit count decreased, keeping cached value")
		}
	}

	if len(notes) > 0 {
		commit, err := p.store.Update(ctx, func(d *models.ListData) error {
			d.Notifications = appendNewUpdates(d.Notifications, notes)
			return nil
		})
		if err != nil && commit.Data == nil {
			metrics.RecordPollerRun("error", time.Since(start), 0)
			return res, fmt.Errorf("record updates: %w", err)
		}
		// The baseline only moves once the notifications are on disk, so a
		// refused or failed write is retried by the next run.
		if commit.Persisted {
			if err := p.tracked.Replace(ctx, refreshed); err != nil {
				logger.Error().Err(err).Msg("Failed to persist refreshed tracked media")
			}
		} else {
			logger.Warn().
				Int("updates", len(notes)).
				Msg("Update notifications not persisted, keeping cached unit counts")
		}
	}

	metrics.RecordPollerRun("ok", time.Since(start), len(notes))
	logger.Info().
		Int("checked", res.Checked).
		Int("received", res.Received).
		Int("updates", len(notes)).
		Dur("duration", time.Since(start)).
		Msg("Update check complete")
	return res, nil
}

// Start begins the schedule: first run after StartupDelay, then every
// Interval until Stop or ctx cancellation.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	logging.Info().
		Dur("startup_delay", p.cfg.StartupDelay).
		Dur("interval", p.cfg.Interval).
		Msg("Starting update poller")

	p.wg.Add(1)
	go p.pollLoop(ctx)
	return nil
}

// Stop ends the schedule, cancels a scheduled run in flight and waits
// for it to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("Update poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	delay := time.NewTimer(p.cfg.StartupDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-p.stopChan:
		return
	case <-delay.C:
	}

	p.tick(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	if _, err := p.RunChecks(ctx); errors.Is(err, ErrAlreadyChecking) {
		logging.Ctx(ctx).Debug().Msg("Update check already running, tick skipped")
	}
}

// appendNewUpdates appends notes, skipping any update already waiting
// unseen for the same media and unit count.
func appendNewUpdates(existing, notes []models.Notification) []models.Notification {
	type key struct {
		id    models.MediaID
		units int
	}
	pending := make(map[key]bool)
	for i := range existing {
		if existing[i].Seen {
			continue
		}
		if p, ok := existing[i].Payload.(models.UpdatePayload); ok {
			pending[key{p.MediaID, p.Current}] = true
		}
	}
	for _, n := range notes {
		p, ok := n.Payload.(models.UpdatePayload)
		if ok && pending[key{p.MediaID, p.Current}] {
			continue
		}
		existing = append(existing, n)
	}
	return existing
}
