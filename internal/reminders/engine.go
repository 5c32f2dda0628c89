// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package reminders turns due reminders into reminder notifications.
//
// A one-shot reminder fires once, at the first evaluation at or after its
// start time. A repeating reminder fires on each listed weekday once the
// local time of day reaches the start's time of day, at most once per
// calendar day. While a reminder has an unseen notification it does not
// fire again, unless re-arming is enabled for repeating reminders.
// Reminders marked auto-stop stay silent once the media is fully consumed.
package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// errNothingDue discards the candidate copy when a concurrent change left
// nothing to fire.
var errNothingDue = errors.New("no reminder due")

// TotalsSource reports a media's total units for auto-stop.
type TotalsSource interface {
	Get(id models.MediaID) (models.TrackedMediaRecord, bool)
}

// Config controls evaluation.
type Config struct {
	StartupDelay time.Duration
	Interval     time.Duration

	// Location is the zone weekdays and times of day are read in.
	// Nil means time.Local.
	Location *time.Location

	// RearmRepeating lets a repeating reminder fire on a new qualifying
	// day even while its previous notification is unseen.
	RearmRepeating bool
}

// Engine evaluates reminders on a schedule.
type Engine struct {
	store  *store.Store
	totals TotalsSource
	cfg    Config

	evalMu sync.Mutex

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an engine. totals may be nil, which disables auto-stop.
func New(s *store.Store, totals TotalsSource, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Engine{store: s, totals: totals, cfg: cfg}
}

// Evaluate fires every reminder due at now and returns how many fired.
func (e *Engine) Evaluate(ctx context.Context, now time.Time) (int, error) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if !e.store.HasProfile() {
		return 0, nil
	}
	if len(e.dueReminders(e.store.ListData(), now)) == 0 {
		return 0, nil
	}

	var fired []models.Reminder
	commit, err := e.store.Update(ctx, func(d *models.ListData) error {
		fired = e.dueReminders(d, now)
		if len(fired) == 0 {
			return errNothingDue
		}
		for i := range fired {
			r := &fired[i]
			d.Notifications = append(d.Notifications, models.NewNotification(models.ReminderPayload{
				ReminderID: r.ID,
				MediaID:    r.MediaID,
				Title:      r.Title,
				Notes:      r.Notes,
			}, now))
		}
		return nil
	})
	switch {
	case errors.Is(err, errNothingDue):
		return 0, nil
	case err != nil && commit.Data == nil:
		return 0, err
	case err != nil:
		// Published in memory; only the write failed.
		logging.CtxErr(ctx, err).Msg("Reminder notifications not persisted")
	}

	for i := range fired {
		kind := "one_shot"
		if fired[i].IsRepeating() {
			kind = "repeating"
		}
		metrics.RemindersFired.WithLabelValues(kind).Inc()
		logging.Ctx(ctx).Info().
			Str("reminder_id", fired[i].ID).
			Int("media_id", int(fired[i].MediaID)).
			Str("kind", kind).
			Msg("Reminder fired")
	}
	return len(fired), nil
}

// dueReminders returns the reminders in d that should fire at now.
func (e *Engine) dueReminders(d *models.ListData, now time.Time) []models.Reminder {
	var due []models.Reminder
	for i := range d.Reminders {
		if e.isDue(d, &d.Reminders[i], now) {
			due = append(due, d.Reminders[i].Clone())
		}
	}
	return due
}

func (e *Engine) isDue(d *models.ListData, r *models.Reminder, now time.Time) bool {
	if r.AutoStopOnCompletion && e.completed(d, r.MediaID) {
		return false
	}

	var hasAny, hasUnseen, firedToday bool
	local := now.In(e.cfg.Location)
	for i := range d.Notifications {
		n := &d.Notifications[i]
		id, ok := n.ReminderID()
		if !ok || id != r.ID {
			continue
		}
		hasAny = true
		if !n.Seen {
			hasUnseen = true
		}
		if sameDay(n.Timestamp.In(e.cfg.Location), local) {
			firedToday = true
		}
	}

	if !r.IsRepeating() {
		return !hasAny && !now.Before(r.StartDateTime)
	}

	if hasUnseen && !e.cfg.RearmRepeating {
		return false
	}
	if firedToday {
		return false
	}
	if !r.RepeatOnDays.Has(models.Weekday(local.Weekday())) {
		return false
	}
	return secondOfDay(local) >= secondOfDay(r.StartDateTime.In(e.cfg.Location))
}

// completed reports whether every known unit of id has been consumed.
// Unknown totals never count as complete.
func (e *Engine) completed(d *models.ListData, id models.MediaID) bool {
	if e.totals == nil {
		return false
	}
	rec, ok := e.totals.Get(id)
	if !ok {
		return false
	}
	total := rec.TotalUnits()
	if total <= 0 {
		return false
	}
	return d.Progress(id, rec.Type) >= total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// Start begins periodic evaluation after StartupDelay.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.stopChan = make(chan struct{})
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	logging.Info().
		Dur("startup_delay", e.cfg.StartupDelay).
		Dur("interval", e.cfg.Interval).
		Str("timezone", e.cfg.Location.String()).
		Msg("Starting reminder engine")

	e.wg.Add(1)
	go e.loop(ctx)
	return nil
}

// Stop ends evaluation and waits for the loop to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	logging.Info().Msg("Reminder engine stopped")
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	delay := time.NewTimer(e.cfg.StartupDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-e.stopChan:
		return
	case <-delay.C:
	}

	e.tick(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if _, err := e.Evaluate(ctx, e.store.Now()); err != nil {
		logging.CtxErr(ctx, err).Msg("Reminder evaluation failed")
	}
}
