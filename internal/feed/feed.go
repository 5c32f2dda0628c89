// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package feed exposes the notification list: display ordering, seen
// flags and deletion. Every change goes through the list store.
package feed

import (
	"context"
	"errors"
	"slices"
	"sort"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// ErrReminderNotification is returned by DeleteOne for reminder
// notifications; they are removed by deleting their reminder.
var ErrReminderNotification = errors.New("reminder notifications are deleted with their reminder")

// Predicate selects notifications. A nil predicate matches everything.
type Predicate func(n *models.Notification) bool

func (p Predicate) match(n *models.Notification) bool {
	return p == nil || p(n)
}

// OfKind matches one payload kind.
func OfKind(kind models.NotificationKind) Predicate {
	return func(n *models.Notification) bool { return n.Kind() == kind }
}

// ForMedia matches notifications about one media.
func ForMedia(id models.MediaID) Predicate {
	return func(n *models.Notification) bool {
		mid, ok := n.MediaID()
		return ok && mid == id
	}
}

// ForTab maps a notification tab key to its predicate. Unknown tabs
// match nothing.
func ForTab(tab string) Predicate {
	switch tab {
	case "all", "":
		return nil
	case "updates":
		return OfKind(models.NotificationUpdate)
	case "reminders":
		return OfKind(models.NotificationReminder)
	case "storage":
		return OfKind(models.NotificationStorage)
	}
	return func(*models.Notification) bool { return false }
}

// And matches notifications every non-nil predicate matches.
func And(preds ...Predicate) Predicate {
	return func(n *models.Notification) bool {
		for _, p := range preds {
			if !p.match(n) {
				return false
			}
		}
		return true
	}
}

// Feed operates on the notifications held by a store.
type Feed struct {
	store *store.Store
}

// New creates a feed over s.
func New(s *store.Store) *Feed {
	return &Feed{store: s}
}

// Ordered returns matching notifications for display: notifications about
// media in a list first, then unseen before seen, then newest first.
// Storage order is not changed.
func (f *Feed) Ordered(pred Predicate) []models.Notification {
	data := f.store.ListData()
	tracked := data.TrackedIDs()

	out := make([]models.Notification, 0, len(data.Notifications))
	for i := range data.Notifications {
		if pred.match(&data.Notifications[i]) {
			out = append(out, data.Notifications[i].Clone())
		}
	}

	isTracked := func(n *models.Notification) bool {
		id, ok := n.MediaID()
		return ok && tracked.Has(id)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if ta, tb := isTracked(a), isTracked(b); ta != tb {
			return ta
		}
		if a.Seen != b.Seen {
			return !a.Seen
		}
		return a.Timestamp.After(b.Timestamp)
	})
	return out
}

// UnseenCount counts unseen matching notifications.
func (f *Feed) UnseenCount(pred Predicate) int {
	data := f.store.ListData()
	n := 0
	for i := range data.Notifications {
		if !data.Notifications[i].Seen && pred.match(&data.Notifications[i]) {
			n++
		}
	}
	return n
}

// MarkSeen marks one notification seen. Marking an already seen
// notification keeps its original seenAt.
func (f *Feed) MarkSeen(ctx context.Context, id string) error {
	now := f.store.Now()
	_, err := f.store.Update(ctx, func(d *models.ListData) error {
		for i := range d.Notifications {
			if d.Notifications[i].ID == id {
				d.Notifications[i].MarkSeen(now)
				return nil
			}
		}
		return store.ErrNotificationNotFound
	})
	return err
}

// MarkAllSeen marks every unseen matching notification seen and returns
// how many changed.
func (f *Feed) MarkAllSeen(ctx context.Context, pred Predicate) (int, error) {
	now := f.store.Now()
	changed := 0
	_, err := f.store.Update(ctx, func(d *models.ListData) error {
		changed = 0
		for i := range d.Notifications {
			n := &d.Notifications[i]
			if !n.Seen && pred.match(n) {
				n.MarkSeen(now)
				changed++
			}
		}
		return nil
	})
	return changed, err
}

// DeleteOne removes one notification.
func (f *Feed) DeleteOne(ctx context.Context, id string) error {
	_, err := f.store.Update(ctx, func(d *models.ListData) error {
		i := slices.IndexFunc(d.Notifications, func(n models.Notification) bool { return n.ID == id })
		if i < 0 {
			return store.ErrNotificationNotFound
		}
		if d.Notifications[i].Kind() == models.NotificationReminder {
			return ErrReminderNotification
		}
		d.Notifications = slices.Delete(d.Notifications, i, i+1)
		return nil
	})
	return err
}

// DeleteAllSeen removes every seen matching notification except reminder
// notifications, and returns how many were removed.
func (f *Feed) DeleteAllSeen(ctx context.Context, pred Predicate) (int, error) {
	removed := 0
	_, err := f.store.Update(ctx, func(d *models.ListData) error {
		before := len(d.Notifications)
		d.Notifications = slices.DeleteFunc(d.Notifications, func(n models.Notification) bool {
			return n.Seen && n.Kind() != models.NotificationReminder && pred.match(&n)
		})
		removed = before - len(d.Notifications)
		return nil
	})
	return removed, err
}
