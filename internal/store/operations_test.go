// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/validation"
)

func TestToggleEpisodeAndChapter(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	watched, err := s.ToggleEpisode(ctx, 21, 3)
	if err != nil || !watched {
		t.Fatalf("ToggleEpisode() = (%v, %v), want (true, nil)", watched, err)
	}
	if !s.ListData().WatchedEpisodes[21].Has("3") {
		t.Error("episode 3 not recorded")
	}
	if watched, _ = s.ToggleEpisode(ctx, 21, 3); watched {
		t.Error("second toggle should unmark")
	}
	if _, ok := s.ListData().WatchedEpisodes[21]; ok {
		t.Error("empty episode set should be dropped")
	}

	if _, err := s.ToggleEpisode(ctx, 21, 0); err == nil {
		t.Error("episode 0 should be rejected")
	}

	read, err := s.ToggleChapter(ctx, 30, 12)
	if err != nil || !read {
		t.Fatalf("ToggleChapter() = (%v, %v)", read, err)
	}
	rp := s.ListData().ReadChapters[30]
	if rp == nil || !rp.Read.Has("12") || !rp.LastRead.Equal(testNow) {
		t.Errorf("read progress = %+v", rp)
	}
	if got := s.ListData().Progress(30, models.MediaTypeManga); got != 1 {
		t.Errorf("Progress() = %d, want 1", got)
	}
}

func TestCustomLinks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	links := map[int]string{2: "https://example.test/2", 1: "https://example.test/1"}
	if err := s.SetCustomLinks(ctx, 5, links, true); err != nil {
		t.Fatal(err)
	}
	got, ongoing := s.CustomLinks(5)
	if !ongoing || len(got) != 2 || got[0].Unit != 1 || got[1].URL != "https://example.test/2" {
		t.Errorf("CustomLinks() = %+v, %v", got, ongoing)
	}

	// A corrupt template reads as no links.
	if _, err := s.Update(ctx, func(d *models.ListData) error {
		d.CustomEpisodeLinks[6] = models.CustomLinks{Template: "{not json", Ongoing: false}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.CustomLinks(6); got != nil {
		t.Errorf("malformed template parsed to %+v, want nil", got)
	}

	if err := s.SetCustomLinks(ctx, 5, nil, false); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.ListData().CustomEpisodeLinks[5]; ok {
		t.Error("empty links should remove the entry")
	}
}

func reminderInput(title string) ReminderInput {
	return ReminderInput{
		MediaID:       9,
		Title:         title,
		StartDateTime: time.Date(2026, 5, 13, 20, 0, 0, 0, time.UTC),
		RepeatOnDays:  []int{3},
	}
}

func TestReminderCRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	r, err := s.AddReminder(ctx, reminderInput("Watch"))
	if err != nil {
		t.Fatalf("AddReminder() error = %v", err)
	}
	if r.ID == "" || !r.RepeatOnDays.Has(3) || !r.CreatedAt.Equal(testNow) {
		t.Errorf("reminder = %+v", r)
	}

	in := reminderInput("Watch later")
	in.RepeatOnDays = nil
	updated, err := s.UpdateReminder(ctx, r.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Watch later" || updated.IsRepeating() {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := s.UpdateReminder(ctx, "missing", in); !errors.Is(err, ErrReminderNotFound) {
		t.Errorf("UpdateReminder(missing) error = %v", err)
	}

	bad := reminderInput("")
	bad.RepeatOnDays = []int{9}
	_, err = s.AddReminder(ctx, bad)
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Errorf("AddReminder(bad) error = %v, want two field errors", err)
	}
}

func TestDeleteReminderCascades(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	r1, err := s.AddReminder(ctx, reminderInput("R1"))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := s.AddReminder(ctx, reminderInput("R2"))
	if err != nil {
		t.Fatal(err)
	}

	seenAt := testNow.Add(-time.Hour)
	if _, err := s.Update(ctx, func(d *models.ListData) error {
		seen := models.NewNotification(models.ReminderPayload{ReminderID: r1.ID, MediaID: 9}, testNow.Add(-2*time.Hour))
		seen.MarkSeen(seenAt)
		d.Notifications = append(d.Notifications,
			seen,
			models.NewNotification(models.ReminderPayload{ReminderID: r1.ID, MediaID: 9}, testNow),
			models.NewNotification(models.ReminderPayload{ReminderID: r2.ID, MediaID: 9}, testNow),
			models.NewNotification(models.UpdatePayload{MediaID: 9, Diff: 1}, testNow),
		)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteReminder(ctx, r1.ID); err != nil {
		t.Fatalf("DeleteReminder() error = %v", err)
	}

	for _, n := range s.Notifications() {
		if rid, ok := n.ReminderID(); ok && rid == r1.ID {
			t.Errorf("orphaned notification %s for deleted reminder", n.ID)
		}
	}
	if got := len(s.Notifications()); got != 2 {
		t.Errorf("notifications left = %d, want 2", got)
	}
	if _, ok := s.Reminder(r2.ID); !ok {
		t.Error("unrelated reminder removed")
	}

	if err := s.DeleteReminder(ctx, r1.ID); !errors.Is(err, ErrReminderNotFound) {
		t.Errorf("second DeleteReminder() error = %v, want ErrReminderNotFound", err)
	}
}

func TestClearSection(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	if _, err := s.TogglePlanToWatch(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddReminder(ctx, reminderInput("R")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(ctx, func(d *models.ListData) error {
		d.Notifications = append(d.Notifications,
			models.NewNotification(models.ReminderPayload{ReminderID: d.Reminders[0].ID}, testNow),
			models.NewNotification(models.UpdatePayload{MediaID: 1, Diff: 2}, testNow))
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearSection(ctx, "planToWatch"); err != nil {
		t.Fatal(err)
	}
	if s.ListData().PlanToWatch.Len() != 0 {
		t.Error("planToWatch not cleared")
	}

	if err := s.ClearSection(ctx, "reminders"); err != nil {
		t.Fatal(err)
	}
	d := s.ListData()
	if len(d.Reminders) != 0 || len(d.Notifications) != 1 || d.Notifications[0].Kind() != models.NotificationUpdate {
		t.Errorf("after clearing reminders: reminders=%d notifications=%+v", len(d.Reminders), d.Notifications)
	}

	if err := s.ClearSection(ctx, "everything"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("ClearSection(everything) error = %v, want ErrUnknownSection", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	if err := s.SetHiddenGenres(ctx, []string{"Horror"}); err != nil {
		t.Fatal(err)
	}
	got := s.EffectiveHiddenGenres()
	if len(got) != 3 || got[0] != "Ecchi" || got[2] != "Horror" {
		t.Errorf("EffectiveHiddenGenres() = %v", got)
	}
	if err := s.SetSensitiveContentUnlocked(ctx, true); err != nil {
		t.Fatal(err)
	}
	if got := s.EffectiveHiddenGenres(); len(got) != 1 {
		t.Errorf("unlocked EffectiveHiddenGenres() = %v, want [Horror]", got)
	}

	if err := s.SetStorageQuota(ctx, 0); err == nil {
		t.Error("zero quota should be rejected")
	}
	if err := s.SetStorageQuota(ctx, 4096); err != nil || s.ListData().StorageQuota != 4096 {
		t.Errorf("SetStorageQuota() err=%v quota=%d", err, s.ListData().StorageQuota)
	}

	if err := s.SetNotificationsLayout(ctx, []string{"updates", "all"}, "storage"); err == nil {
		t.Error("pinned tab outside layout should be rejected")
	}
	if err := s.SetNotificationsLayout(ctx, []string{"updates", "reminders"}, ""); err != nil {
		t.Fatal(err)
	}
	if tab := s.ListData().PinnedNotificationTab; tab != "updates" {
		t.Errorf("pinned tab = %q, want updates", tab)
	}

	if member, err := s.ToggleAux(ctx, AuxPinnedNews, "n-1"); err != nil || !member {
		t.Errorf("ToggleAux() = (%v, %v)", member, err)
	}
	if _, err := s.ToggleAux(ctx, AuxKind("bogus"), "x"); err == nil {
		t.Error("unknown aux kind should fail")
	}
	if member, err := s.ToggleExcluded(ctx, 77); err != nil || !member {
		t.Errorf("ToggleExcluded() = (%v, %v)", member, err)
	}
}

func TestLayoutConfig(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	raw, err := s.LayoutConfig(ctx)
	if err != nil || raw != nil {
		t.Fatalf("LayoutConfig() on fresh store = (%s, %v)", raw, err)
	}
	if err := s.SetLayoutConfig(ctx, json.RawMessage(`{"columns":3}`)); err != nil {
		t.Fatal(err)
	}
	raw, _ = s.LayoutConfig(ctx)
	if string(raw) != `{"columns":3}` {
		t.Errorf("LayoutConfig() = %s", raw)
	}
	if err := s.SetLayoutConfig(ctx, json.RawMessage(`{broken`)); err == nil {
		t.Error("invalid JSON layout should be rejected")
	}
}
