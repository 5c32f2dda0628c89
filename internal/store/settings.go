// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/models"
)

// Section names accepted by ClearSection.
var Sections = []string{
	"planToWatch", "currentlyWatching", "planToRead", "currentlyReading",
	"watchedEpisodes", "readChapters", "customEpisodeLinks",
	"reminders", "notifications", "hiddenGenres",
	"excludedItems", "readActivityIds", "pinnedNews", "favoriteNews", "followedAnimeForNews",
}

// ClearSection empties one named top-level collection. Clearing reminders
// also removes every reminder notification.
func (s *Store) ClearSection(ctx context.Context, section string) error {
	_, err := s.Update(ctx, func(d *models.ListData) error {
		switch section {
		case "planToWatch":
			d.PlanToWatch = models.NewSet[models.MediaID]()
		case "currentlyWatching":
			d.CurrentlyWatching = models.NewSet[models.MediaID]()
		case "planToRead":
			d.PlanToRead = models.NewSet[models.MediaID]()
		case "currentlyReading":
			d.CurrentlyReading = models.NewSet[models.MediaID]()
		case "watchedEpisodes":
			d.WatchedEpisodes = make(map[models.MediaID]models.Set[string])
		case "readChapters":
			d.ReadChapters = make(map[models.MediaID]*models.ReadProgress)
		case "customEpisodeLinks":
			d.CustomEpisodeLinks = make(map[models.MediaID]models.CustomLinks)
		case "reminders":
			d.Reminders = []models.Reminder{}
			d.Notifications = slices.DeleteFunc(d.Notifications, func(n models.Notification) bool {
				return n.Kind() == models.NotificationReminder
			})
		case "notifications":
			d.Notifications = []models.Notification{}
		case "hiddenGenres":
			d.HiddenGenres = models.NewSet[string]()
		case "excludedItems":
			d.ExcludedItems = models.NewSet[models.MediaID]()
		case "readActivityIds":
			d.ReadActivityIDs = models.NewSet[string]()
		case "pinnedNews":
			d.PinnedNews = models.NewSet[string]()
		case "favoriteNews":
			d.FavoriteNews = models.NewSet[string]()
		case "followedAnimeForNews":
			d.FollowedAnimeForNews = models.NewSet[models.MediaID]()
		default:
			return fmt.Errorf("%w: %s", ErrUnknownSection, section)
		}
		return nil
	})
	return err
}

// SetHiddenGenres replaces the user's hidden genre set.
func (s *Store) SetHiddenGenres(ctx context.Context, genres []string) error {
	_, err := s.Update(ctx, func(d *models.ListData) error {
		d.HiddenGenres = models.NewSet(genres...)
		return nil
	})
	return err
}

// SetSensitiveContentUnlocked toggles whether sensitive genres are shown.
func (s *Store) SetSensitiveContentUnlocked(ctx context.Context, unlocked bool) error {
	_, err := s.Update(ctx, func(d *models.ListData) error {
		d.SensitiveContentUnlocked = unlocked
		return nil
	})
	return err
}

// EffectiveHiddenGenres returns the hidden set including built-in
// sensitive genres unless unlocked.
func (s *Store) EffectiveHiddenGenres() []string {
	return s.ListData().EffectiveHiddenGenres().Sorted()
}

// SetStorageQuota sets the soft storage limit in bytes.
func (s *Store) SetStorageQuota(ctx context.Context, bytes int64) error {
	if bytes <= 0 {
		return fmt.Errorf("storage quota must be positive, got %d", bytes)
	}
	_, err := s.Update(ctx, func(d *models.ListData) error {
		d.StorageQuota = bytes
		return nil
	})
	return err
}

// SetNotificationsLayout replaces the tab order and pinned tab. The pinned
// tab must be part of the layout.
func (s *Store) SetNotificationsLayout(ctx context.Context, layout []string, pinned string) error {
	if len(layout) == 0 {
		return errors.New("notification layout must not be empty")
	}
	if pinned != "" && !slices.Contains(layout, pinned) {
		return fmt.Errorf("pinned tab %q is not in the layout", pinned)
	}
	_, err := s.Update(ctx, func(d *models.ListData) error {
		d.NotificationsLayout = append([]string{}, layout...)
		if pinned != "" {
			d.PinnedNotificationTab = pinned
		} else if !slices.Contains(layout, d.PinnedNotificationTab) {
			d.PinnedNotificationTab = layout[0]
		}
		return nil
	})
	return err
}

// Notifications returns the notifications in storage order.
func (s *Store) Notifications() []models.Notification {
	return s.ListData().Notifications
}

// Reminders returns the reminders in creation order.
func (s *Store) Reminders() []models.Reminder {
	return s.ListData().Reminders
}

// LayoutConfig returns the opaque layout document, or nil.
func (s *Store) LayoutConfig(ctx context.Context) (json.RawMessage, error) {
	return s.rawSetting(ctx, kv.KeyLayoutConfig)
}

// SetLayoutConfig stores the opaque layout document.
func (s *Store) SetLayoutConfig(ctx context.Context, raw json.RawMessage) error {
	return s.setRawSetting(ctx, kv.KeyLayoutConfig, raw)
}

// SharedDataConfig returns the opaque shared-data settings, or nil.
func (s *Store) SharedDataConfig(ctx context.Context) (json.RawMessage, error) {
	return s.rawSetting(ctx, kv.KeySharedDataConfig)
}

// SetSharedDataConfig stores the opaque shared-data settings.
func (s *Store) SetSharedDataConfig(ctx context.Context, raw json.RawMessage) error {
	return s.setRawSetting(ctx, kv.KeySharedDataConfig, raw)
}

func (s *Store) rawSetting(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// setRawSetting writes a side document. It is subject to the same quota
// as list data; a refused write returns ErrQuotaExceeded.
func (s *Store) setRawSetting(ctx context.Context, key string, raw json.RawMessage) error {
	if !s.HasProfile() {
		return ErrNoProfile
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%s is not valid JSON", key)
	}
	if d := s.guard.Check(ctx, s.ListData()); !d.Allowed {
		return ErrQuotaExceeded
	}
	return s.kv.Set(ctx, key, raw)
}
